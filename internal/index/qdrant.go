package index

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig addresses a Qdrant server over gRPC.
type QdrantConfig struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	APIKey string `koanf:"api_key"`
	UseTLS bool   `koanf:"use_tls"`
}

// pointNamespace derives stable point ids from record keys.
var pointNamespace = uuid.MustParse("6f1c1f0e-8a4b-4c1e-9d55-3b7f3c2a9e10")

// QdrantStore keeps vectors in a Qdrant collection. The collection is
// created on first upsert, sized from the first record.
type QdrantStore struct {
	client     *qdrant.Client
	collection string

	mu      sync.Mutex
	ensured bool
}

// NewQdrantStore connects to Qdrant.
func NewQdrantStore(cfg QdrantConfig, collection string) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if collection == "" {
		collection = DefaultCollection
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant at %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &QdrantStore{client: client, collection: collection}, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context, size int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured {
		return nil
	}
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", s.collection, err)
	}
	if !exists {
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(size),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("create collection %s: %w", s.collection, err)
		}
	}
	s.ensured = true
	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx, len(records[0].Embedding)); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		payload := map[string]*qdrant.Value{
			"kind": {Kind: &qdrant.Value_StringValue{StringValue: string(r.Kind)}},
			"id":   {Kind: &qdrant.Value_StringValue{StringValue: r.ID}},
			"text": {Kind: &qdrant.Value_StringValue{StringValue: r.Text}},
		}
		if r.Topic != "" {
			payload["topic"] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: string(r.Topic)}}
		}
		if r.Difficulty != 0 {
			payload["difficulty"] = &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(r.Difficulty)}}
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID(r.Key())),
			Vectors: qdrant.NewVectors(r.Embedding...),
			Payload: payload,
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upsert into %s: %w", s.collection, err)
	}
	return nil
}

func (s *QdrantStore) Query(ctx context.Context, vec []float32, topK int, filter *Filter) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vec...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         qdrantFilter(filter),
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.collection, err)
	}

	matches := make([]Match, 0, len(points))
	for _, p := range points {
		kind := p.Payload["kind"].GetStringValue()
		id := p.Payload["id"].GetStringValue()
		if kind == "" || id == "" {
			continue
		}
		matches = append(matches, Match{Kind: Kind(kind), ID: id, Score: p.Score})
	}
	return matches, nil
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func pointID(key string) string {
	return uuid.NewSHA1(pointNamespace, []byte(key)).String()
}

func keywordCondition(key, value string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key:   key,
				Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: value}},
			},
		},
	}
}

func qdrantFilter(f *Filter) *qdrant.Filter {
	if f == nil {
		return nil
	}
	var must []*qdrant.Condition
	if f.Kind != KindAny {
		must = append(must, keywordCondition("kind", string(f.Kind)))
	}
	if f.Topic != "" {
		must = append(must, keywordCondition("topic", string(f.Topic)))
	}
	if f.Difficulty != 0 {
		must = append(must, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key:   "difficulty",
					Match: &qdrant.Match{MatchValue: &qdrant.Match_Integer{Integer: int64(f.Difficulty)}},
				},
			},
		})
	}
	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}
