package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"google.golang.org/protobuf/types/known/structpb"
)

// PineconeConfig addresses a hosted Pinecone index.
type PineconeConfig struct {
	APIKey    string `koanf:"api_key"`
	IndexName string `koanf:"index_name"`
	Namespace string `koanf:"namespace"`
}

const pineconeBatchSize = 100

// PineconeStore keeps vectors in a Pinecone index namespace.
type PineconeStore struct {
	conn *pinecone.IndexConnection
}

// NewPineconeStore resolves the index host and opens a connection.
func NewPineconeStore(ctx context.Context, cfg PineconeConfig) (*PineconeStore, error) {
	if cfg.APIKey == "" || cfg.IndexName == "" {
		return nil, errors.New("pinecone requires an API key and index name")
	}
	pc, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("create pinecone client: %w", err)
	}
	desc, err := pc.DescribeIndex(ctx, cfg.IndexName)
	if err != nil {
		return nil, fmt.Errorf("describe index %s: %w", cfg.IndexName, err)
	}
	conn, err := pc.Index(pinecone.NewIndexConnParams{
		Host:      desc.Host,
		Namespace: cfg.Namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to index %s: %w", cfg.IndexName, err)
	}
	return &PineconeStore{conn: conn}, nil
}

func (s *PineconeStore) Upsert(ctx context.Context, records []Record) error {
	vectors := make([]*pinecone.Vector, 0, len(records))
	for _, r := range records {
		meta := map[string]any{"kind": string(r.Kind), "id": r.ID}
		if r.Topic != "" {
			meta["topic"] = string(r.Topic)
		}
		if r.Difficulty != 0 {
			meta["difficulty"] = r.Difficulty
		}
		metadata, err := structpb.NewStruct(meta)
		if err != nil {
			return fmt.Errorf("metadata for %s: %w", r.Key(), err)
		}
		values := r.Embedding
		vectors = append(vectors, &pinecone.Vector{
			Id:       r.Key(),
			Values:   &values,
			Metadata: metadata,
		})
	}

	for start := 0; start < len(vectors); start += pineconeBatchSize {
		end := min(start+pineconeBatchSize, len(vectors))
		if _, err := s.conn.UpsertVectors(ctx, vectors[start:end]); err != nil {
			return fmt.Errorf("upsert vectors: %w", err)
		}
	}
	return nil
}

func (s *PineconeStore) Query(ctx context.Context, vec []float32, topK int, filter *Filter) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	req := &pinecone.QueryByVectorValuesRequest{
		Vector:          vec,
		TopK:            uint32(topK),
		IncludeMetadata: true,
	}
	if f := pineconeFilter(filter); f != nil {
		mf, err := structpb.NewStruct(f)
		if err != nil {
			return nil, fmt.Errorf("metadata filter: %w", err)
		}
		req.MetadataFilter = mf
	}

	resp, err := s.conn.QueryByVectorValues(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	matches := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if m == nil || m.Vector == nil {
			continue
		}
		kind, id, ok := parseKey(m.Vector.Id)
		if !ok {
			continue
		}
		matches = append(matches, Match{Kind: kind, ID: id, Score: m.Score})
	}
	return matches, nil
}

func (s *PineconeStore) Close() error {
	return s.conn.Close()
}

func pineconeFilter(f *Filter) map[string]any {
	if f == nil {
		return nil
	}
	out := map[string]any{}
	if f.Kind != KindAny {
		out["kind"] = map[string]any{"$eq": string(f.Kind)}
	}
	if f.Topic != "" {
		out["topic"] = map[string]any{"$eq": string(f.Topic)}
	}
	if f.Difficulty != 0 {
		out["difficulty"] = map[string]any{"$eq": f.Difficulty}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
