package index

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/philippgille/chromem-go"
)

// ChromemStore keeps vectors in an embedded chromem-go database, in memory
// or persisted to a directory.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewChromemStore opens a chromem collection. An empty path keeps
// everything in memory.
func NewChromemStore(path, collection string, compress bool) (*ChromemStore, error) {
	var db *chromem.DB
	if path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(path, compress)
		if err != nil {
			return nil, fmt.Errorf("open chromem db at %s: %w", path, err)
		}
	}
	if collection == "" {
		collection = DefaultCollection
	}
	c, err := db.GetOrCreateCollection(collection, nil, callerSupplied)
	if err != nil {
		return nil, fmt.Errorf("get or create collection %s: %w", collection, err)
	}
	return &ChromemStore{db: db, collection: c}, nil
}

// callerSupplied stands in for chromem's embedding func; every document and
// query arrives with its vector.
func callerSupplied(context.Context, string) ([]float32, error) {
	return nil, errors.New("chromem store expects precomputed embeddings")
}

func (s *ChromemStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		if len(r.Embedding) == 0 {
			return fmt.Errorf("record %s has no embedding", r.Key())
		}
		docs[i] = chromem.Document{
			ID:        r.Key(),
			Content:   r.Text,
			Metadata:  chromemMetadata(r),
			Embedding: r.Embedding,
		}
	}
	if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	return nil
}

func (s *ChromemStore) Query(ctx context.Context, vec []float32, topK int, filter *Filter) ([]Match, error) {
	count := s.collection.Count()
	if count == 0 || topK <= 0 {
		return nil, nil
	}
	// chromem rejects nResults above the collection size.
	n := min(topK, count)

	results, err := s.collection.QueryEmbedding(ctx, vec, n, chromemWhere(filter), nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}
	matches := make([]Match, 0, len(results))
	for _, r := range results {
		kind, id, ok := parseKey(r.ID)
		if !ok {
			continue
		}
		matches = append(matches, Match{Kind: kind, ID: id, Score: r.Similarity})
	}
	return matches, nil
}

// Count returns the number of stored records.
func (s *ChromemStore) Count() int {
	return s.collection.Count()
}

func (s *ChromemStore) Close() error {
	return nil
}

func chromemMetadata(r Record) map[string]string {
	m := map[string]string{"kind": string(r.Kind), "id": r.ID}
	if r.Topic != "" {
		m["topic"] = string(r.Topic)
	}
	if r.Difficulty != 0 {
		m["difficulty"] = strconv.Itoa(r.Difficulty)
	}
	return m
}

func chromemWhere(f *Filter) map[string]string {
	if f == nil {
		return nil
	}
	where := map[string]string{}
	if f.Kind != KindAny {
		where["kind"] = string(f.Kind)
	}
	if f.Topic != "" {
		where["topic"] = string(f.Topic)
	}
	if f.Difficulty != 0 {
		where["difficulty"] = strconv.Itoa(f.Difficulty)
	}
	if len(where) == 0 {
		return nil
	}
	return where
}
