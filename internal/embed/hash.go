package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultDimensions is the vector length of the hashing embedder.
const DefaultDimensions = 256

// Hash is an offline embedder using feature hashing of word stems and
// character trigrams. Texts sharing vocabulary land close together, which
// is enough for topic-level retrieval over a small corpus.
type Hash struct {
	dim int
}

// NewHash creates a hashing embedder with dim dimensions.
func NewHash(dim int) *Hash {
	if dim <= 0 {
		dim = DefaultDimensions
	}
	return &Hash{dim: dim}
}

// Dimensions returns the vector length.
func (h *Hash) Dimensions() int {
	return h.dim
}

func (h *Hash) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	words := tokenize(text)
	if len(words) == 0 {
		return nil, ErrEmptyText
	}

	vec := make([]float32, h.dim)
	for _, w := range words {
		h.add(vec, "w:"+w, 1)
		padded := "^" + w + "$"
		for i := 0; i+3 <= len(padded); i++ {
			h.add(vec, "t:"+padded[i:i+3], 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

func (h *Hash) add(vec []float32, feature string, weight float32) {
	f := fnv.New64a()
	f.Write([]byte(feature))
	sum := f.Sum64()
	idx := int(sum % uint64(h.dim))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "and": true, "or": true,
	"to": true, "is": true, "in": true, "for": true, "me": true, "give": true,
	"what": true, "by": true, "with": true, "on": true, "i": true, "want": true,
}

// tokenize lowercases, splits on non-alphanumerics, drops stop words and
// strips a plural s.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if stopWords[f] {
			continue
		}
		if len(f) > 3 && strings.HasSuffix(f, "s") && !strings.HasSuffix(f, "ss") {
			f = strings.TrimSuffix(f, "s")
		}
		out = append(out, f)
	}
	return out
}
