package embed

import (
	"context"
	"hash/fnv"
)

// Fake is a deterministic in-process Embedder for tests and offline use.
// Identical texts always produce identical unit vectors, so exact-match and
// distance behavior is reproducible without model files.
type Fake struct {
	// Dimension of produced vectors. Defaults to 8 if zero.
	Dimension int

	// Err, if set, is returned from every embedding call.
	Err error
}

func (f *Fake) dim() int {
	if f.Dimension > 0 {
		return f.Dimension
	}
	return 8
}

// Dim returns the configured vector dimensionality.
func (f *Fake) Dim() int { return f.dim() }

// Embed returns a deterministic unit vector derived from the text.
func (f *Fake) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns one deterministic vector per text.
func (f *Fake) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = f.vector(text)
	}
	return out, nil
}

// Close is a no-op.
func (f *Fake) Close() error { return nil }

// vector hashes the text into a pseudo-random but stable unit vector.
func (f *Fake) vector(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, f.dim())
	for i := range vec {
		// xorshift64 sequence from the text hash.
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		vec[i] = float32(seed%2000)/1000.0 - 1.0
	}
	normalizeL2(vec)
	// Guard against the pathological all-zero draw.
	if vec[0] == 0 && vec[f.dim()-1] == 0 {
		vec[0] = 1
	}
	return vec
}

var _ Embedder = (*Fake)(nil)
var _ Embedder = (*ONNXEmbedder)(nil)
