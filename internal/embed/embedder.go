// Package embed produces vector embeddings for item names and taxonomy
// paths using a local ONNX sentence-transformer model.
package embed

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/petrikoro/tally/internal/common"
)

// Embedder converts text into dense vectors suitable for cosine-distance
// comparison.
type Embedder interface {
	// Embed returns the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one embedding per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dim returns the embedding dimensionality.
	Dim() int

	// Close releases any resources held by the embedder.
	Close() error
}

// Config locates the model artifacts on disk.
type Config struct {
	// ModelPath is the ONNX model file (e.g. models/all-MiniLM-L6-v2.onnx).
	ModelPath string

	// VocabPath is the WordPiece vocab.txt matching the model.
	VocabPath string

	// LibraryPath is the ONNX Runtime shared library. If empty, it is
	// resolved as libonnxruntime.so next to the model file.
	LibraryPath string
}

// ONNXEmbedder runs local inference with a BERT-style sentence-transformer.
// The model and runtime are loaded lazily on first use, so constructing an
// ONNXEmbedder is cheap and commands that never embed anything never pay the
// load cost.
type ONNXEmbedder struct {
	cfg Config

	once    sync.Once
	loadErr error
	session *modelSession
	tok     *tokenizer
	dim     int
}

// NewONNXEmbedder returns an embedder for the given model files. Loading is
// deferred until the first Embed or EmbedBatch call.
func NewONNXEmbedder(cfg Config) *ONNXEmbedder {
	return &ONNXEmbedder{cfg: cfg}
}

// load performs the one-time model load. Subsequent calls return the cached
// result, including a cached failure.
func (e *ONNXEmbedder) load() error {
	e.once.Do(func() {
		sess, err := newModelSession(e.cfg)
		if err != nil {
			e.loadErr = fmt.Errorf("%w: %v", common.ErrEmbeddingUnavailable, err)
			return
		}

		tok, err := newTokenizer(e.cfg.VocabPath)
		if err != nil {
			sess.close()
			e.loadErr = fmt.Errorf("%w: %v", common.ErrEmbeddingUnavailable, err)
			return
		}

		e.session = sess
		e.tok = tok
		e.dim = int(sess.hiddenDim)
	})
	return e.loadErr
}

// Dim returns the embedding dimensionality. It forces the model load; if the
// model cannot be loaded, Dim returns 0.
func (e *ONNXEmbedder) Dim() int {
	if err := e.load(); err != nil {
		return 0
	}
	return e.dim
}

// Embed returns a single L2-normalized embedding vector.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch tokenizes all texts, runs a single batched inference pass, and
// returns mean-pooled, L2-normalized vectors in input order.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.load(); err != nil {
		return nil, err
	}

	batch := e.tok.encodeBatch(texts)

	hidden, err := e.session.infer(batch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEmbeddingUnavailable, err)
	}

	pooled := meanPool(hidden, batch.attentionMask, batch.batchSize, batch.seqLen, e.session.hiddenDim)

	dim := int(e.session.hiddenDim)
	out := make([][]float32, len(texts))
	for i := range out {
		vec := make([]float32, dim)
		copy(vec, pooled[i*dim:(i+1)*dim])
		normalizeL2(vec)
		out[i] = vec
	}
	return out, nil
}

// Close releases the ONNX session. Safe to call on an embedder that was
// never loaded.
func (e *ONNXEmbedder) Close() error {
	if e.session != nil {
		return e.session.close()
	}
	return nil
}

// meanPool computes attention-mask-weighted mean pooling over the sequence
// dimension. hidden is flat [batch * seq * dim]; mask is flat [batch * seq].
// Returns flat [batch * dim].
func meanPool(hidden []float32, mask []int64, batchSize, seqLen, dim int64) []float32 {
	out := make([]float32, batchSize*dim)

	for b := int64(0); b < batchSize; b++ {
		maskOff := b * seqLen
		hiddenOff := b * seqLen * dim
		outOff := b * dim

		var count float32
		for s := int64(0); s < seqLen; s++ {
			if mask[maskOff+s] == 1 {
				count++
			}
		}
		if count == 0 {
			continue
		}

		for s := int64(0); s < seqLen; s++ {
			if mask[maskOff+s] != 1 {
				continue
			}
			tokOff := hiddenOff + s*dim
			for d := int64(0); d < dim; d++ {
				out[outOff+d] += hidden[tokOff+d]
			}
		}

		inv := 1.0 / count
		for d := int64(0); d < dim; d++ {
			out[outOff+d] *= inv
		}
	}

	return out
}

// normalizeL2 scales the vector to unit length in place. Zero vectors are
// left untouched.
func normalizeL2(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
}
