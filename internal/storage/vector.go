package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
)

// encodeVector serializes an embedding as a JSON array for TEXT column
// storage. A nil or empty vector is stored as SQL NULL so that backfill can
// find it later.
func encodeVector(vec []float32) (sql.NullString, error) {
	if len(vec) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(vec)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode embedding: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// decodeVector deserializes an embedding column value.
func decodeVector(raw sql.NullString) ([]float32, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var vec []float32
	if err := json.Unmarshal([]byte(raw.String), &vec); err != nil {
		return nil, fmt.Errorf("failed to decode embedding: %w", err)
	}
	return vec, nil
}

// cosineDistance returns 1 - cosine similarity. Lower is more similar;
// mismatched or zero vectors score as maximally distant.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1.0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1.0
	}
	return 1.0 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
