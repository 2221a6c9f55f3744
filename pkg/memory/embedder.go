package memory

import (
	"context"
	"math"
	"strings"
	"unicode"
)

// VectorSize is the bucket count of HashEmbedder vectors.
const VectorSize = 256

// HashEmbedder maps text to an L2-normalized bag of hashed tokens. It needs
// no model and is deterministic.
type HashEmbedder struct{}

// Embed implements Embedder.
func (HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return HashVector(text), nil
}

// HashVector tokenizes text, counts each token in bucket hash(token) mod
// VectorSize and normalizes the result. Text without tokens yields the zero
// vector.
func HashVector(text string) []float32 {
	vector := make([]float32, VectorSize)
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return vector
	}
	for _, token := range tokens {
		vector[hashToken(token)]++
	}

	var magnitude float64
	for _, v := range vector {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)
	if magnitude == 0 {
		return vector
	}
	for i := range vector {
		vector[i] = float32(float64(vector[i]) / magnitude)
	}
	return vector
}

// Tokenize lower-cases text, replaces everything outside [a-z0-9_], the
// Arabic block and whitespace with spaces, and drops one-rune tokens.
func Tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 0x0600 && r <= 0x06FF:
			return r
		case unicode.IsSpace(r):
			return r
		}
		return ' '
	}, strings.ToLower(text))

	fields := strings.Fields(cleaned)
	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func hashToken(token string) int {
	var h uint32
	for _, r := range token {
		h = h*31 + uint32(r)
	}
	return int(h % VectorSize)
}

// Cosine returns the dot product of a and b, which is their cosine
// similarity when both are normalized. Extra dimensions are ignored.
func Cosine(a, b []float32) float32 {
	n := min(len(a), len(b))
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
