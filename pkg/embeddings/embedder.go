package embeddings

import (
	"context"
	"encoding/json"
	"fmt"

	"curvelaboratory/promptgateway/pkg/upstream"
)

// Embedder computes the embedding of a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Request is the body sent to the model server's embeddings endpoint.
type Request struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

// response accepts both the curve model server shape and the OpenAI shape.
type response struct {
	Vector []float64 `json:"vector"`
	Data   []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// ParseResponse extracts the vector from an embeddings response.
func ParseResponse(body []byte) ([]float64, error) {
	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("invalid embeddings response: %w", err)
	}
	if len(r.Vector) > 0 {
		return r.Vector, nil
	}
	if len(r.Data) > 0 && len(r.Data[0].Embedding) > 0 {
		return r.Data[0].Embedding, nil
	}
	return nil, fmt.Errorf("embeddings response contains no vector")
}

// ModelServerEmbedder calls the model server's embeddings endpoint.
type ModelServerEmbedder struct {
	pool  *upstream.Pool
	path  string
	model string
}

// NewModelServerEmbedder creates an embedder posting to path on the model server.
func NewModelServerEmbedder(pool *upstream.Pool, path, model string) *ModelServerEmbedder {
	return &ModelServerEmbedder{pool: pool, path: path, model: model}
}

// Embed implements Embedder.
func (e *ModelServerEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(Request{Input: text, Model: e.model})
	if err != nil {
		return nil, err
	}

	resp, err := e.pool.Call(ctx, upstream.ModelServerCluster, upstream.Request{Path: e.path, Body: body})
	if err != nil {
		return nil, err
	}
	return ParseResponse(resp)
}
