package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/philippgille/chromem-go"
)

// NewArkEmbedder builds an embedding function against the Ark
// OpenAI-compatible embeddings endpoint.
func NewArkEmbedder(baseURL, apiKey, modelName string, client *http.Client) chromem.EmbeddingFunc {
	if client == nil {
		client = http.DefaultClient
	}
	endpoint := strings.TrimSuffix(baseURL, "/") + "/embeddings"

	return func(ctx context.Context, text string) ([]float32, error) {
		body, err := json.Marshal(map[string]any{
			"model": modelName,
			"input": []string{text},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+apiKey)

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("embedding request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("embedding endpoint returned status %d", resp.StatusCode)
		}

		var result struct {
			Data []struct {
				Embedding []float32 `json:"embedding"`
			} `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("failed to decode embedding response: %w", err)
		}
		if len(result.Data) == 0 {
			return nil, fmt.Errorf("embedding endpoint returned no vectors")
		}

		vec := result.Data[0].Embedding
		normalize(vec)
		return vec, nil
	}
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}
