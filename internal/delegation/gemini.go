package delegation

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiConnector returns a ConnectFunc for the Gemini API. The credential
// is the API key.
func GeminiConnector() ConnectFunc {
	return func(ctx context.Context, credential string) (ContentGenerator, error) {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  credential,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		return client.Models, nil
	}
}
