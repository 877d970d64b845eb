// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reason

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/pdiddy/grant-screener/pkg/types"
)

// GeminiBackend calls the Gemini API with the Google Search tool enabled so
// the model can supplement pre-fetched evidence with its own grounding.
// Temperature is pinned to 0; determinism is requested but not guaranteed,
// which is why the resolver re-applies the decision policy downstream.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

// NewGemini builds a Gemini backend from the reasoning config. A missing API
// key is a configuration error surfaced before any screening begins.
func NewGemini(ctx context.Context, cfg types.AIConfig) (*GeminiBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key not configured: add .secrets/gemini-api-key or set reasoning.api_key")
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-3-flash-preview"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiBackend{client: client, model: model}, nil
}

// Generate sends one evaluation prompt and returns the raw text plus any
// grounding citations, with internal redirect links already filtered out.
func (g *GeminiBackend) Generate(ctx context.Context, prompt string) (Response, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt),
		&genai.GenerateContentConfig{
			Temperature: genai.Ptr(float32(0)),
			Tools:       []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		})
	if err != nil {
		return Response{}, fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return Response{}, fmt.Errorf("gemini returned empty response")
	}

	return Response{Text: text, Citations: groundingCitations(resp)}, nil
}

// groundingCitations extracts web citations from the response's grounding
// metadata, in the order the service reported them.
func groundingCitations(resp *genai.GenerateContentResponse) []types.Citation {
	var cites []types.Citation
	for _, cand := range resp.Candidates {
		if cand == nil || cand.GroundingMetadata == nil {
			continue
		}
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
				continue
			}
			if types.IsInternalRedirect(chunk.Web.URI) {
				continue
			}
			cites = append(cites, types.NewCitation(chunk.Web.URI))
		}
	}
	return cites
}
