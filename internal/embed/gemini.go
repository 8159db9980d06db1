/*
Copyright © 2020 A. Jensen <jensen.aaro@gmail.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package embed

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// Gemini embeds texts with the Gemini embedding API.
type Gemini struct {
	client    *genai.Client
	model     string
	dimension int32
	batchSize int
	limiter   *rate.Limiter
}

func NewGemini(ctx context.Context, apiKey, model string, dimension, batchSize int, limiter *rate.Limiter) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini embedder requires an API key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Gemini{client: client, model: model, dimension: int32(dimension), batchSize: batchSize, limiter: limiter}, nil
}

func (g *Gemini) Model() string {
	return fmt.Sprintf("gemini/%s/%d", g.model, g.dimension)
}

func (g *Gemini) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += g.batchSize {
		end := start + g.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vs, err := g.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed texts [%d:%d]: %w", start, end, err)
		}
		result = append(result, vs...)
	}
	return result, nil
}

func (g *Gemini) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	dim := g.dimension
	res, err := g.client.Models.EmbedContent(ctx, g.model, contents, &genai.EmbedContentConfig{OutputDimensionality: &dim})
	if err != nil {
		return nil, err
	}
	if res == nil || len(res.Embeddings) != len(texts) {
		got := 0
		if res != nil {
			got = len(res.Embeddings)
		}
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), got)
	}

	result := make([][]float32, len(texts))
	for i, e := range res.Embeddings {
		if e == nil || len(e.Values) != int(dim) {
			return nil, fmt.Errorf("embedding %d has unexpected dimension", i)
		}
		// normalized so the index can rank by dot product
		Normalize(e.Values)
		result[i] = e.Values
	}
	return result, nil
}
