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

// Package answer responds to questions from the indexed corpus.
package answer

import (
	"cloud.google.com/go/logging"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ajjensen13/stockqa/internal/embed"
	"github.com/ajjensen13/stockqa/internal/index"
	"github.com/ajjensen13/stockqa/internal/util"
)

// DefaultTopK is how many entries are retrieved per question.
const DefaultTopK = 6

var (
	// ErrNoData is returned when no index exists or it holds no entries.
	ErrNoData = errors.New("no indexed price data available")
	// ErrEmptyQuestion is returned for blank questions.
	ErrEmptyQuestion = errors.New("question is empty")
)

// Model generates a completion for prompt under the system instruction.
type Model interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Snapshotter provides the current index snapshot.
type Snapshotter interface {
	Snapshot(ctx context.Context) (*index.Snapshot, error)
}

type Service struct {
	Index    Snapshotter
	Embedder embed.Embedder
	Model    Model
	TopK     int
}

type Answer struct {
	Text    string         `json:"answer"`
	Sources []index.Result `json:"-"`
}

const systemPrompt = `You answer questions about historical stock prices. Use only the context lines provided, each describing one trading day of one company. Quote figures exactly as they appear. If the context does not contain the answer, say that you do not know.`

func (s *Service) Answer(ctx context.Context, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, ErrEmptyQuestion
	}

	snap, err := s.Index.Snapshot(ctx)
	switch {
	case errors.Is(err, index.ErrNotFound):
		return Answer{}, ErrNoData
	case err != nil:
		return Answer{}, fmt.Errorf("failed to load index: %w", err)
	case len(snap.Entries) == 0:
		return Answer{}, ErrNoData
	}

	if snap.Manifest.Model != "" && snap.Manifest.Model != s.Embedder.Model() {
		return Answer{}, fmt.Errorf("index was built with %s but the query embedder is %s; rebuild the index", snap.Manifest.Model, s.Embedder.Model())
	}

	vs, err := s.Embedder.Embed(ctx, []string{question})
	if err != nil {
		return Answer{}, fmt.Errorf("failed to embed question: %w", err)
	}
	if len(vs) != 1 {
		return Answer{}, fmt.Errorf("failed to embed question: got %d vectors", len(vs))
	}

	k := s.TopK
	if k <= 0 {
		k = DefaultTopK
	}
	results := snap.Search(vs[0], k)
	util.Logf(ctx, logging.Debug, "retrieved %d of %d entries for question", len(results), len(snap.Entries))

	text, err := s.Model.Generate(ctx, systemPrompt, Prompt(question, results))
	if err != nil {
		return Answer{}, fmt.Errorf("failed to generate answer: %w", err)
	}
	return Answer{Text: strings.TrimSpace(text), Sources: results}, nil
}

// Prompt places the retrieved entries ahead of the question.
func Prompt(question string, results []index.Result) string {
	var sb strings.Builder
	sb.WriteString("Context:\n")
	for _, r := range results {
		sb.WriteString("- ")
		sb.WriteString(r.Text)
		sb.WriteString("\n")
	}
	sb.WriteString("\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\nAnswer:")
	return sb.String()
}

// UnableToAnswer renders err as the message shown to the person asking.
func UnableToAnswer(err error) string {
	switch {
	case errors.Is(err, ErrNoData):
		return "Unable to answer: no price data has been indexed yet. Run a refresh and rebuild the index first."
	case errors.Is(err, ErrEmptyQuestion):
		return "Unable to answer: please ask a question."
	default:
		return fmt.Sprintf("Unable to answer: %v", err)
	}
}
