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

// Package embed turns texts into dense vectors.
package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Embedder returns one vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Model identifies the embedding space. Vectors from different models
	// are not comparable.
	Model() string
}

// Hash is a local feature-hashing embedder. It needs no network access and
// is deterministic, which makes it suitable for offline use and tests.
type Hash struct {
	Dimension int
}

func (h Hash) Model() string {
	return fmt.Sprintf("hash-%d", h.dim())
}

func (h Hash) dim() int {
	if h.Dimension <= 0 {
		return 256
	}
	return h.Dimension
}

func (h Hash) Embed(_ context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i, t := range texts {
		result[i] = h.vector(t)
	}
	return result, nil
}

func (h Hash) vector(text string) []float32 {
	v := make([]float32, h.dim())
	for _, tok := range Tokens(text) {
		hf := fnv.New64a()
		_, _ = hf.Write([]byte(tok))
		sum := hf.Sum64()

		ndx := int(sum % uint64(len(v)))
		if sum&(1<<63) != 0 {
			v[ndx]--
		} else {
			v[ndx]++
		}
	}
	Normalize(v)
	return v
}

// Tokens splits text into lower-cased terms. Dates and decimals stay whole.
func Tokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '.')
	})

	result := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, ".-")
		if f != "" {
			result = append(result, f)
		}
	}
	return result
}

// Normalize scales v to unit length in place. The zero vector is unchanged.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	n := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= n
	}
}
