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
	"cloud.google.com/go/logging"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ajjensen13/stockqa/internal/util"
)

// Cached consults redis before delegating to Next. Cache failures are logged
// and fall through to Next.
// DefaultCacheBatch bounds how many keys one cache round trip carries.
const DefaultCacheBatch = 500

type Cached struct {
	Next   Embedder
	Client *redis.Client
	TTL    time.Duration

	// BatchSize is the number of texts looked up and stored per round trip.
	BatchSize int
}

func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

func (c *Cached) Model() string {
	return c.Next.Model()
}

func (c *Cached) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "stockqa:embed:" + c.Next.Model() + ":" + hex.EncodeToString(sum[:])
}

func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	size := c.BatchSize
	if size <= 0 {
		size = DefaultCacheBatch
	}

	result := make([][]float32, 0, len(texts))
	hits := 0
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}

		vs, n, err := c.embedChunk(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		result = append(result, vs...)
		hits += n
	}

	if len(texts) > 0 {
		util.Logf(ctx, logging.Debug, "embedded %d texts, %d from cache", len(texts), hits)
	}
	return result, nil
}

// embedChunk serves texts from the cache where possible and embeds the rest.
// It returns how many came from the cache.
func (c *Cached) embedChunk(ctx context.Context, texts []string) ([][]float32, int, error) {
	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = c.key(t)
	}

	result := make([][]float32, len(texts))
	var missing []int

	vals, err := c.Client.MGet(ctx, keys...).Result()
	if err != nil {
		util.Logf(ctx, logging.Warning, "embedding cache lookup failed: %v", err)
		vals = make([]interface{}, len(keys))
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			missing = append(missing, i)
			continue
		}
		var vec []float32
		if err := json.Unmarshal([]byte(s), &vec); err != nil {
			missing = append(missing, i)
			continue
		}
		result[i] = vec
	}

	if len(missing) == 0 {
		return result, len(texts), nil
	}

	pending := make([]string, len(missing))
	for j, i := range missing {
		pending[j] = texts[i]
	}
	fresh, err := c.Next.Embed(ctx, pending)
	if err != nil {
		return nil, 0, err
	}

	pipe := c.Client.Pipeline()
	for j, i := range missing {
		result[i] = fresh[j]
		data, err := json.Marshal(fresh[j])
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal embedding: %w", err)
		}
		pipe.Set(ctx, keys[i], data, c.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		util.Logf(ctx, logging.Warning, "embedding cache store failed: %v", err)
	}

	return result, len(texts) - len(missing), nil
}
