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

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Finnhub-Stock-API/finnhub-go"
	"github.com/ajjensen13/gke"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/jackc/pgx/v4/pgxpool"
	"golang.org/x/time/rate"

	"github.com/ajjensen13/stockqa/internal/answer"
	"github.com/ajjensen13/stockqa/internal/api"
	"github.com/ajjensen13/stockqa/internal/config"
	"github.com/ajjensen13/stockqa/internal/db"
	"github.com/ajjensen13/stockqa/internal/embed"
	"github.com/ajjensen13/stockqa/internal/extract"
	"github.com/ajjensen13/stockqa/internal/index"
	"github.com/ajjensen13/stockqa/internal/pipeline"
	"github.com/ajjensen13/stockqa/internal/prices"
	"github.com/ajjensen13/stockqa/internal/schema"
	"github.com/ajjensen13/stockqa/internal/symbols"
	"github.com/ajjensen13/stockqa/internal/util"
)

// overrides holds command line settings that win over the loaded configuration.
type overrides struct {
	Symbols    []string
	Start, End time.Time
}

// indexJob is what the index commands need.
type indexJob struct {
	Builder *index.Builder
	Store   index.Store
	Corpus  *db.Store
}

// serveJob is what the serve command needs.
type serveJob struct {
	*indexJob
	Handler *api.Handler
}

// askJob is what the ask command needs.
type askJob struct {
	*indexJob
	Service *answer.Service
}

func provideConfig() (*config.Config, error) {
	return config.Load()
}

func provideTimezone(cfg *config.Config) (*time.Location, error) {
	return cfg.Location()
}

func provideLogger() (lg gke.Logger, cleanup func()) {
	lg, cleanup, err := gke.NewLogger(context.Background())
	if err != nil {
		panic(err)
	}

	gke.LogEnv(lg)
	gke.LogMetadata(lg)

	return lg, cleanup
}

func provideBackoff() func() backoff.BackOff {
	return func() backoff.BackOff {
		result := backoff.NewExponentialBackOff()
		result.InitialInterval = time.Second
		result.MaxElapsedTime = time.Minute
		return result
	}
}

func provideBackoffNotifier(lg gke.Logger) backoff.Notify {
	return func(err error, duration time.Duration) {
		if errors.Is(err, extract.ErrToManyRequests) {
			lg.Info(gke.NewFmtMsgData("request exceeded rate limit, waiting %v before retrying: %v", duration, err))
			return
		}
		lg.Warning(gke.NewFmtMsgData("request failed, waiting %v before retrying: %v", duration, err))
	}
}

func provideLimiter(cfg *config.Config) *rate.Limiter {
	if cfg.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
}

func provideApiServiceClient() *finnhub.DefaultApiService {
	return finnhub.NewAPIClient(finnhub.NewConfiguration()).DefaultApi
}

func provideDbConnPool(ctx context.Context, cfg *config.Config) (ret *pgxpool.Pool, cleanup func(), err error) {
	pool, err := pgxpool.Connect(ctx, cfg.Database.URL().String())
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to open database connection pool: %w", err)
	}

	return pool, pool.Close, nil
}

func provideStore(pool *pgxpool.Pool, cfg *config.Config, bo func() backoff.BackOff, bon backoff.Notify) *db.Store {
	return &db.Store{
		Pool:      pool,
		BatchSize: cfg.BatchSize,
		BackOff:   bo,
		Notify:    bon,
	}
}

func provideSchema(cfg *config.Config, lg gke.Logger) (*schema.Manager, func(), error) {
	m, err := schema.New(cfg.Database.URL(), lg)
	if err != nil {
		return nil, func() {}, err
	}
	return m, func() {
		if err := m.Close(); err != nil {
			lg.Warningf("failed to close migrator: %v", err)
		}
	}, nil
}

// provideSymbolSource picks the first configured source in the order
// static list, file, exchange listing, remote csv.
func provideSymbolSource(cfg *config.Config, o overrides, client *finnhub.DefaultApiService, bo func() backoff.BackOff, bon backoff.Notify) symbols.Source {
	switch {
	case len(o.Symbols) > 0:
		return symbols.Static(o.Symbols)
	case len(cfg.Symbols.Static) > 0:
		return symbols.Static(cfg.Symbols.Static)
	case cfg.Symbols.File != "":
		return symbols.File{Path: cfg.Symbols.File}
	case cfg.Symbols.Exchange != "":
		return symbols.Exchange{Client: client, APIKey: cfg.FinnhubAPIKey, Exchange: cfg.Symbols.Exchange, BackOff: bo(), Notify: bon}
	default:
		return symbols.Remote{Client: resty.New().SetTimeout(util.ShortReqTimeout), URL: cfg.Symbols.URL}
	}
}

func provideFetcher(cfg *config.Config, tz *time.Location, client *finnhub.DefaultApiService, bo func() backoff.BackOff, bon backoff.Notify, limiter *rate.Limiter) (prices.Fetcher, error) {
	retry := prices.Retry{BackOff: bo, Notify: bon, Limiter: limiter}
	switch cfg.PriceProvider {
	case "", "yahoo":
		return &prices.Yahoo{
			Client:   extract.NewYahooClient(util.ShortReqTimeout),
			BaseURL:  cfg.YahooBaseURL,
			Location: tz,
			Retry:    retry,
		}, nil
	case "finnhub":
		return &prices.Finnhub{Client: client, APIKey: cfg.FinnhubAPIKey, Location: tz, Retry: retry}, nil
	default:
		return nil, fmt.Errorf("unknown price provider %q", cfg.PriceProvider)
	}
}

func provideWindow(cfg *config.Config, tz *time.Location, o overrides) prices.Window {
	return prices.Window{
		LookbackDays: cfg.LookbackDays,
		Location:     tz,
		Start:        o.Start,
		End:          o.End,
	}
}

func provideRefresher(src symbols.Source, m *schema.Manager, store *db.Store, f prices.Fetcher, w prices.Window, cfg *config.Config) *pipeline.Refresher {
	return &pipeline.Refresher{
		Symbols:      src,
		Schema:       m,
		Store:        store,
		Fetcher:      f,
		Window:       w,
		MetadataFile: cfg.MetadataFile,
	}
}

func provideEmbedder(ctx context.Context, cfg *config.Config, lg gke.Logger) (embed.Embedder, func(), error) {
	var next embed.Embedder
	switch cfg.EmbedProvider {
	case "hash":
		next = embed.Hash{Dimension: cfg.EmbedDimension}
	case "", "gemini":
		limiter := rate.NewLimiter(rate.Every(time.Second), 1)
		g, err := embed.NewGemini(ctx, cfg.GeminiAPIKey, cfg.EmbedModel, cfg.EmbedDimension, cfg.EmbedBatchSize, limiter)
		if err != nil {
			return nil, func() {}, err
		}
		next = g
	default:
		return nil, func() {}, fmt.Errorf("unknown embedding provider %q", cfg.EmbedProvider)
	}

	if cfg.RedisAddr == "" {
		return next, func() {}, nil
	}

	client, err := embed.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		lg.Warningf("embedding cache disabled: %v", err)
		return next, func() {}, nil
	}
	return &embed.Cached{Next: next, Client: client, TTL: cfg.CacheTTL, BatchSize: cfg.EmbedBatchSize}, func() { _ = client.Close() }, nil
}

func provideIndexStore(cfg *config.Config) index.Store {
	return &index.BadgerStore{Dir: cfg.IndexDir, StaleLockAfter: index.DefaultStaleLockAfter}
}

func provideBuilder(store index.Store, e embed.Embedder, cfg *config.Config) (*index.Builder, error) {
	p, err := index.ParsePolicy(cfg.IndexPolicy)
	if err != nil {
		return nil, err
	}
	return &index.Builder{Store: store, Embedder: e, Policy: p}, nil
}

func provideIndexJob(b *index.Builder, store index.Store, corpus *db.Store) *indexJob {
	return &indexJob{Builder: b, Store: store, Corpus: corpus}
}

func provideReader(store index.Store) *index.Reader {
	return &index.Reader{Store: store, MaxAge: time.Minute}
}

func provideAnswerModel(ctx context.Context, cfg *config.Config) (answer.Model, error) {
	switch cfg.ChatProvider {
	case "", "gemini":
		return answer.NewGemini(ctx, cfg.GeminiAPIKey, cfg.ChatModel)
	case "anthropic", "claude":
		return answer.NewClaude(cfg.AnthropicAPIKey, cfg.ChatModel)
	default:
		return nil, fmt.Errorf("unknown chat provider %q", cfg.ChatProvider)
	}
}

func provideAnswerService(r *index.Reader, e embed.Embedder, m answer.Model, cfg *config.Config) *answer.Service {
	return &answer.Service{Index: r, Embedder: e, Model: m, TopK: cfg.TopK}
}

func provideAskJob(j *indexJob, s *answer.Service) *askJob {
	return &askJob{indexJob: j, Service: s}
}

func provideHandler(r *pipeline.Refresher, j *indexJob, reader *index.Reader, s *answer.Service) *api.Handler {
	return &api.Handler{
		Refresher: r,
		Builder:   j.Builder,
		Corpus:    j.Corpus,
		Reader:    reader,
		Answerer:  s,
	}
}

func provideServeJob(j *indexJob, h *api.Handler) *serveJob {
	return &serveJob{indexJob: j, Handler: h}
}
