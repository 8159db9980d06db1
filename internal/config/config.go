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

// Package config assembles the runtime configuration from an optional .env
// file, an optional JSON overlay and the process environment.
package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ajjensen13/config"
	"github.com/joho/godotenv"
)

// OverlayEnv names the environment variable holding the name of an optional
// JSON configuration overlay.
const OverlayEnv = "STOCKQA_CONFIG"

// ErrMissing is returned when required settings are absent.
var ErrMissing = errors.New("missing required configuration")

type Database struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Name     string `json:"name"`
	User     string `json:"user"`
	Password string `json:"password"`
	SSLMode  string `json:"sslmode"`
}

// URL returns the postgres connection URL for the database.
func (d Database) URL() *url.URL {
	q := url.Values{}
	q.Set("sslmode", d.SSLMode)
	return &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: q.Encode(),
	}
}

type Symbols struct {
	File     string   `json:"file"`
	URL      string   `json:"url"`
	Exchange string   `json:"exchange"`
	Static   []string `json:"static"`
}

type Config struct {
	Database Database `json:"database"`
	Symbols  Symbols  `json:"symbols"`

	PriceProvider     string  `json:"price_provider"`
	FinnhubAPIKey     string  `json:"finnhub_api_key"`
	YahooBaseURL      string  `json:"yahoo_base_url"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	LookbackDays      int     `json:"lookback_days"`
	Timezone          string  `json:"timezone"`
	BatchSize         int     `json:"batch_size"`

	MetadataFile string `json:"metadata_file"`

	IndexDir    string `json:"index_dir"`
	IndexPolicy string `json:"index_policy"`
	TopK        int    `json:"top_k"`

	EmbedProvider  string `json:"embed_provider"`
	EmbedModel     string `json:"embed_model"`
	EmbedDimension int    `json:"embed_dimension"`
	EmbedBatchSize int    `json:"embed_batch_size"`

	ChatProvider string `json:"chat_provider"`
	ChatModel    string `json:"chat_model"`

	GeminiAPIKey    string `json:"gemini_api_key"`
	AnthropicAPIKey string `json:"anthropic_api_key"`

	RedisAddr     string        `json:"redis_addr"`
	RedisPassword string        `json:"redis_password"`
	RedisDB       int           `json:"redis_db"`
	CacheTTL      time.Duration `json:"cache_ttl"`

	HTTPAddr string `json:"http_addr"`
}

const DefaultSymbolsURL = "https://datahub.io/core/s-and-p-500-companies/r/constituents.csv"

// Default returns the configuration used before the overlay and the
// environment are applied.
func Default() Config {
	return Config{
		Database:          Database{SSLMode: "disable"},
		Symbols:           Symbols{URL: DefaultSymbolsURL},
		PriceProvider:     "yahoo",
		YahooBaseURL:      "https://query1.finance.yahoo.com",
		RequestsPerSecond: 2,
		LookbackDays:      5 * 365,
		Timezone:          "America/New_York",
		BatchSize:         500,
		MetadataFile:      "data/Company_S&HQS (1).xlsx",
		IndexDir:          "vector_store",
		IndexPolicy:       "always",
		TopK:              6,
		EmbedProvider:     "gemini",
		EmbedModel:        "gemini-embedding-001",
		EmbedDimension:    768,
		EmbedBatchSize:    100,
		ChatProvider:      "gemini",
		ChatModel:         "gemini-2.5-flash",
		CacheTTL:          30 * 24 * time.Hour,
		HTTPAddr:          ":8080",
	}
}

// Load reads .env (when present), the JSON overlay named by STOCKQA_CONFIG
// (when set) and the environment, in that order of increasing precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := Default()
	if name := os.Getenv(OverlayEnv); name != "" {
		err := config.InterfaceJson(name, &cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration overlay %q: %w", name, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s %q: %w", key, v, err))
				return
			}
			*dst = n
		}
	}

	str("DB_HOST", &c.Database.Host)
	str("DB_PORT", &c.Database.Port)
	str("DB_NAME", &c.Database.Name)
	str("DB_USER", &c.Database.User)
	str("DB_PASSWORD", &c.Database.Password)
	str("DB_SSLMODE", &c.Database.SSLMode)

	str("SYMBOLS_FILE", &c.Symbols.File)
	str("SYMBOLS_URL", &c.Symbols.URL)
	str("SYMBOLS_EXCHANGE", &c.Symbols.Exchange)
	if v, ok := lookup("SYMBOLS"); ok && v != "" {
		c.Symbols.Static = strings.Split(v, ",")
	}

	str("PRICE_PROVIDER", &c.PriceProvider)
	str("FINNHUB_API_KEY", &c.FinnhubAPIKey)
	str("YAHOO_BASE_URL", &c.YahooBaseURL)
	if v, ok := lookup("REQUESTS_PER_SECOND"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid REQUESTS_PER_SECOND %q: %w", v, err))
		} else {
			c.RequestsPerSecond = f
		}
	}
	num("LOOKBACK_DAYS", &c.LookbackDays)
	str("TIMEZONE", &c.Timezone)
	num("BATCH_SIZE", &c.BatchSize)

	str("METADATA_FILE", &c.MetadataFile)

	str("INDEX_DIR", &c.IndexDir)
	str("INDEX_POLICY", &c.IndexPolicy)
	num("TOP_K", &c.TopK)

	str("EMBED_PROVIDER", &c.EmbedProvider)
	str("EMBED_MODEL", &c.EmbedModel)
	num("EMBED_DIMENSION", &c.EmbedDimension)
	num("EMBED_BATCH_SIZE", &c.EmbedBatchSize)
	str("CHAT_PROVIDER", &c.ChatProvider)
	str("CHAT_MODEL", &c.ChatModel)
	str("GEMINI_API_KEY", &c.GeminiAPIKey)
	str("ANTHROPIC_API_KEY", &c.AnthropicAPIKey)

	str("REDIS_ADDR", &c.RedisAddr)
	str("REDIS_PASSWORD", &c.RedisPassword)
	num("REDIS_DB", &c.RedisDB)
	if v, ok := lookup("CACHE_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid CACHE_TTL %q: %w", v, err))
		} else {
			c.CacheTTL = d
		}
	}

	str("HTTP_ADDR", &c.HTTPAddr)

	return errors.Join(errs...)
}

// Validate reports every missing required setting in a single error.
func (c *Config) Validate() error {
	var missing []string
	for _, kv := range []struct{ key, val string }{
		{"DB_HOST", c.Database.Host},
		{"DB_PORT", c.Database.Port},
		{"DB_NAME", c.Database.Name},
		{"DB_USER", c.Database.User},
		{"DB_PASSWORD", c.Database.Password},
	} {
		if kv.val == "" {
			missing = append(missing, kv.key)
		}
	}
	if c.PriceProvider == "finnhub" && c.FinnhubAPIKey == "" {
		missing = append(missing, "FINNHUB_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}
	if c.TopK <= 0 {
		return fmt.Errorf("invalid TOP_K %d: must be positive", c.TopK)
	}
	return nil
}

// Location resolves the exchange timezone. An empty name means UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}
