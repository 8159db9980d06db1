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

package symbols

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Finnhub-Stock-API/finnhub-go"
	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const constituents = "Symbol,Security,GICS Sector\nAAPL,Apple Inc.,Information Technology\n MSFT ,Microsoft,Information Technology\nAAPL,Apple Inc.,Information Technology\n,Blank,None\n"

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "constituents.csv")
	require.NoError(t, os.WriteFile(path, []byte(constituents), 0o644))

	ss, err := File{Path: path}.Symbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, ss)
}

func TestFileMissing(t *testing.T) {
	_, err := File{Path: filepath.Join(t.TempDir(), "nope.csv")}.Symbols(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFileWithoutSymbolColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("Ticker,Name\nAAPL,Apple\n"), 0o644))

	_, err := File{Path: path}.Symbols(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), `"Symbol"`)
}

func TestFileWithOnlyHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, []byte("Symbol\n"), 0o644))

	_, err := File{Path: path}.Symbols(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("\ufeffsymbol,Security\nAAPL,Apple\nMSFT,Microsoft\n"))
	}))
	defer srv.Close()

	ss, err := Remote{Client: resty.New(), URL: srv.URL}.Symbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, ss)
}

func TestRemoteErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := Remote{Client: resty.New(), URL: srv.URL}.Symbols(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRemoteUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := resty.New().SetTimeout(2 * time.Second)
	_, err := Remote{Client: client, URL: url}.Symbols(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestStatic(t *testing.T) {
	ss, err := Static{" AAPL", "AAPL", "MSFT "}.Symbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, ss)

	ss, err = Static{"aapl", "AAPL", "brk.b"}.Symbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "BRK.B"}, ss, "symbols share the metadata key form")

	_, err = Static{" ", ""}.Symbols(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func exchangeClient(t *testing.T, h http.HandlerFunc) *finnhub.DefaultApiService {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := finnhub.NewConfiguration()
	cfg.BasePath = srv.URL
	return finnhub.NewAPIClient(cfg).DefaultApi
}

func TestExchange(t *testing.T) {
	client := exchangeClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "US", r.URL.Query().Get("exchange"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"symbol":"AAPL"},{"symbol":" MSFT "},{"symbol":"AAPL"},{"symbol":""}]`))
	})

	ss, err := Exchange{Client: client, APIKey: "test", Exchange: "US"}.Symbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, ss)
}

func TestExchangeError(t *testing.T) {
	client := exchangeClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := Exchange{Client: client, APIKey: "test", Exchange: "US"}.Symbols(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestExchangeEmpty(t *testing.T) {
	client := exchangeClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := Exchange{Client: client, APIKey: "test", Exchange: "XX"}.Symbols(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}
