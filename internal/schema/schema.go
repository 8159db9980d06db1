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

// Package schema owns the relational tables and brings them up to date.
package schema

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/url"

	"github.com/ajjensen13/gke"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	PriceHistoryTable    = "price_history"
	CompanyMetadataTable = "company_metadata"
)

// Manager applies the embedded migrations to one database.
type Manager struct {
	m *migrate.Migrate
}

// New opens a migrator for databaseURL. lg may be nil.
func New(databaseURL *url.URL, lg gke.Logger) (*Manager, error) {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL.String())
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	if lg != nil {
		m.Log = migrationLogger{lg}
	}
	return &Manager{m: m}, nil
}

// Ensure creates any missing tables. Running it against an up to date
// database is a no-op.
func (s *Manager) Ensure(ctx context.Context) error {
	return s.run(ctx, "up", s.m.Up)
}

// Down drops every table owned by the manager.
func (s *Manager) Down(ctx context.Context) error {
	return s.run(ctx, "down", s.m.Down)
}

func (s *Manager) run(ctx context.Context, direction string, f func() error) error {
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			requestStop(s.m.GracefulStop)
		case <-done:
		}
	}()

	err := f()
	close(done)
	<-exited
	// a stop left unconsumed must not cut short the next run on this Manager
	drainStop(s.m.GracefulStop)

	switch {
	case errors.Is(err, migrate.ErrNoChange):
		return nil
	case err != nil:
		return fmt.Errorf("failed to migrate schema %s: %w", direction, err)
	}
	return nil
}

func requestStop(stop chan bool) {
	select {
	case stop <- true:
	default:
	}
}

func drainStop(stop chan bool) {
	select {
	case <-stop:
	default:
	}
}

func (s *Manager) Close() error {
	srcErr, dbErr := s.m.Close()
	return errors.Join(srcErr, dbErr)
}

type migrationLogger struct {
	gke.Logger
}

func (m migrationLogger) Printf(format string, v ...interface{}) {
	m.Defaultf(format, v...)
}

func (m migrationLogger) Verbose() bool {
	return false
}
