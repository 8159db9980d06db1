//go:build wireinject
// +build wireinject

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

	"github.com/ajjensen13/gke"
	"github.com/google/wire"

	"github.com/ajjensen13/stockqa/internal/config"
	"github.com/ajjensen13/stockqa/internal/pipeline"
	"github.com/ajjensen13/stockqa/internal/schema"
)

var storeSet = wire.NewSet(provideDbConnPool, provideStore, provideBackoff, provideBackoffNotifier)

var refreshSet = wire.NewSet(provideTimezone, provideLimiter, provideApiServiceClient, provideSchema, provideSymbolSource, provideFetcher, provideWindow, provideRefresher)

var indexSet = wire.NewSet(provideEmbedder, provideIndexStore, provideBuilder, provideIndexJob)

var answerSet = wire.NewSet(provideReader, provideAnswerModel, provideAnswerService)

func logger() (lg gke.Logger, cleanup func()) {
	panic(wire.Build(provideLogger))
}

func appConfig() (*config.Config, error) {
	panic(wire.Build(provideConfig))
}

func schemaManager(lg gke.Logger) (*schema.Manager, func(), error) {
	panic(wire.Build(provideConfig, provideSchema))
}

func refresher(ctx context.Context, lg gke.Logger, o overrides) (*pipeline.Refresher, func(), error) {
	panic(wire.Build(provideConfig, storeSet, refreshSet))
}

func indexer(ctx context.Context, lg gke.Logger) (*indexJob, func(), error) {
	panic(wire.Build(provideConfig, storeSet, indexSet))
}

func asker(ctx context.Context, lg gke.Logger) (*askJob, func(), error) {
	panic(wire.Build(provideConfig, storeSet, indexSet, answerSet, provideAskJob))
}

func server(ctx context.Context, lg gke.Logger, o overrides) (*serveJob, func(), error) {
	panic(wire.Build(provideConfig, storeSet, refreshSet, indexSet, answerSet, provideHandler, provideServeJob))
}
