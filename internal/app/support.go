package app

import (
	"context"

	"hotel_ops/internal/domain"
)

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.Event) error { return nil }

type noLock struct{}

func (noLock) Lock(context.Context, int64) (func(), error) { return func() {}, nil }

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// NormalizePage applies the default and maximum page sizes used by list endpoints.
func NormalizePage(pg domain.PageQuery) domain.PageQuery {
	switch {
	case pg.Limit <= 0:
		pg.Limit = DefaultPageLimit
	case pg.Limit > MaxPageLimit:
		pg.Limit = MaxPageLimit
	}
	return pg
}
