package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"

	"hotel_ops/internal/domain"
)

// SeedData is the JSON document accepted by the seeder.
type SeedData struct {
	Categories []struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
	} `json:"categories"`
	Rooms []struct {
		Number       string           `json:"number"`
		Category     string           `json:"category"`
		BasePrice    decimal.Decimal  `json:"base_price"`
		SeasonalRate *decimal.Decimal `json:"seasonal_rate"`
		Multiplier   *decimal.Decimal `json:"multiplier"`
		Available    *bool            `json:"available"`
	} `json:"rooms"`
	Guests []GuestInput `json:"guests"`
}

func ParseSeed(r io.Reader) (SeedData, error) {
	var d SeedData
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return SeedData{}, invalidArg("seed file: %v", err)
	}
	return d, nil
}

type SeedReport struct {
	Created int64
	Skipped int64 // already present
	Failed  int64
}

// Seeder loads reference data. Re-running it skips rows that already exist.
type Seeder struct {
	rooms  *RoomService
	guests *GuestService
}

func NewSeeder(r *RoomService, g *GuestService) *Seeder {
	return &Seeder{rooms: r, guests: g}
}

func (s *Seeder) Import(ctx context.Context, d SeedData, workers int) (SeedReport, error) {
	var rep SeedReport
	tally := func(kind, key string, err error) {
		switch {
		case err == nil:
			atomic.AddInt64(&rep.Created, 1)
			log.Info().Str("kind", kind).Str("key", key).Msg("seeded")
		case errors.Is(err, domain.ErrConflict):
			atomic.AddInt64(&rep.Skipped, 1)
			log.Debug().Str("kind", kind).Str("key", key).Msg("already present")
		default:
			atomic.AddInt64(&rep.Failed, 1)
			log.Warn().Err(err).Str("kind", kind).Str("key", key).Msg("seed failed")
		}
	}

	// categories first; rooms reference them by name
	for _, c := range d.Categories {
		_, err := s.rooms.CreateCategory(ctx, c.Name, c.Description)
		tally("category", c.Name, err)
	}
	cats, err := s.rooms.ListCategories(ctx)
	if err != nil {
		return rep, err
	}
	catID := make(map[string]int64, len(cats))
	for _, c := range cats {
		catID[strings.ToLower(c.Name)] = c.ID
	}

	if workers < 1 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup
	run := func(fn func()) error {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			fn()
		}()
		return nil
	}

	for _, r := range d.Rooms {
		r := r
		id, ok := catID[strings.ToLower(r.Category)]
		if !ok {
			tally("room", r.Number, fmt.Errorf("category %q: %w", r.Category, domain.ErrNotFound))
			continue
		}
		if err := run(func() {
			_, err := s.rooms.CreateRoom(ctx, RoomInput{
				Number:       r.Number,
				BasePrice:    r.BasePrice,
				CategoryID:   id,
				Available:    r.Available,
				SeasonalRate: r.SeasonalRate,
				Multiplier:   r.Multiplier,
			})
			tally("room", r.Number, err)
		}); err != nil {
			wg.Wait()
			return rep, err
		}
	}
	for _, g := range d.Guests {
		g := g
		if err := run(func() {
			_, err := s.guests.Register(ctx, g)
			tally("guest", g.Email, err)
		}); err != nil {
			wg.Wait()
			return rep, err
		}
	}
	wg.Wait()
	return rep, nil
}
