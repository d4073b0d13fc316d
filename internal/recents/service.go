package recents

import (
	"context"
	"slices"
	"sync"
	"time"

	appLog "recents/internal/log"
	"recents/internal/model"
	"recents/internal/timeconv"
)

// Source yields a CDR payload for a query. *Fetcher implements it.
type Source interface {
	Fetch(ctx context.Context, q Query) (FetchResult, error)
}

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Source   Source
	Codec    timeconv.Codec
	Calendar timeconv.Calendar
	Texts    Texts

	BackfillDays int
	Limit        int

	// Now defaults to time.Now.
	Now func() time.Time
}

// Snapshot is the result of the last successful refresh.
type Snapshot struct {
	Calls     []model.Call
	FetchedAt time.Time
	FromCache bool
}

// Service keeps the latest recent-calls snapshot and labels it on read,
// so "today" rolls over at midnight without another fetch.
type Service struct {
	cfg ServiceConfig

	mu   sync.RWMutex
	snap *Snapshot
}

// NewService returns a Service with no snapshot; call Refresh to fill it.
// Missing Now and BackfillDays default to time.Now and 7.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.BackfillDays <= 0 {
		cfg.BackfillDays = 7
	}
	return &Service{cfg: cfg}
}

// Since is the lower bound of a refresh started at now: midnight of the
// day BackfillDays before now in the display location. Aligning to
// midnight keeps the request URL, and therefore its HTTP cache entry,
// stable over a day.
func (s *Service) Since(now time.Time) time.Time {
	loc := s.cfg.Calendar.Location
	if loc == nil {
		loc = time.Local
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d-s.cfg.BackfillDays, 0, 0, 0, 0, loc)
}

// Refresh fetches and decodes the recent calls and replaces the snapshot.
// On error the previous snapshot is kept.
func (s *Service) Refresh(ctx context.Context) error {
	now := s.cfg.Now()
	q := Query{Since: s.Since(now), Limit: s.cfg.Limit}

	res, err := s.cfg.Source.Fetch(ctx, q)
	if err != nil {
		appLog.Error("recents refresh: fetch failed", err, "since", s.cfg.Codec.Format(q.Since))
		return err
	}

	calls, err := ParseRecords(res.Body, s.cfg.Codec)
	if err != nil {
		appLog.Error("recents refresh: parse failed", err)
		return err
	}

	s.mu.Lock()
	s.snap = &Snapshot{Calls: calls, FetchedAt: now, FromCache: res.FromCache}
	s.mu.Unlock()

	appLog.Info("recents refresh completed", "calls", len(calls), "from_cache", res.FromCache)
	return nil
}

// Snapshot returns the last refresh result, or nil before the first one.
func (s *Service) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Rows labels the current snapshot against the clock.
func (s *Service) Rows() []Row {
	snap := s.Snapshot()
	if snap == nil {
		return []Row{}
	}
	return BuildRows(snap.Calls, s.cfg.Now(), s.cfg.Calendar, s.cfg.Texts)
}

// Calls returns a copy of the calls in the current snapshot.
func (s *Service) Calls() []model.Call {
	snap := s.Snapshot()
	if snap == nil {
		return nil
	}
	return slices.Clone(snap.Calls)
}

// Codec returns the API timestamp codec the service decodes with.
func (s *Service) Codec() timeconv.Codec {
	return s.cfg.Codec
}

// Calendar returns the display calendar rows are labelled with.
func (s *Service) Calendar() timeconv.Calendar {
	return s.cfg.Calendar
}

// Now reads the service clock.
func (s *Service) Now() time.Time {
	return s.cfg.Now()
}

// Texts returns the translation source for captions.
func (s *Service) Texts() Texts {
	return s.cfg.Texts
}
