// Package pipeline runs one digest cycle: collect, select, fetch, classify, persist,
// prioritize, summarize and deliver.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"

	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/change"
	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/domain"
	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/relevance"
)

//go:generate moq -out mocks/source.go -pkg mocks -skip-ensure -fmt goimports . Source
//go:generate moq -out mocks/fetcher.go -pkg mocks -skip-ensure -fmt goimports . Fetcher
//go:generate moq -out mocks/summarizer.go -pkg mocks -skip-ensure -fmt goimports . Summarizer
//go:generate moq -out mocks/notifier.go -pkg mocks -skip-ensure -fmt goimports . Notifier
//go:generate moq -out mocks/store.go -pkg mocks -skip-ensure -fmt goimports . Store

// ErrBusy is returned when a run is requested while another one is active
var ErrBusy = errors.New("run already in progress")

// Source provides raw items
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.Item, error)
}

// Fetcher retrieves the full text of an item, degrading instead of failing
type Fetcher interface {
	Fetch(ctx context.Context, item domain.Item) domain.FullText
}

// Summarizer produces a summary of a change, falling back to a fixed notice instead of failing
type Summarizer interface {
	Summarize(ctx context.Context, req domain.SummaryRequest) domain.Summary
}

// Notifier delivers a digest
type Notifier interface {
	Deliver(ctx context.Context, d domain.Digest) error
}

// Store persists records between runs
type Store interface {
	Load(ctx context.Context) domain.Records
	Save(ctx context.Context, records domain.Records) error
}

// Gate decides whether a scheduled trigger is the authoritative run of the day
type Gate interface {
	ShouldRunNow(now time.Time) bool
	Date(now time.Time) string
}

// Trigger tells how a run was started
type Trigger string

// enum of triggers
const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
)

// Params of the service. Notifier is optional; without it the digest is built but not delivered.
type Params struct {
	Source        Source
	Scorer        *relevance.Scorer
	Fetcher       Fetcher
	Summarizer    Summarizer
	Notifier      Notifier
	Store         Store
	Gate          Gate
	MaxCandidates int  // cap of new and updated items in the digest, 0 for no cap
	MaxConcurrent int  // full-text fetch parallelism
	AlwaysSend    bool // deliver even when nothing changed
	DryRun        bool // build the digest without saving state or delivering
	Now           func() time.Time
}

// Result describes a finished or skipped run
type Result struct {
	Trigger    Trigger       `json:"trigger"`
	Skipped    string        `json:"skipped,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Digest     domain.Digest `json:"-"`
	Stats      domain.Stats  `json:"stats"`
	Delivered  bool          `json:"delivered"`
	SaveErr    error         `json:"-"`
	DeliverErr error         `json:"-"`
}

// Service runs the pipeline, one run at a time
type Service struct {
	Params

	runLock sync.Mutex

	mu                sync.RWMutex
	last              *Result
	lastDigest        *domain.Digest
	lastScheduledDate string
}

// NewService makes a pipeline service
func NewService(p Params) *Service {
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.MaxConcurrent <= 0 {
		p.MaxConcurrent = 1
	}
	return &Service{Params: p}
}

// Run executes a single run. Scheduled runs pass through the gate and are refused when an
// authoritative run already happened for the same local date; manual runs always proceed.
// Returns ErrBusy if another run is active.
func (s *Service) Run(ctx context.Context, trigger Trigger) (Result, error) {
	if !s.runLock.TryLock() {
		return Result{}, ErrBusy
	}
	defer s.runLock.Unlock()

	now := s.Now()
	date := s.Gate.Date(now)
	res := Result{Trigger: trigger, StartedAt: now}

	if trigger == TriggerScheduled {
		if !s.Gate.ShouldRunNow(now) {
			res.Skipped = "outside send window"
			log.Printf("[DEBUG] scheduled trigger at %s skipped, %s", now.Format(time.RFC3339), res.Skipped)
			return res, nil
		}
		s.mu.RLock()
		done := s.lastScheduledDate == date
		s.mu.RUnlock()
		if done {
			res.Skipped = "already ran for " + date
			log.Printf("[INFO] scheduled trigger skipped, %s", res.Skipped)
			return res, nil
		}
	}

	log.Printf("[INFO] %s run started for %s", trigger, date)
	d, saveErr, err := s.buildDigest(ctx, date)
	res.Digest, res.Stats, res.SaveErr = d, d.Stats, saveErr
	if err != nil {
		return res, fmt.Errorf("run interrupted: %w", err)
	}

	// state is saved at this point, the digest has to go out even on shutdown
	deliverCtx := ctx
	if ctx.Err() != nil {
		log.Printf("[WARN] run cancelled after state was saved, delivering anyway")
		deliverCtx = context.WithoutCancel(ctx)
	}
	res.Delivered, res.DeliverErr = s.deliver(deliverCtx, d)
	res.Duration = s.Now().Sub(now)

	s.mu.Lock()
	s.last, s.lastDigest = &res, &d
	if trigger == TriggerScheduled && !s.DryRun && res.DeliverErr == nil {
		s.lastScheduledDate = date
	}
	s.mu.Unlock()

	log.Printf("[INFO] %s run finished in %v: %d new, %d updated, %d unchanged, %d capped, delivered %v",
		trigger, res.Duration, d.Stats.New, d.Stats.Updated, d.Stats.Unchanged, d.Stats.Capped, res.Delivered)
	return res, nil
}

// LastResult returns the latest completed run, nil before the first one
func (s *Service) LastResult() *Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil
	}
	res := *s.last
	return &res
}

// LastDigest returns the digest of the latest completed run
func (s *Service) LastDigest() (domain.Digest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastDigest == nil {
		return domain.Digest{}, false
	}
	return *s.lastDigest, true
}

// Records returns the persisted state
func (s *Service) Records(ctx context.Context) domain.Records {
	return s.Store.Load(ctx)
}

// buildDigest runs everything up to delivery. saveErr is the state save failure, which never
// aborts the run. err is set when ctx was cancelled before the state was saved; nothing is
// persisted then, so the interrupted items are seen again as new by the next run.
func (s *Service) buildDigest(ctx context.Context, date string) (d domain.Digest, saveErr, err error) {
	d = domain.Digest{Date: date}

	items, fetchErr := s.Source.Fetch(ctx)
	if fetchErr != nil {
		log.Printf("[WARN] collect from %s: %v", s.Source.Name(), fetchErr)
	}
	d.Stats.Fetched = len(items)

	candidates := s.Scorer.Select(items)
	d.Stats.Candidates = len(candidates)

	texts := s.fetchTexts(ctx, candidates)

	records := s.Store.Load(ctx)
	changes := make([]domain.Change, 0, len(candidates))
	textByKey := make(map[string]string, len(candidates))
	for i, c := range candidates {
		ft := texts[i]
		textByKey[c.Key.ID] = ft.Text
		fp := change.Fingerprint(ft.Text)
		out := change.Classify(records, change.Observation{
			Key:         c.Key,
			Fingerprint: fp,
			Hint:        ft.Hint,
			Title:       c.Title,
			Source:      c.Source,
		}, date)
		if ft.Degraded {
			d.Stats.Degraded++
		}

		switch out.Status {
		case domain.StatusNew:
			d.Stats.New++
		case domain.StatusUpdated:
			d.Stats.Updated++
		default:
			d.Stats.Unchanged++
			continue
		}
		changes = append(changes, domain.Change{
			Candidate:         c,
			Status:            out.Status,
			Fingerprint:       fp,
			Hint:              ft.Hint,
			PreviouslyCovered: out.PreviouslyCovered,
			Degraded:          ft.Degraded,
		})
	}

	if err := ctx.Err(); err != nil {
		log.Printf("[WARN] run cancelled before saving state, %d changes dropped", len(changes))
		return d, nil, err
	}

	if s.DryRun {
		log.Printf("[INFO] dry run, state not saved")
	} else if saveErr = s.Store.Save(ctx, records); saveErr != nil {
		log.Printf("[ERROR] failed to save state: %v", saveErr)
	}

	kept, overflow := relevance.Prioritize(changes, s.MaxCandidates)
	d.Stats.Capped = len(overflow)
	for _, c := range overflow {
		log.Printf("[DEBUG] capped out, score %d: %s", c.Score, c.Title)
	}
	if len(overflow) > 0 {
		log.Printf("[INFO] %d changes left out of the digest by max_candidates %d", len(overflow), s.MaxCandidates)
	}

	for i, c := range kept {
		entry := domain.DigestEntry{Change: c, Summary: s.Summarizer.Summarize(ctx, domain.SummaryRequest{
			Title:    c.Title,
			Source:   c.Source,
			URL:      c.Key.URL,
			Text:     textByKey[c.Key.ID],
			IsUpdate: c.Status == domain.StatusUpdated,
		})}
		log.Printf("[DEBUG] summarized %d/%d: %s", i+1, len(kept), c.Title)
		if c.Status == domain.StatusUpdated {
			d.Updated = append(d.Updated, entry)
			continue
		}
		d.New = append(d.New, entry)
	}
	return d, saveErr, nil
}

// fetchTexts retrieves full texts in parallel into slots matching candidate order
func (s *Service) fetchTexts(ctx context.Context, candidates []domain.Candidate) []domain.FullText {
	texts := make([]domain.FullText, len(candidates))
	var g errgroup.Group
	g.SetLimit(s.MaxConcurrent)
	for i, c := range candidates {
		g.Go(func() error {
			texts[i] = s.Fetcher.Fetch(ctx, c.Item)
			return nil
		})
	}
	_ = g.Wait() // fetcher degrades instead of returning errors
	return texts
}

// deliver sends the digest unless it is empty and always_send is off, or this is a dry run
func (s *Service) deliver(ctx context.Context, d domain.Digest) (bool, error) {
	switch {
	case d.IsEmpty() && !s.AlwaysSend:
		log.Printf("[INFO] nothing new or updated, delivery skipped")
		return false, nil
	case s.DryRun:
		log.Printf("[INFO] dry run, delivery skipped")
		return false, nil
	case s.Notifier == nil:
		log.Printf("[INFO] no notifier configured, delivery skipped")
		return false, nil
	}

	if err := s.Notifier.Deliver(ctx, d); err != nil {
		log.Printf("[ERROR] failed to deliver digest: %v", err)
		return false, err
	}
	return true, nil
}
