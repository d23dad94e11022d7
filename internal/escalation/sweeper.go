// Package escalation reminds department heads about suggestions left pending.
package escalation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/suggestion-box/internal/domain"
	"github.com/spec-kit/suggestion-box/internal/notify"
	"github.com/spec-kit/suggestion-box/internal/observability"
	"github.com/spec-kit/suggestion-box/internal/repository"
)

// Config tunes the sweep schedule and the age of each reminder stage.
type Config struct {
	Interval    time.Duration
	FirstAfter  time.Duration
	SecondAfter time.Duration
}

const defaultSendTimeout = 30 * time.Second

// StageReport summarizes one reminder stage of a run. Reminded counts
// flagged suggestions; Queued counts reminder emails handed to the
// background sender.
type StageReport struct {
	Stage    domain.AlertStage
	Reminded int
	Heads    int
	Queued   int
}

// Report summarizes a run. Skipped is set when another run held the lock.
type Report struct {
	Skipped bool
	Stages  []StageReport
}

// Sweeper sends batched reminders per department head and flags the
// reminded suggestions so each stage fires once per suggestion.
type Sweeper struct {
	repo     repository.SuggestionRepository
	notifier notify.Notifier
	cfg      Config
	logger   *zap.Logger
	metrics  *observability.Metrics
	locker   Locker
	now      func() time.Time
	timeout  time.Duration
	running  atomic.Bool
	inflight sync.WaitGroup
}

type reminder struct {
	stage domain.AlertStage
	head  string
	msg   notify.Message
}

// Option customizes a Sweeper.
type Option func(*Sweeper)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// WithLocker adds a cross-process lock on top of the in-process guard.
func WithLocker(l Locker) Option {
	return func(s *Sweeper) { s.locker = l }
}

// WithMetrics records runs and reminder counts.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Sweeper) { s.metrics = m }
}

// WithSendTimeout bounds each background reminder send.
func WithSendTimeout(d time.Duration) Option {
	return func(s *Sweeper) { s.timeout = d }
}

// NewSweeper builds a sweeper.
func NewSweeper(repo repository.SuggestionRepository, notifier notify.Notifier, cfg Config, logger *zap.Logger, opts ...Option) *Sweeper {
	s := &Sweeper{
		repo:     repo,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		timeout:  defaultSendTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs a sweep every cfg.Interval until ctx is done. The first sweep
// happens one interval after Start.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info("escalation sweeper started", zap.Duration("interval", s.cfg.Interval))
	for {
		select {
		case <-ctx.Done():
			s.Wait()
			s.logger.Info("escalation sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.Error("escalation sweep failed", zap.Error(err))
			}
		}
	}
}

// Wait blocks until every queued reminder send has finished.
func (s *Sweeper) Wait() {
	s.inflight.Wait()
}

// RunOnce performs a single sweep over both reminder stages. Suggestions
// are flagged before their reminders go out; the emails are sent in the
// background so a slow relay never holds the run open. A run that starts
// while another is in progress returns immediately with Skipped.
func (s *Sweeper) RunOnce(ctx context.Context) (Report, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("previous escalation sweep still running; skipping")
		s.metrics.RecordSweep("skipped")
		return Report{Skipped: true}, nil
	}
	defer s.running.Store(false)

	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx)
		switch {
		case err != nil:
			s.logger.Warn("sweep lock unavailable; continuing with local guard only", zap.Error(err))
		case !ok:
			s.logger.Info("escalation sweep held by another instance; skipping")
			s.metrics.RecordSweep("skipped")
			return Report{Skipped: true}, nil
		default:
			defer release()
		}
	}

	now := s.now()
	var (
		report Report
		batch  []reminder
		errs   []error
	)
	for _, stage := range []struct {
		stage domain.AlertStage
		after time.Duration
	}{
		{domain.AlertFirstReminder, s.cfg.FirstAfter},
		{domain.AlertSecondReminder, s.cfg.SecondAfter},
	} {
		sr, queued, err := s.runStage(ctx, stage.stage, stage.after, now)
		report.Stages = append(report.Stages, sr)
		batch = append(batch, queued...)
		if err != nil {
			errs = append(errs, err)
		}
	}
	s.deliver(ctx, batch)

	if err := errors.Join(errs...); err != nil {
		s.metrics.RecordSweep("failed")
		return report, err
	}
	s.metrics.RecordSweep("completed")
	return report, nil
}

func (s *Sweeper) runStage(ctx context.Context, stage domain.AlertStage, after time.Duration, now time.Time) (StageReport, []reminder, error) {
	report := StageReport{Stage: stage}
	stale, err := s.repo.ListStale(ctx, repository.StaleFilter{Stage: stage, CreatedBefore: now.Add(-after)})
	if err != nil {
		return report, nil, fmt.Errorf("%s: list stale: %w", stage, err)
	}
	if len(stale) == 0 {
		return report, nil, nil
	}

	heads, groups := groupByHead(stale)
	days := int(after / (24 * time.Hour))
	var queued []reminder
	for _, head := range heads {
		items := groups[head]
		ids := make([]string, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.ID.Hex())
		}
		log := s.logger.With(zap.String("stage", stage.String()), zap.String("department_head", head), zap.Int("count", len(items)))

		if err := s.repo.MarkAlerted(ctx, ids, stage); err != nil {
			return report, queued, fmt.Errorf("%s: mark %s: %w", stage, head, err)
		}
		report.Heads++
		report.Reminded += len(items)
		s.metrics.RecordReminders(stage.String(), len(items))

		if head == "" {
			log.Warn("pending suggestions have no department head; marked without reminder")
			continue
		}
		msg, err := notify.ReminderMessage(head, days, items)
		if err != nil {
			log.Error("render reminder", zap.Error(err))
			continue
		}
		queued = append(queued, reminder{stage: stage, head: head, msg: msg})
		report.Queued++
	}
	return report, queued, nil
}

// deliver sends batch in order on a single goroutine. Each send gets its
// own timeout and is detached from ctx cancellation.
func (s *Sweeper) deliver(ctx context.Context, batch []reminder) {
	if len(batch) == 0 {
		return
	}
	base := context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		for _, r := range batch {
			sendCtx, cancel := context.WithTimeout(base, s.timeout)
			err := s.notifier.Send(sendCtx, r.msg)
			cancel()

			log := s.logger.With(zap.String("stage", r.stage.String()), zap.String("department_head", r.head))
			if err != nil {
				log.Error("reminder send failed", zap.Error(err))
				continue
			}
			log.Info("reminder sent")
		}
	}()
}

// groupByHead buckets suggestions per head, keeping query order inside a
// bucket. Heads are returned sorted.
func groupByHead(items []domain.Suggestion) ([]string, map[string][]domain.Suggestion) {
	groups := make(map[string][]domain.Suggestion)
	for _, item := range items {
		groups[item.DepartmentHead] = append(groups[item.DepartmentHead], item)
	}
	heads := make([]string, 0, len(groups))
	for head := range groups {
		heads = append(heads, head)
	}
	sort.Strings(heads)
	return heads, groups
}
