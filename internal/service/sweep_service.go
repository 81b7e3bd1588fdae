package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/campus-support/internal/domain"
	"github.com/spec-kit/campus-support/internal/observability"
	"github.com/spec-kit/campus-support/internal/repository"
	"github.com/spec-kit/campus-support/internal/tat"
)

// SweepLocker hands out an expiring lease so only one sweep runs at a time.
type SweepLocker interface {
	AcquireLease(ctx context.Context, key string, ttl time.Duration) (bool, func(context.Context) error, error)
}

// SweepFailure records one ticket the sweep could not escalate.
type SweepFailure struct {
	TicketID string `json:"ticket_id"`
	Error    string `json:"error"`
}

// SweepReport summarizes a sweep run.
type SweepReport struct {
	Skipped   bool           `json:"skipped"`
	Scanned   int            `json:"scanned"`
	Escalated int            `json:"escalated"`
	NotNeeded int            `json:"not_needed"`
	Failed    int            `json:"failed"`
	Failures  []SweepFailure `json:"failures,omitempty"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
}

// SweepService escalates tickets whose SLA deadlines have lapsed.
type SweepService struct {
	uow         repository.UnitOfWork
	escalations *EscalationService
	calendar    *tat.Calendar
	locker      SweepLocker
	lockKey     string
	lockTTL     time.Duration
	batchSize   int
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// SweepDependencies bundles collaborators for the sweep.
type SweepDependencies struct {
	UnitOfWork  repository.UnitOfWork
	Escalations *EscalationService
	Calendar    *tat.Calendar
	Locker      SweepLocker
	LockKey     string
	LockTTL     time.Duration
	BatchSize   int
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewSweepService constructs the sweep.
func NewSweepService(deps SweepDependencies) *SweepService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	calendar := deps.Calendar
	if calendar == nil {
		calendar = tat.NewCalendar(nil, nil)
	}
	lockKey := deps.LockKey
	if lockKey == "" {
		lockKey = "locks:escalation-sweep"
	}
	lockTTL := deps.LockTTL
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}
	batchSize := deps.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	return &SweepService{
		uow:         deps.UnitOfWork,
		escalations: deps.Escalations,
		calendar:    calendar,
		locker:      deps.Locker,
		lockKey:     lockKey,
		lockTTL:     lockTTL,
		batchSize:   batchSize,
		metrics:     deps.Metrics,
		logger:      logger,
	}
}

// RunEscalationSweep escalates every overdue ticket once. Candidates are read
// in id-ordered pages of the batch size, so tickets that keep failing cannot
// crowd later ones out of a run. Failures on one ticket are recorded and do
// not stop the rest.
func (s *SweepService) RunEscalationSweep(ctx context.Context) (SweepReport, error) {
	started := time.Now()
	report := SweepReport{StartedAt: s.calendar.Now()}

	if s.locker != nil {
		acquired, release, err := s.locker.AcquireLease(ctx, s.lockKey, s.lockTTL)
		switch {
		case err != nil:
			s.logger.Warn("sweep lease unavailable, continuing without it", zap.Error(err))
		case !acquired:
			s.logger.Info("escalation sweep already running, skipping")
			report.Skipped = true
			s.metrics.RecordSweep(observability.SweepOutcomeSkipped, 0, 0)
			return report, nil
		default:
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					s.logger.Warn("release sweep lease", zap.Error(err))
				}
			}()
		}
	}

	now := s.calendar.Now()
	tickets := s.uow.Repositories().Tickets
	afterID := ""
	for {
		page, err := tickets.ListBreachCandidates(ctx, now, afterID, s.batchSize)
		if err != nil {
			report.Duration = time.Since(started)
			s.metrics.RecordSweep(observability.SweepOutcomeFailed, report.Duration, report.Failed)
			return report, fmt.Errorf("list overdue tickets: %w", err)
		}
		report.Scanned += len(page)

		for i := range page {
			if err := ctx.Err(); err != nil {
				report.Duration = time.Since(started)
				s.metrics.RecordSweep(observability.SweepOutcomeFailed, report.Duration, report.Failed)
				return report, err
			}
			s.sweepTicket(ctx, &page[i], now, &report)
		}

		if len(page) < s.batchSize {
			break
		}
		afterID = page[len(page)-1].ID
	}

	report.Duration = time.Since(started)
	s.metrics.RecordSweep(observability.SweepOutcomeCompleted, report.Duration, report.Failed)
	s.logger.Info("escalation sweep finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("escalated", report.Escalated),
		zap.Int("not_needed", report.NotNeeded),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration))
	return report, nil
}

func (s *SweepService) sweepTicket(ctx context.Context, ticket *domain.Ticket, now time.Time, report *SweepReport) {
	trigger, reason, ok := breachTrigger(ticket, now)
	if !ok {
		report.NotNeeded++
		return
	}
	_, err := s.escalations.Escalate(ctx, EscalationRequest{
		TicketID: ticket.ID,
		Reason:   reason,
		Trigger:  trigger,
		Precondition: func(locked *domain.Ticket, lockedAt time.Time) error {
			current, _, ok := breachTrigger(locked, lockedAt)
			if !ok || current != trigger {
				return ErrEscalationNotNeeded
			}
			return nil
		},
	})
	switch {
	case err == nil:
		report.Escalated++
	case errors.Is(err, ErrEscalationNotNeeded):
		report.NotNeeded++
	default:
		report.Failed++
		report.Failures = append(report.Failures, SweepFailure{TicketID: ticket.ID, Error: err.Error()})
		s.logger.Error("escalate overdue ticket",
			zap.String("ticket_id", ticket.ID),
			zap.String("trigger", string(trigger)),
			zap.Error(err))
	}
}
