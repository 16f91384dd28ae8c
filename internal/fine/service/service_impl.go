package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hydranet/hydrabill/internal/clock"
	"github.com/hydranet/hydrabill/internal/fine/domain"
	"github.com/hydranet/hydrabill/internal/fine/repository"
	"github.com/hydranet/hydrabill/internal/notification"
	settingsdomain "github.com/hydranet/hydrabill/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// defaultBatchLimit bounds one assessment sweep. Remaining candidates are
// picked up by the next scheduled run.
const defaultBatchLimit = 500

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     repository.Repository
	Settings settingsdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     repository.Repository
	settings settingsdomain.Service
	limit    int
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("fine"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		settings: p.Settings,
		limit:    defaultBatchLimit,
	}
}

type policy struct {
	graceDays    int64
	isPercentage bool
	ratePercent  int64
	fixedAmount  int64
	minimum      int64
}

func (s *Service) loadPolicy(ctx context.Context) (policy, error) {
	var p policy
	var err error
	if p.graceDays, err = s.settings.Int64(ctx, settingsdomain.KeyFineGraceDays); err != nil {
		return p, fmt.Errorf("read fine_grace_days: %w", err)
	}
	if p.isPercentage, err = s.settings.Bool(ctx, settingsdomain.KeyFineIsPercentage); err != nil {
		return p, fmt.Errorf("read fine_is_percentage: %w", err)
	}
	if p.ratePercent, err = s.settings.Int64(ctx, settingsdomain.KeyFineRatePercent); err != nil {
		return p, fmt.Errorf("read fine_rate_percent: %w", err)
	}
	if p.fixedAmount, err = s.settings.Int64(ctx, settingsdomain.KeyFineFixedAmount); err != nil {
		return p, fmt.Errorf("read fine_fixed_amount: %w", err)
	}
	if p.minimum, err = s.settings.Int64(ctx, settingsdomain.KeyFineMinimumAmount); err != nil {
		return p, fmt.Errorf("read fine_minimum_amount: %w", err)
	}
	return p, nil
}

func (s *Service) AssessOverdue(ctx context.Context) (domain.AssessSummary, error) {
	var summary domain.AssessSummary

	pol, err := s.loadPolicy(ctx)
	if err != nil {
		return summary, err
	}

	// A bill is eligible only once its grace period has fully elapsed:
	// due_date + grace_days strictly before today. Comparing against a
	// day-truncated cutoff keeps the boundary day ineligible.
	now := s.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	cutoff := today.AddDate(0, 0, -int(pol.graceDays))

	candidates, err := s.repo.ListCandidates(ctx, s.db, cutoff, s.limit)
	if err != nil {
		return summary, fmt.Errorf("list overdue candidates: %w", err)
	}
	summary.Eligible = len(candidates)

	for _, cand := range candidates {
		applied, msg, err := s.assessOne(ctx, cand, pol, now)
		switch {
		case err != nil:
			summary.Failed++
			s.log.Error("fine assessment failed",
				zap.String("bill_number", cand.BillNumber),
				zap.Error(err),
			)
		case !applied:
			summary.Skipped++
		default:
			summary.Applied++
			if cand.Phone != "" {
				summary.Notifications = append(summary.Notifications, msg)
			}
		}
	}

	s.log.Info("fine assessment run complete",
		zap.Time("cutoff", cutoff),
		zap.Int("eligible", summary.Eligible),
		zap.Int("applied", summary.Applied),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (s *Service) assessOne(ctx context.Context, cand repository.Candidate, pol policy, now time.Time) (bool, notification.Message, error) {
	var msg notification.Message

	exists, err := s.repo.HasActiveFine(ctx, s.db, cand.BillID)
	if err != nil {
		return false, msg, err
	}
	if exists {
		s.log.Debug("fine already applied", zap.String("bill_number", cand.BillNumber))
		return false, msg, nil
	}

	amount := pol.fixedAmount
	if pol.isPercentage {
		amount = cand.TotalAmount * pol.ratePercent / 100
	}
	if amount < pol.minimum {
		s.log.Debug("fine below minimum",
			zap.String("bill_number", cand.BillNumber),
			zap.Int64("amount", amount),
		)
		return false, msg, nil
	}

	fine := &domain.Fine{
		ID:          s.genID.Generate(),
		CustomerID:  cand.CustomerID,
		BillID:      cand.BillID,
		FineType:    domain.FineTypeLatePayment,
		Amount:      amount,
		Reason:      fmt.Sprintf("Late payment fine for %s", cand.BillNumber),
		AppliedDate: now,
		Status:      domain.FineStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Apply(ctx, s.db, fine); err != nil {
		if errors.Is(err, domain.ErrFineExists) {
			s.log.Debug("fine already applied", zap.String("bill_number", cand.BillNumber))
			return false, msg, nil
		}
		return false, msg, err
	}

	newBalance := (cand.TotalAmount - cand.AmountPaid) + amount
	msg = notification.Message{
		Recipient:    cand.Phone,
		TemplateType: notification.TemplateFineApplied,
		Variables: map[string]any{
			"customer_name": cand.CustomerName,
			"bill_number":   cand.BillNumber,
			"fine_amount":   amount,
			"reason":        fine.Reason,
			"new_balance":   newBalance,
		},
	}
	return true, msg, nil
}
