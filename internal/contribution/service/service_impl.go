package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/hydranet/hydrabill/internal/billing/domain"
	"github.com/hydranet/hydrabill/internal/clock"
	"github.com/hydranet/hydrabill/internal/contribution/domain"
	"github.com/hydranet/hydrabill/internal/contribution/repository"
	customerdomain "github.com/hydranet/hydrabill/internal/customer/domain"
	"github.com/hydranet/hydrabill/internal/notification"
	settingsdomain "github.com/hydranet/hydrabill/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     repository.Repository
	Customer customerdomain.Repository
	Settings settingsdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     repository.Repository
	customer customerdomain.Repository
	settings settingsdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("contribution"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		customer: p.Customer,
		settings: p.Settings,
	}
}

func (s *Service) GenerateForMonth(ctx context.Context, req domain.GenerateRequest) (domain.GenerateSummary, error) {
	var summary domain.GenerateSummary

	if req.Month.IsZero() {
		return summary, billingdomain.ErrInvalidMonth
	}
	month := billingdomain.NormalizeMonth(req.Month)

	amount, err := s.settings.Int64(ctx, settingsdomain.KeyContributionMonthlyAmount)
	if err != nil {
		return summary, fmt.Errorf("read contribution_monthly_amount: %w", err)
	}
	dueDays, err := s.settings.Int64(ctx, settingsdomain.KeyContributionDueDays)
	if err != nil {
		return summary, fmt.Errorf("read contribution_due_days: %w", err)
	}

	customers, err := s.customer.ListActive(ctx, s.db, req.CustomerIDs)
	if err != nil {
		return summary, fmt.Errorf("list active customers: %w", err)
	}
	summary.Eligible = len(customers)

	for _, cust := range customers {
		inserted, err := s.generateOne(ctx, cust.ID, month, amount, dueDays)
		switch {
		case err != nil:
			summary.Failed++
			s.log.Error("contribution generation failed",
				zap.String("account_number", cust.AccountNumber),
				zap.Time("contribution_month", month),
				zap.Error(err),
			)
		case !inserted:
			summary.Skipped++
		default:
			summary.Generated++
			if cust.Phone != "" {
				summary.Notifications = append(summary.Notifications, notification.Message{
					Recipient:    cust.Phone,
					TemplateType: notification.TemplateContributionDue,
					Variables: map[string]any{
						"customer_name":      cust.Name,
						"contribution_month": month.Format("2006-01"),
						"amount_required":    amount,
						"due_date":           month.AddDate(0, 0, int(dueDays)).Format("2006-01-02"),
					},
				})
			}
		}
	}

	s.log.Info("contribution generation run complete",
		zap.Time("contribution_month", month),
		zap.Int("eligible", summary.Eligible),
		zap.Int("generated", summary.Generated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (s *Service) generateOne(ctx context.Context, customerID snowflake.ID, month time.Time, amount int64, dueDays int64) (bool, error) {
	exists, err := s.repo.ExistsForMonth(ctx, s.db, customerID, month)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	now := s.clock.Now()
	return s.repo.Insert(ctx, s.db, &domain.Contribution{
		ID:                s.genID.Generate(),
		CustomerID:        customerID,
		ContributionMonth: month,
		AmountRequired:    amount,
		DueDate:           month.AddDate(0, 0, int(dueDays)),
		Status:            domain.ContributionStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
}
