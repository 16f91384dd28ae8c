package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hydranet/hydrabill/internal/billing/domain"
	"github.com/hydranet/hydrabill/internal/billing/repository"
	"github.com/hydranet/hydrabill/internal/clock"
	customerdomain "github.com/hydranet/hydrabill/internal/customer/domain"
	"github.com/hydranet/hydrabill/internal/notification"
	settingsdomain "github.com/hydranet/hydrabill/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxNumberRetries bounds the suffix search for a free bill number within a
// period. Numbers collide only when a previous run died between number
// reservation attempts, so a handful of retries is plenty.
const maxNumberRetries = 5

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
		log:      p.Log.Named("billing"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		customer: p.Customer,
		settings: p.Settings,
	}
}

type rates struct {
	standard    int64
	institution int64
	dueDays     int64
}

// loadRates reads every setting the run depends on up front. A failed read
// aborts the whole run rather than silently billing with stale or default
// values.
func (s *Service) loadRates(ctx context.Context) (rates, error) {
	var r rates
	var err error
	if r.standard, err = s.settings.Int64(ctx, settingsdomain.KeyBillingRateStandard); err != nil {
		return r, fmt.Errorf("read billing_rate_standard: %w", err)
	}
	if r.institution, err = s.settings.Int64(ctx, settingsdomain.KeyBillingRateInstitution); err != nil {
		return r, fmt.Errorf("read billing_rate_institution: %w", err)
	}
	if r.dueDays, err = s.settings.Int64(ctx, settingsdomain.KeyPaymentDueDays); err != nil {
		return r, fmt.Errorf("read payment_due_days: %w", err)
	}
	return r, nil
}

func (s *Service) GenerateForMonth(ctx context.Context, req domain.GenerateRequest) (domain.GenerateSummary, error) {
	var summary domain.GenerateSummary

	if req.Month.IsZero() {
		return summary, domain.ErrInvalidMonth
	}
	month := domain.NormalizeMonth(req.Month)

	cfg, err := s.loadRates(ctx)
	if err != nil {
		return summary, err
	}

	customers, err := s.customer.ListActive(ctx, s.db, req.CustomerIDs)
	if err != nil {
		return summary, fmt.Errorf("list active customers: %w", err)
	}
	summary.Eligible = len(customers)

	for _, cust := range customers {
		inserted, msg, err := s.generateOne(ctx, cust, month, cfg)
		switch {
		case err != nil:
			summary.Failed++
			s.log.Error("bill generation failed",
				zap.String("account_number", cust.AccountNumber),
				zap.Time("billing_period", month),
				zap.Error(err),
			)
		case !inserted:
			summary.Skipped++
		default:
			summary.Generated++
			if cust.Phone != "" {
				summary.Notifications = append(summary.Notifications, msg)
			}
		}
	}

	s.log.Info("billing generation run complete",
		zap.Time("billing_period", month),
		zap.Int("eligible", summary.Eligible),
		zap.Int("generated", summary.Generated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (s *Service) generateOne(ctx context.Context, cust customerdomain.Customer, month time.Time, cfg rates) (bool, notification.Message, error) {
	var msg notification.Message

	exists, err := s.repo.ExistsForPeriod(ctx, s.db, cust.ID, month)
	if err != nil {
		return false, msg, err
	}
	if exists {
		return false, msg, nil
	}

	charges := cfg.standard
	if cust.Type == customerdomain.CustomerTypeInstitution {
		charges = cfg.institution
	}

	previous, err := s.repo.SumOutstanding(ctx, s.db, cust.ID)
	if err != nil {
		return false, msg, err
	}

	now := s.clock.Now()
	bill := &domain.Bill{
		ID:              s.genID.Generate(),
		CustomerID:      cust.ID,
		BillingPeriod:   month,
		PreviousBalance: previous,
		CurrentCharges:  charges,
		TotalAmount:     previous + charges,
		DueDate:         month.AddDate(0, 0, int(cfg.dueDays)),
		Status:          domain.BillStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var inserted, assigned bool
	for suffix := 1; suffix <= maxNumberRetries; suffix++ {
		candidate := billNumber(cust.AccountNumber, month, suffix)
		taken, err := s.repo.NumberExists(ctx, s.db, candidate)
		if err != nil {
			return false, msg, err
		}
		if taken {
			continue
		}
		bill.BillNumber = candidate
		assigned = true
		inserted, err = s.repo.Insert(ctx, s.db, bill)
		if err != nil {
			return false, msg, err
		}
		break
	}
	if !assigned {
		return false, msg, domain.ErrNumberExhaust
	}
	if !inserted {
		// Raced with a concurrent run on (customer_id, billing_period).
		return false, msg, nil
	}

	msg = notification.Message{
		Recipient:    cust.Phone,
		TemplateType: notification.TemplateBillGenerated,
		Variables: map[string]any{
			"customer_name":  cust.Name,
			"bill_number":    bill.BillNumber,
			"billing_period": month.Format("2006-01"),
			"total_amount":   bill.TotalAmount,
			"due_date":       bill.DueDate.Format("2006-01-02"),
		},
	}
	return true, msg, nil
}

// billNumber builds the deterministic bill identifier
// BILL-<account>-<YYYYMM>-<suffix>.
func billNumber(accountNumber string, month time.Time, suffix int) string {
	return fmt.Sprintf("BILL-%s-%s-%02d", accountNumber, month.Format("200601"), suffix)
}
