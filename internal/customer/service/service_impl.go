package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/hydranet/hydrabill/internal/customer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("customer.service"),
		repo: p.Repo,
	}
}

// Validate answers the payment network's pre-payment check: does the account
// exist, is it active, and what does it currently owe.
func (s *Service) Validate(ctx context.Context, accountNumber string) (domain.ValidationResult, error) {
	accountNumber = strings.TrimSpace(accountNumber)
	if accountNumber == "" {
		return domain.ValidationResult{}, domain.ErrInvalidAccountNumber
	}

	customer, err := s.repo.FindByAccountNumber(ctx, s.db, accountNumber)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	if customer == nil {
		return domain.ValidationResult{Exists: false}, nil
	}

	breakdown, err := s.outstandingBreakdown(ctx, customer.ID)
	if err != nil {
		return domain.ValidationResult{}, err
	}

	return domain.ValidationResult{
		Exists:             true,
		Active:             customer.Active,
		Name:               customer.Name,
		OutstandingBalance: breakdown.Bills + breakdown.Fines + breakdown.Contributions,
		Breakdown:          breakdown,
	}, nil
}

func (s *Service) outstandingBreakdown(ctx context.Context, customerID snowflake.ID) (domain.BalanceBreakdown, error) {
	var breakdown domain.BalanceBreakdown

	if err := s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(total_amount - amount_paid), 0)
		 FROM bills
		 WHERE customer_id = ? AND status IN (?, ?, ?)`,
		customerID,
		"pending",
		"partially_paid",
		"overdue",
	).Scan(&breakdown.Bills).Error; err != nil {
		return breakdown, err
	}

	if err := s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount - amount_paid), 0)
		 FROM fines
		 WHERE customer_id = ? AND status = ?`,
		customerID,
		"pending",
	).Scan(&breakdown.Fines).Error; err != nil {
		return breakdown, err
	}

	if err := s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount_required - amount_paid), 0)
		 FROM contributions
		 WHERE customer_id = ? AND status IN (?, ?, ?)`,
		customerID,
		"pending",
		"partial",
		"overdue",
	).Scan(&breakdown.Contributions).Error; err != nil {
		return breakdown, err
	}

	return breakdown, nil
}
