package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hydranet/hydrabill/internal/billing/domain"
	"gorm.io/gorm"
)

type Repository interface {
	// Insert inserts a bill, reporting false when a bill for the same
	// customer and period already exists.
	Insert(ctx context.Context, db *gorm.DB, bill *domain.Bill) (bool, error)
	ExistsForPeriod(ctx context.Context, db *gorm.DB, customerID snowflake.ID, period time.Time) (bool, error)
	// SumOutstanding totals the unpaid remainder across a customer's open bills.
	SumOutstanding(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (int64, error)
	NumberExists(ctx context.Context, db *gorm.DB, billNumber string) (bool, error)
}

type repo struct{}

func Provide() Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, bill *domain.Bill) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO bills (
			id, customer_id, bill_number, billing_period, previous_balance,
			current_charges, total_amount, amount_paid, due_date, status,
			paid_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (customer_id, billing_period) DO NOTHING`,
		bill.ID,
		bill.CustomerID,
		bill.BillNumber,
		bill.BillingPeriod,
		bill.PreviousBalance,
		bill.CurrentCharges,
		bill.TotalAmount,
		bill.AmountPaid,
		bill.DueDate,
		bill.Status,
		bill.PaidAt,
		bill.CreatedAt,
		bill.UpdatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ExistsForPeriod(ctx context.Context, db *gorm.DB, customerID snowflake.ID, period time.Time) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1)
		 FROM bills
		 WHERE customer_id = ? AND billing_period = ?`,
		customerID,
		period,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) SumOutstanding(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(total_amount - amount_paid), 0)
		 FROM bills
		 WHERE customer_id = ? AND status IN (?, ?, ?)`,
		customerID,
		domain.BillStatusPending,
		domain.BillStatusPartiallyPaid,
		domain.BillStatusOverdue,
	).Scan(&total).Error
	return total, err
}

func (r *repo) NumberExists(ctx context.Context, db *gorm.DB, billNumber string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM bills WHERE bill_number = ?`,
		billNumber,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
