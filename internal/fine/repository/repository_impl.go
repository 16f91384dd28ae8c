package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/hydranet/hydrabill/internal/billing/domain"
	"github.com/hydranet/hydrabill/internal/fine/domain"
	pkgdb "github.com/hydranet/hydrabill/pkg/db"
	"gorm.io/gorm"
)

// Candidate is an unpaid bill whose grace period has lapsed, joined with the
// customer fields the assessor needs for notifications.
type Candidate struct {
	BillID        snowflake.ID `gorm:"column:bill_id"`
	CustomerID    snowflake.ID `gorm:"column:customer_id"`
	BillNumber    string       `gorm:"column:bill_number"`
	TotalAmount   int64        `gorm:"column:total_amount"`
	AmountPaid    int64        `gorm:"column:amount_paid"`
	DueDate       time.Time    `gorm:"column:due_date"`
	AccountNumber string       `gorm:"column:account_number"`
	CustomerName  string       `gorm:"column:customer_name"`
	Phone         string       `gorm:"column:phone"`
}

type Repository interface {
	// ListCandidates returns unpaid bills of active customers with due_date
	// strictly before cutoff, oldest first, at most limit rows.
	ListCandidates(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]Candidate, error)
	// HasActiveFine reports whether a non-waived late-payment fine already
	// exists for the bill.
	HasActiveFine(ctx context.Context, db *gorm.DB, billID snowflake.ID) (bool, error)
	// Apply inserts the fine and marks its pending bill overdue in one
	// transaction. Returns domain.ErrFineExists when another non-waived
	// late-payment fine already holds the bill.
	Apply(ctx context.Context, db *gorm.DB, fine *domain.Fine) error
}

type repo struct{}

func Provide() Repository {
	return &repo{}
}

func (r *repo) ListCandidates(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]Candidate, error) {
	var out []Candidate
	err := db.WithContext(ctx).Raw(
		`SELECT
			b.id AS bill_id,
			b.customer_id,
			b.bill_number,
			b.total_amount,
			b.amount_paid,
			b.due_date,
			c.account_number,
			c.name AS customer_name,
			c.phone
		 FROM bills b
		 JOIN customers c ON c.id = b.customer_id
		 WHERE b.status IN (?, ?, ?)
		   AND c.active = TRUE
		   AND b.due_date < ?
		 ORDER BY b.due_date ASC, b.id ASC
		 LIMIT ?`,
		billingdomain.BillStatusPending,
		billingdomain.BillStatusPartiallyPaid,
		billingdomain.BillStatusOverdue,
		cutoff,
		limit,
	).Scan(&out).Error
	return out, err
}

func (r *repo) HasActiveFine(ctx context.Context, db *gorm.DB, billID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1)
		 FROM fines
		 WHERE bill_id = ? AND fine_type = ? AND status != ?`,
		billID,
		domain.FineTypeLatePayment,
		domain.FineStatusWaived,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) Apply(ctx context.Context, db *gorm.DB, fine *domain.Fine) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			`INSERT INTO fines (
				id, customer_id, bill_id, fine_type, amount, amount_paid,
				reason, applied_date, status, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			fine.ID,
			fine.CustomerID,
			fine.BillID,
			fine.FineType,
			fine.Amount,
			fine.AmountPaid,
			fine.Reason,
			fine.AppliedDate,
			fine.Status,
			fine.CreatedAt,
			fine.UpdatedAt,
		).Error; err != nil {
			// The unique index on (bill_id, fine_type) over non-waived fines
			// backstops the existence check when assessors race across
			// processes.
			if pkgdb.IsDuplicateKeyErr(err) {
				return domain.ErrFineExists
			}
			return err
		}
		// Only a pending bill moves to overdue; a partially paid bill keeps
		// its status so the payment history stays visible.
		return tx.Exec(
			`UPDATE bills SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			billingdomain.BillStatusOverdue,
			fine.UpdatedAt,
			fine.BillID,
			billingdomain.BillStatusPending,
		).Error
	})
}
