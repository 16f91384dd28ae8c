package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/hydranet/hydrabill/internal/billing/domain"
	contributiondomain "github.com/hydranet/hydrabill/internal/contribution/domain"
	finedomain "github.com/hydranet/hydrabill/internal/fine/domain"
	"github.com/hydranet/hydrabill/internal/payment/domain"
	"gorm.io/gorm"
)

type Repository interface {
	FindPaymentByTransactionID(ctx context.Context, db *gorm.DB, txnID string) (*domain.Payment, error)
	// InsertPayment reports false when the external transaction id was
	// already recorded.
	InsertPayment(ctx context.Context, db *gorm.DB, p *domain.Payment) (bool, error)
	InsertAllocation(ctx context.Context, db *gorm.DB, a *domain.Allocation) error

	// ListOpen* lock the rows for the duration of the surrounding
	// transaction, ordered by settlement priority within the category.
	ListOpenBills(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]billingdomain.Bill, error)
	ListOpenFines(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]finedomain.Fine, error)
	ListOpenContributions(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]contributiondomain.Contribution, error)

	ApplyToBill(ctx context.Context, db *gorm.DB, billID snowflake.ID, amount int64, settled bool, now time.Time) error
	ApplyToFine(ctx context.Context, db *gorm.DB, fineID snowflake.ID, amount int64, settled bool, now time.Time) error
	ApplyToContribution(ctx context.Context, db *gorm.DB, contributionID snowflake.ID, amount int64, settled bool, now time.Time) error

	// InsertEvent persists an intake row, reporting false when the
	// transaction id was already accepted.
	InsertEvent(ctx context.Context, db *gorm.DB, e *domain.EventRecord) (bool, error)
	MarkEventProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error
	MarkEventFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string, processedAt time.Time) error
	ListPendingEvents(ctx context.Context, db *gorm.DB, limit int) ([]domain.EventRecord, error)
}

type repo struct{}

func Provide() Repository {
	return &repo{}
}

func (r *repo) FindPaymentByTransactionID(ctx context.Context, db *gorm.DB, txnID string) (*domain.Payment, error) {
	var p domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM payments WHERE external_transaction_id = ?`,
		txnID,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) InsertPayment(ctx context.Context, db *gorm.DB, p *domain.Payment) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO payments (
			id, customer_id, external_transaction_id, amount, method, status,
			paid_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_transaction_id) DO NOTHING`,
		p.ID,
		p.CustomerID,
		p.ExternalTransactionID,
		p.Amount,
		p.Method,
		p.Status,
		p.PaidAt,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertAllocation(ctx context.Context, db *gorm.DB, a *domain.Allocation) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payment_allocations (
			id, payment_id, target_type, target_id, amount, created_at
		) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.PaymentID,
		a.TargetType,
		a.TargetID,
		a.Amount,
		a.CreatedAt,
	).Error
}

func (r *repo) ListOpenBills(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]billingdomain.Bill, error) {
	var bills []billingdomain.Bill
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM bills
		 WHERE customer_id = ?
		   AND status IN (?, ?, ?)
		   AND total_amount - amount_paid > 0
		 ORDER BY due_date ASC, id ASC
		 FOR UPDATE`,
		customerID,
		billingdomain.BillStatusPending,
		billingdomain.BillStatusPartiallyPaid,
		billingdomain.BillStatusOverdue,
	).Scan(&bills).Error
	return bills, err
}

func (r *repo) ListOpenFines(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]finedomain.Fine, error) {
	var fines []finedomain.Fine
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM fines
		 WHERE customer_id = ?
		   AND status = ?
		   AND amount - amount_paid > 0
		 ORDER BY applied_date ASC, id ASC
		 FOR UPDATE`,
		customerID,
		finedomain.FineStatusPending,
	).Scan(&fines).Error
	return fines, err
}

func (r *repo) ListOpenContributions(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]contributiondomain.Contribution, error) {
	var contributions []contributiondomain.Contribution
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM contributions
		 WHERE customer_id = ?
		   AND status IN (?, ?, ?)
		   AND amount_required - amount_paid > 0
		 ORDER BY contribution_month ASC, id ASC
		 FOR UPDATE`,
		customerID,
		contributiondomain.ContributionStatusPending,
		contributiondomain.ContributionStatusPartial,
		contributiondomain.ContributionStatusOverdue,
	).Scan(&contributions).Error
	return contributions, err
}

func (r *repo) ApplyToBill(ctx context.Context, db *gorm.DB, billID snowflake.ID, amount int64, settled bool, now time.Time) error {
	if settled {
		return db.WithContext(ctx).Exec(
			`UPDATE bills
			 SET amount_paid = amount_paid + ?, status = ?, paid_at = ?, updated_at = ?
			 WHERE id = ?`,
			amount, billingdomain.BillStatusPaid, now, now, billID,
		).Error
	}
	return db.WithContext(ctx).Exec(
		`UPDATE bills
		 SET amount_paid = amount_paid + ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		amount, billingdomain.BillStatusPartiallyPaid, now, billID,
	).Error
}

func (r *repo) ApplyToFine(ctx context.Context, db *gorm.DB, fineID snowflake.ID, amount int64, settled bool, now time.Time) error {
	status := finedomain.FineStatusPending
	if settled {
		status = finedomain.FineStatusPaid
	}
	return db.WithContext(ctx).Exec(
		`UPDATE fines
		 SET amount_paid = amount_paid + ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		amount, status, now, fineID,
	).Error
}

func (r *repo) ApplyToContribution(ctx context.Context, db *gorm.DB, contributionID snowflake.ID, amount int64, settled bool, now time.Time) error {
	status := contributiondomain.ContributionStatusPartial
	if settled {
		status = contributiondomain.ContributionStatusCompleted
	}
	return db.WithContext(ctx).Exec(
		`UPDATE contributions
		 SET amount_paid = amount_paid + ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		amount, status, now, contributionID,
	).Error
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, e *domain.EventRecord) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO payment_events (
			id, external_transaction_id, account_number, amount, method,
			event_status, reference_type, state, last_error, received_at, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_transaction_id) DO NOTHING`,
		e.ID,
		e.ExternalTransactionID,
		e.AccountNumber,
		e.Amount,
		e.Method,
		e.EventStatus,
		e.ReferenceType,
		e.State,
		e.LastError,
		e.ReceivedAt,
		e.ProcessedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkEventProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payment_events SET state = ?, processed_at = ? WHERE id = ?`,
		domain.EventStateProcessed, processedAt, id,
	).Error
}

func (r *repo) MarkEventFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string, processedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payment_events SET state = ?, last_error = ?, processed_at = ? WHERE id = ?`,
		domain.EventStateFailed, reason, processedAt, id,
	).Error
}

func (r *repo) ListPendingEvents(ctx context.Context, db *gorm.DB, limit int) ([]domain.EventRecord, error) {
	var events []domain.EventRecord
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM payment_events
		 WHERE state = ?
		 ORDER BY received_at ASC, id ASC
		 LIMIT ?`,
		domain.EventStatePending,
		limit,
	).Scan(&events).Error
	return events, err
}
