package service_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/hydranet/hydrabill/internal/billing/domain"
	"github.com/hydranet/hydrabill/internal/clock"
	contributiondomain "github.com/hydranet/hydrabill/internal/contribution/domain"
	customerdomain "github.com/hydranet/hydrabill/internal/customer/domain"
	customerrepo "github.com/hydranet/hydrabill/internal/customer/repository"
	finedomain "github.com/hydranet/hydrabill/internal/fine/domain"
	"github.com/hydranet/hydrabill/internal/locks"
	"github.com/hydranet/hydrabill/internal/notification"
	paymentdomain "github.com/hydranet/hydrabill/internal/payment/domain"
	paymentrepo "github.com/hydranet/hydrabill/internal/payment/repository"
	paymentservice "github.com/hydranet/hydrabill/internal/payment/service"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	// SQLite support hack: remove FOR UPDATE clauses
	stripLocking := func(d *gorm.DB) {
		sql := d.Statement.SQL.String()
		if strings.Contains(sql, "FOR UPDATE") {
			newSQL := strings.ReplaceAll(sql, "FOR UPDATE", "")
			d.Statement.SQL.Reset()
			d.Statement.SQL.WriteString(newSQL)
		}
	}
	db.Callback().Query().Before("gorm:query").Register("sqlite_skip_locked", stripLocking)
	db.Callback().Row().Before("gorm:row").Register("sqlite_skip_locked_row", stripLocking)

	schema := []string{
		`CREATE TABLE customers (
			id BIGINT PRIMARY KEY,
			account_number TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			phone TEXT,
			type TEXT NOT NULL DEFAULT 'standard',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE bills (
			id BIGINT PRIMARY KEY,
			customer_id BIGINT NOT NULL,
			bill_number TEXT NOT NULL UNIQUE,
			billing_period TIMESTAMP NOT NULL,
			previous_balance BIGINT NOT NULL,
			current_charges BIGINT NOT NULL,
			total_amount BIGINT NOT NULL,
			amount_paid BIGINT NOT NULL DEFAULT 0,
			due_date TIMESTAMP NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			paid_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (customer_id, billing_period)
		)`,
		`CREATE TABLE fines (
			id BIGINT PRIMARY KEY,
			customer_id BIGINT NOT NULL,
			bill_id BIGINT NOT NULL,
			fine_type TEXT NOT NULL DEFAULT 'late_payment',
			amount BIGINT NOT NULL,
			amount_paid BIGINT NOT NULL DEFAULT 0,
			reason TEXT,
			applied_date TIMESTAMP NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE contributions (
			id BIGINT PRIMARY KEY,
			customer_id BIGINT NOT NULL,
			contribution_month TIMESTAMP NOT NULL,
			amount_required BIGINT NOT NULL,
			amount_paid BIGINT NOT NULL DEFAULT 0,
			due_date TIMESTAMP NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (customer_id, contribution_month)
		)`,
		`CREATE TABLE payments (
			id BIGINT PRIMARY KEY,
			customer_id BIGINT NOT NULL,
			external_transaction_id TEXT NOT NULL UNIQUE,
			amount BIGINT NOT NULL,
			method TEXT NOT NULL,
			status TEXT NOT NULL,
			paid_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE payment_allocations (
			id BIGINT PRIMARY KEY,
			payment_id BIGINT NOT NULL,
			target_type TEXT NOT NULL,
			target_id BIGINT,
			amount BIGINT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func newPaymentService(t *testing.T, db *gorm.DB) paymentdomain.Service {
	t.Helper()

	node, err := snowflake.NewNode(23)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	return paymentservice.New(paymentservice.Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clock.NewFakeClock(time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)),
		Repo:       paymentrepo.Provide(),
		Customer:   customerrepo.Provide(),
		Mutex:      locks.NewKeyedMutex(),
		Dispatcher: notification.NewDispatcher(&notification.NoOpProvider{}, zap.NewNop(), time.Second),
	})
}

func seedCustomer(t *testing.T, db *gorm.DB, id int64, account string) {
	t.Helper()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	err := db.Exec(
		`INSERT INTO customers (id, account_number, name, phone, type, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 'standard', TRUE, ?, ?)`,
		id, account, "Customer "+account, "+62811"+account, now, now,
	).Error
	require.NoError(t, err)
}

func seedBill(t *testing.T, db *gorm.DB, id, customerID, total, paid int64, dueDate time.Time, status billingdomain.BillStatus) {
	t.Helper()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	err := db.Exec(
		`INSERT INTO bills (
			id, customer_id, bill_number, billing_period, previous_balance,
			current_charges, total_amount, amount_paid, due_date, status,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?, ?, ?, ?)`,
		id, customerID, fmt.Sprintf("BILL-%d-%02d", customerID, id),
		time.Date(dueDate.Year(), dueDate.Month(), 1, 0, 0, 0, 0, time.UTC),
		total, total, paid, dueDate, status, now, now,
	).Error
	require.NoError(t, err)
}

func seedFine(t *testing.T, db *gorm.DB, id, customerID, billID, amount int64, appliedDate time.Time) {
	t.Helper()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	err := db.Exec(
		`INSERT INTO fines (
			id, customer_id, bill_id, fine_type, amount, amount_paid,
			reason, applied_date, status, created_at, updated_at
		) VALUES (?, ?, ?, 'late_payment', ?, 0, 'late', ?, 'pending', ?, ?)`,
		id, customerID, billID, amount, appliedDate, now, now,
	).Error
	require.NoError(t, err)
}

func seedContribution(t *testing.T, db *gorm.DB, id, customerID, required, paid int64, month time.Time, status contributiondomain.ContributionStatus) {
	t.Helper()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	err := db.Exec(
		`INSERT INTO contributions (
			id, customer_id, contribution_month, amount_required, amount_paid,
			due_date, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, customerID, month, required, paid, month.AddDate(0, 0, 15), status, now, now,
	).Error
	require.NoError(t, err)
}

func sumByTarget(allocations []paymentdomain.Allocation) map[paymentdomain.TargetType]int64 {
	out := make(map[paymentdomain.TargetType]int64)
	for _, a := range allocations {
		out[a.TargetType] += a.Amount
	}
	return out
}

func TestProcessAllocatesInPriorityOrder(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newPaymentService(t, db)

	seedCustomer(t, db, 1, "1001")
	seedBill(t, db, 10, 1, 300, 0, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), billingdomain.BillStatusOverdue)
	seedFine(t, db, 20, 1, 10, 50, time.Date(2026, 3, 22, 0, 0, 0, 0, time.UTC))
	seedContribution(t, db, 30, 1, 100, 0, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), contributiondomain.ContributionStatusPending)

	result, err := svc.Process(ctx, paymentdomain.InboundEvent{
		TransactionID:     "TXN-400",
		AccountIdentifier: "1001",
		Amount:            400,
		PaymentMethod:     "bank_transfer",
	})
	require.NoError(t, err)
	require.Equal(t, paymentdomain.OutcomeAllocated, result.Outcome)

	byTarget := sumByTarget(result.Allocations)
	require.Equal(t, int64(300), byTarget[paymentdomain.TargetBill])
	require.Equal(t, int64(50), byTarget[paymentdomain.TargetFine])
	require.Equal(t, int64(50), byTarget[paymentdomain.TargetContribution])
	require.Equal(t, int64(0), byTarget[paymentdomain.TargetAdvance])

	var total int64
	for _, a := range result.Allocations {
		total += a.Amount
	}
	require.Equal(t, int64(400), total)

	var billStatus, fineStatus, contributionStatus string
	require.NoError(t, db.Raw(`SELECT status FROM bills WHERE id = 10`).Scan(&billStatus).Error)
	require.NoError(t, db.Raw(`SELECT status FROM fines WHERE id = 20`).Scan(&fineStatus).Error)
	require.NoError(t, db.Raw(`SELECT status FROM contributions WHERE id = 30`).Scan(&contributionStatus).Error)
	require.Equal(t, string(billingdomain.BillStatusPaid), billStatus)
	require.Equal(t, string(finedomain.FineStatusPaid), fineStatus)
	require.Equal(t, string(contributiondomain.ContributionStatusPartial), contributionStatus)
}

func TestProcessDuplicateTransactionIsNoOp(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newPaymentService(t, db)

	seedCustomer(t, db, 1, "1001")
	seedBill(t, db, 10, 1, 300, 0, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), billingdomain.BillStatusPending)

	event := paymentdomain.InboundEvent{
		TransactionID:     "TXN-DUP",
		AccountIdentifier: "1001",
		Amount:            100,
		PaymentMethod:     "bank_transfer",
	}
	first, err := svc.Process(ctx, event)
	require.NoError(t, err)
	require.Equal(t, paymentdomain.OutcomeAllocated, first.Outcome)

	second, err := svc.Process(ctx, event)
	require.NoError(t, err)
	require.Equal(t, paymentdomain.OutcomeDuplicate, second.Outcome)
	require.Equal(t, first.PaymentID, second.PaymentID)
	require.Empty(t, second.Allocations)

	var paymentCount, allocationCount int64
	require.NoError(t, db.Raw(`SELECT COUNT(1) FROM payments`).Scan(&paymentCount).Error)
	require.NoError(t, db.Raw(`SELECT COUNT(1) FROM payment_allocations`).Scan(&allocationCount).Error)
	require.Equal(t, int64(1), paymentCount)
	require.Equal(t, int64(1), allocationCount)

	var amountPaid int64
	require.NoError(t, db.Raw(`SELECT amount_paid FROM bills WHERE id = 10`).Scan(&amountPaid).Error)
	require.Equal(t, int64(100), amountPaid)
}

func TestProcessContributionStatusTransitions(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newPaymentService(t, db)

	seedCustomer(t, db, 1, "1001")
	seedContribution(t, db, 30, 1, 100, 0, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), contributiondomain.ContributionStatusPending)

	_, err := svc.Process(ctx, paymentdomain.InboundEvent{
		TransactionID:     "TXN-40",
		AccountIdentifier: "1001",
		Amount:            40,
		PaymentMethod:     "bank_transfer",
	})
	require.NoError(t, err)

	var c contributiondomain.Contribution
	require.NoError(t, db.Raw(`SELECT * FROM contributions WHERE id = 30`).Scan(&c).Error)
	require.Equal(t, contributiondomain.ContributionStatusPartial, c.Status)
	require.Equal(t, int64(40), c.AmountPaid)

	_, err = svc.Process(ctx, paymentdomain.InboundEvent{
		TransactionID:     "TXN-60",
		AccountIdentifier: "1001",
		Amount:            60,
		PaymentMethod:     "bank_transfer",
	})
	require.NoError(t, err)

	require.NoError(t, db.Raw(`SELECT * FROM contributions WHERE id = 30`).Scan(&c).Error)
	require.Equal(t, contributiondomain.ContributionStatusCompleted, c.Status)
	require.Equal(t, int64(100), c.AmountPaid)
}

func TestProcessConcurrentPaymentsDoNotDoubleSpend(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newPaymentService(t, db)

	seedCustomer(t, db, 1, "1001")
	seedBill(t, db, 10, 1, 300, 0, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), billingdomain.BillStatusPending)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, txn := range []string{"TXN-A", "TXN-B"} {
		wg.Add(1)
		go func(txn string) {
			defer wg.Done()
			_, err := svc.Process(ctx, paymentdomain.InboundEvent{
				TransactionID:     txn,
				AccountIdentifier: "1001",
				Amount:            200,
				PaymentMethod:     "bank_transfer",
			})
			errs <- err
		}(txn)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var amountPaid int64
	require.NoError(t, db.Raw(`SELECT amount_paid FROM bills WHERE id = 10`).Scan(&amountPaid).Error)
	require.Equal(t, int64(300), amountPaid)

	var billTotal, advanceTotal int64
	require.NoError(t, db.Raw(
		`SELECT COALESCE(SUM(amount), 0) FROM payment_allocations WHERE target_type = 'bill'`,
	).Scan(&billTotal).Error)
	require.NoError(t, db.Raw(
		`SELECT COALESCE(SUM(amount), 0) FROM payment_allocations WHERE target_type = 'advance'`,
	).Scan(&advanceTotal).Error)
	require.Equal(t, int64(300), billTotal)
	require.Equal(t, int64(100), advanceTotal)
}

func TestProcessReferenceHintPromotesCategory(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newPaymentService(t, db)

	seedCustomer(t, db, 1, "1001")
	seedBill(t, db, 10, 1, 300, 0, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), billingdomain.BillStatusPending)
	seedContribution(t, db, 30, 1, 100, 0, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), contributiondomain.ContributionStatusPending)

	result, err := svc.Process(ctx, paymentdomain.InboundEvent{
		TransactionID:     "TXN-REF",
		AccountIdentifier: "1001",
		Amount:            150,
		PaymentMethod:     "bank_transfer",
		ReferenceType:     "contribution",
	})
	require.NoError(t, err)

	byTarget := sumByTarget(result.Allocations)
	require.Equal(t, int64(100), byTarget[paymentdomain.TargetContribution])
	require.Equal(t, int64(50), byTarget[paymentdomain.TargetBill])
}

func TestProcessFailedStatusSkipsAllocation(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newPaymentService(t, db)

	seedCustomer(t, db, 1, "1001")
	seedBill(t, db, 10, 1, 300, 0, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), billingdomain.BillStatusPending)

	result, err := svc.Process(ctx, paymentdomain.InboundEvent{
		TransactionID:     "TXN-FAIL",
		AccountIdentifier: "1001",
		Amount:            300,
		PaymentMethod:     "bank_transfer",
		Status:            "reversed",
	})
	require.NoError(t, err)
	require.Equal(t, paymentdomain.OutcomeFailed, result.Outcome)
	require.Empty(t, result.Allocations)

	var status string
	require.NoError(t, db.Raw(`SELECT status FROM payments`).Scan(&status).Error)
	require.Equal(t, string(paymentdomain.PaymentStatusFailed), status)

	var allocationCount, amountPaid int64
	require.NoError(t, db.Raw(`SELECT COUNT(1) FROM payment_allocations`).Scan(&allocationCount).Error)
	require.NoError(t, db.Raw(`SELECT amount_paid FROM bills WHERE id = 10`).Scan(&amountPaid).Error)
	require.Equal(t, int64(0), allocationCount)
	require.Equal(t, int64(0), amountPaid)
}

func TestProcessUnknownAccountRejected(t *testing.T) {
	db := setupTestDB(t)
	svc := newPaymentService(t, db)

	result, err := svc.Process(context.Background(), paymentdomain.InboundEvent{
		TransactionID:     "TXN-NOBODY",
		AccountIdentifier: "9999",
		Amount:            100,
		PaymentMethod:     "bank_transfer",
	})
	require.ErrorIs(t, err, customerdomain.ErrNotFound)
	require.Equal(t, paymentdomain.OutcomeRejected, result.Outcome)

	var count int64
	require.NoError(t, db.Raw(`SELECT COUNT(1) FROM payments`).Scan(&count).Error)
	require.Equal(t, int64(0), count)
}

func TestProcessRejectsMalformedEvent(t *testing.T) {
	db := setupTestDB(t)
	svc := newPaymentService(t, db)

	_, err := svc.Process(context.Background(), paymentdomain.InboundEvent{
		TransactionID:     "TXN-NEG",
		AccountIdentifier: "1001",
		Amount:            -5,
		PaymentMethod:     "bank_transfer",
	})
	require.ErrorIs(t, err, paymentdomain.ErrNonPositiveAmount)
}

func TestProcessOverpaymentBecomesAdvance(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newPaymentService(t, db)

	seedCustomer(t, db, 1, "1001")
	seedBill(t, db, 10, 1, 300, 250, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), billingdomain.BillStatusPartiallyPaid)

	result, err := svc.Process(ctx, paymentdomain.InboundEvent{
		TransactionID:     "TXN-OVER",
		AccountIdentifier: "1001",
		Amount:            200,
		PaymentMethod:     "bank_transfer",
	})
	require.NoError(t, err)

	byTarget := sumByTarget(result.Allocations)
	require.Equal(t, int64(50), byTarget[paymentdomain.TargetBill])
	require.Equal(t, int64(150), byTarget[paymentdomain.TargetAdvance])

	var status string
	require.NoError(t, db.Raw(`SELECT status FROM bills WHERE id = 10`).Scan(&status).Error)
	require.Equal(t, string(billingdomain.BillStatusPaid), status)
}

// A cross-process race can slip past the duplicate pre-check; the conflict
// target on the payment insert absorbs it instead of raising a unique
// violation.
func TestInsertPaymentDuplicateTransactionIsAbsorbed(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := paymentrepo.Provide()

	seedCustomer(t, db, 1, "1001")
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	payment := func(id int64) *paymentdomain.Payment {
		return &paymentdomain.Payment{
			ID:                    snowflake.ID(id),
			CustomerID:            1,
			ExternalTransactionID: "TXN-RACE",
			Amount:                100,
			Method:                "bank_transfer",
			Status:                paymentdomain.PaymentStatusCompleted,
			PaidAt:                now,
			CreatedAt:             now,
			UpdatedAt:             now,
		}
	}

	inserted, err := repo.InsertPayment(ctx, db, payment(500))
	require.NoError(t, err)
	require.True(t, inserted)

	inserted, err = repo.InsertPayment(ctx, db, payment(501))
	require.NoError(t, err)
	require.False(t, inserted)

	var count int64
	require.NoError(t, db.Raw(`SELECT COUNT(1) FROM payments`).Scan(&count).Error)
	require.Equal(t, int64(1), count)
}
