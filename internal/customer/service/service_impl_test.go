package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hydranet/hydrabill/internal/customer/domain"
	"github.com/hydranet/hydrabill/internal/customer/repository"
	"github.com/hydranet/hydrabill/internal/customer/service"
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
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE fines (
			id BIGINT PRIMARY KEY,
			customer_id BIGINT NOT NULL,
			bill_id BIGINT NOT NULL,
			fine_type TEXT NOT NULL,
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
			updated_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func newCustomerService(t *testing.T, db *gorm.DB) domain.Service {
	t.Helper()
	return service.New(service.Params{
		DB:   db,
		Log:  zap.NewNop(),
		Repo: repository.Provide(),
	})
}

func seedCustomer(t *testing.T, db *gorm.DB, id int64, account string, active bool) {
	t.Helper()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Exec(
		`INSERT INTO customers (id, account_number, name, phone, type, active, created_at, updated_at)
		 VALUES (?, ?, ?, '', 'standard', ?, ?, ?)`,
		id, account, "Customer "+account, active, now, now,
	).Error)
}

func TestValidateReturnsOutstandingBreakdown(t *testing.T) {
	db := setupTestDB(t)
	svc := newCustomerService(t, db)
	seedCustomer(t, db, 1, "1001", true)

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Exec(
		`INSERT INTO bills (id, customer_id, bill_number, billing_period, previous_balance, current_charges, total_amount, amount_paid, due_date, status, created_at, updated_at)
		 VALUES (10, 1, 'BILL-1001-202603-01', ?, 0, 50000, 50000, 20000, ?, 'partially_paid', ?, ?)`,
		now, now, now, now,
	).Error)
	require.NoError(t, db.Exec(
		`INSERT INTO fines (id, customer_id, bill_id, fine_type, amount, amount_paid, reason, applied_date, status, created_at, updated_at)
		 VALUES (20, 1, 10, 'late_payment', 2500, 0, '', ?, 'pending', ?, ?)`,
		now, now, now,
	).Error)
	require.NoError(t, db.Exec(
		`INSERT INTO contributions (id, customer_id, contribution_month, amount_required, amount_paid, due_date, status, created_at, updated_at)
		 VALUES (30, 1, ?, 10000, 4000, ?, 'partial', ?, ?)`,
		now, now, now, now,
	).Error)

	result, err := svc.Validate(context.Background(), "1001")
	require.NoError(t, err)
	require.True(t, result.Exists)
	require.True(t, result.Active)
	require.Equal(t, "Customer 1001", result.Name)
	require.Equal(t, int64(30000), result.Breakdown.Bills)
	require.Equal(t, int64(2500), result.Breakdown.Fines)
	require.Equal(t, int64(6000), result.Breakdown.Contributions)
	require.Equal(t, int64(38500), result.OutstandingBalance)
}

func TestValidateExcludesSettledAndWaived(t *testing.T) {
	db := setupTestDB(t)
	svc := newCustomerService(t, db)
	seedCustomer(t, db, 1, "1001", true)

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Exec(
		`INSERT INTO bills (id, customer_id, bill_number, billing_period, previous_balance, current_charges, total_amount, amount_paid, due_date, status, created_at, updated_at)
		 VALUES (10, 1, 'BILL-1001-202602-01', ?, 0, 50000, 50000, 50000, ?, 'paid', ?, ?)`,
		now, now, now, now,
	).Error)
	require.NoError(t, db.Exec(
		`INSERT INTO fines (id, customer_id, bill_id, fine_type, amount, amount_paid, reason, applied_date, status, created_at, updated_at)
		 VALUES (20, 1, 10, 'late_payment', 2500, 0, '', ?, 'waived', ?, ?)`,
		now, now, now,
	).Error)

	result, err := svc.Validate(context.Background(), "1001")
	require.NoError(t, err)
	require.Equal(t, int64(0), result.OutstandingBalance)
}

func TestValidateUnknownAccount(t *testing.T) {
	db := setupTestDB(t)
	svc := newCustomerService(t, db)

	result, err := svc.Validate(context.Background(), "9999")
	require.NoError(t, err)
	require.False(t, result.Exists)
}

func TestValidateInactiveCustomer(t *testing.T) {
	db := setupTestDB(t)
	svc := newCustomerService(t, db)
	seedCustomer(t, db, 2, "2002", false)

	result, err := svc.Validate(context.Background(), "2002")
	require.NoError(t, err)
	require.True(t, result.Exists)
	require.False(t, result.Active)
}

func TestValidateRejectsBlankAccount(t *testing.T) {
	db := setupTestDB(t)
	svc := newCustomerService(t, db)

	_, err := svc.Validate(context.Background(), "   ")
	require.ErrorIs(t, err, domain.ErrInvalidAccountNumber)
}
