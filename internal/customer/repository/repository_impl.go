package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/hydranet/hydrabill/internal/customer/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Customer, error) {
	var item domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, account_number, name, phone, type, active, created_at, updated_at
		 FROM customers
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindByAccountNumber(ctx context.Context, db *gorm.DB, accountNumber string) (*domain.Customer, error) {
	accountNumber = strings.TrimSpace(accountNumber)
	if accountNumber == "" {
		return nil, domain.ErrInvalidAccountNumber
	}
	var item domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, account_number, name, phone, type, active, created_at, updated_at
		 FROM customers
		 WHERE account_number = ?
		 LIMIT 1`,
		accountNumber,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.Customer, error) {
	var items []domain.Customer
	query := db.WithContext(ctx)
	if len(ids) > 0 {
		err := query.Raw(
			`SELECT id, account_number, name, phone, type, active, created_at, updated_at
			 FROM customers
			 WHERE active = ? AND id IN ?
			 ORDER BY id`,
			true,
			ids,
		).Scan(&items).Error
		return items, err
	}
	err := query.Raw(
		`SELECT id, account_number, name, phone, type, active, created_at, updated_at
		 FROM customers
		 WHERE active = ?
		 ORDER BY id`,
		true,
	).Scan(&items).Error
	return items, err
}
