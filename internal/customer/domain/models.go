package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// CustomerType determines the flat monthly billing rate.
type CustomerType string

const (
	CustomerTypeStandard    CustomerType = "standard"
	CustomerTypeInstitution CustomerType = "institution"
)

// Customer is provisioned by an external flow and read-only to the core.
// Deactivation excludes the customer from future generation runs.
type Customer struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	AccountNumber string       `gorm:"type:text;not null;uniqueIndex" json:"account_number"`
	Name          string       `gorm:"type:text;not null" json:"name"`
	Phone         string       `gorm:"type:text" json:"phone"`
	Type          CustomerType `gorm:"type:text;not null;default:'standard'" json:"type"`
	Active        bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt     time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }

var (
	ErrNotFound             = errors.New("customer_not_found")
	ErrInvalidAccountNumber = errors.New("invalid_account_number")
)
