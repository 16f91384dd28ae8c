package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type BillStatus string

const (
	BillStatusPending       BillStatus = "pending"
	BillStatusPartiallyPaid BillStatus = "partially_paid"
	BillStatusPaid          BillStatus = "paid"
	BillStatusOverdue       BillStatus = "overdue"
	BillStatusCancelled     BillStatus = "cancelled"
)

// Bill is one monthly charge for one customer. TotalAmount equals
// PreviousBalance + CurrentCharges at creation; AmountPaid accumulates
// through payment allocation. All amounts are minor units.
type Bill struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	CustomerID      snowflake.ID `gorm:"not null;index;uniqueIndex:ux_bills_customer_period,priority:1" json:"customer_id"`
	BillNumber      string       `gorm:"type:text;not null;uniqueIndex" json:"bill_number"`
	BillingPeriod   time.Time    `gorm:"not null;uniqueIndex:ux_bills_customer_period,priority:2" json:"billing_period"`
	PreviousBalance int64        `gorm:"not null" json:"previous_balance"`
	CurrentCharges  int64        `gorm:"not null" json:"current_charges"`
	TotalAmount     int64        `gorm:"not null" json:"total_amount"`
	AmountPaid      int64        `gorm:"not null;default:0" json:"amount_paid"`
	DueDate         time.Time    `gorm:"not null;index" json:"due_date"`
	Status          BillStatus   `gorm:"type:text;not null;default:'pending'" json:"status"`
	PaidAt          *time.Time   `json:"paid_at,omitempty"`
	CreatedAt       time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null" json:"updated_at"`
}

func (Bill) TableName() string { return "bills" }

// Outstanding is the unpaid remainder of the bill.
func (b Bill) Outstanding() int64 {
	remaining := b.TotalAmount - b.AmountPaid
	if remaining < 0 {
		return 0
	}
	return remaining
}

var (
	ErrInvalidMonth  = errors.New("invalid_billing_month")
	ErrBillNotFound  = errors.New("bill_not_found")
	ErrNumberExhaust = errors.New("bill_number_suffix_exhausted")
)

// NormalizeMonth truncates a date to the first of its month, UTC.
func NormalizeMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
