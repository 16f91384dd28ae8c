package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type FineStatus string

const (
	FineStatusPending FineStatus = "pending"
	FineStatusPaid    FineStatus = "paid"
	FineStatusWaived  FineStatus = "waived"
)

// FineTypeLatePayment is the only fine type the assessor produces. The column
// exists so manual adjustments can coexist with assessed fines.
const FineTypeLatePayment = "late_payment"

// Fine is a penalty attached to an overdue bill. At most one non-waived
// late-payment fine exists per bill.
type Fine struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	CustomerID  snowflake.ID `gorm:"not null;index" json:"customer_id"`
	BillID      snowflake.ID `gorm:"not null;index;uniqueIndex:ux_fines_bill_type_active,where:status != 'waived'" json:"bill_id"`
	FineType    string       `gorm:"type:text;not null;default:'late_payment';uniqueIndex:ux_fines_bill_type_active,where:status != 'waived'" json:"fine_type"`
	Amount      int64        `gorm:"not null" json:"amount"`
	AmountPaid  int64        `gorm:"not null;default:0" json:"amount_paid"`
	Reason      string       `gorm:"type:text" json:"reason"`
	AppliedDate time.Time    `gorm:"not null" json:"applied_date"`
	Status      FineStatus   `gorm:"type:text;not null;default:'pending'" json:"status"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updated_at"`
}

func (Fine) TableName() string { return "fines" }

// Outstanding is the unpaid remainder of the fine.
func (f Fine) Outstanding() int64 {
	remaining := f.Amount - f.AmountPaid
	if remaining < 0 {
		return 0
	}
	return remaining
}

var (
	ErrFineNotFound = errors.New("fine_not_found")
	ErrFineExists   = errors.New("fine_already_applied")
)
