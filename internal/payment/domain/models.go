package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment is one recorded inbound payment. ExternalTransactionID is the
// sender's idempotency key: redelivered callbacks collapse onto one row.
type Payment struct {
	ID                    snowflake.ID  `gorm:"primaryKey" json:"id"`
	CustomerID            snowflake.ID  `gorm:"not null;index" json:"customer_id"`
	ExternalTransactionID string        `gorm:"type:text;not null;uniqueIndex" json:"external_transaction_id"`
	Amount                int64         `gorm:"not null" json:"amount"`
	Method                string        `gorm:"type:text;not null" json:"method"`
	Status                PaymentStatus `gorm:"type:text;not null" json:"status"`
	PaidAt                time.Time     `gorm:"not null" json:"paid_at"`
	CreatedAt             time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt             time.Time     `gorm:"not null" json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

type TargetType string

const (
	TargetBill         TargetType = "bill"
	TargetFine         TargetType = "fine"
	TargetContribution TargetType = "contribution"
	TargetAdvance      TargetType = "advance"
)

// Allocation maps one slice of a payment onto one obligation. TargetID is
// nil only for advance credit.
type Allocation struct {
	ID         snowflake.ID  `gorm:"primaryKey" json:"id"`
	PaymentID  snowflake.ID  `gorm:"not null;index" json:"payment_id"`
	TargetType TargetType    `gorm:"type:text;not null" json:"target_type"`
	TargetID   *snowflake.ID `json:"target_id,omitempty"`
	Amount     int64         `gorm:"not null" json:"amount"`
	CreatedAt  time.Time     `gorm:"not null" json:"created_at"`
}

func (Allocation) TableName() string { return "payment_allocations" }

type EventState string

const (
	EventStatePending   EventState = "pending"
	EventStateProcessed EventState = "processed"
	EventStateFailed    EventState = "failed"
)

// EventRecord is the durable intake row for an inbound payment event. The
// HTTP boundary only validates and persists; a worker drains pending rows.
type EventRecord struct {
	ID                    snowflake.ID `gorm:"primaryKey" json:"id"`
	ExternalTransactionID string       `gorm:"type:text;not null;uniqueIndex" json:"external_transaction_id"`
	AccountNumber         string       `gorm:"type:text;not null" json:"account_number"`
	Amount                int64        `gorm:"not null" json:"amount"`
	Method                string       `gorm:"type:text;not null" json:"method"`
	EventStatus           string       `gorm:"type:text" json:"event_status"`
	ReferenceType         string       `gorm:"type:text" json:"reference_type"`
	State                 EventState   `gorm:"type:text;not null;default:'pending'" json:"state"`
	LastError             string       `gorm:"type:text" json:"last_error"`
	ReceivedAt            time.Time    `gorm:"not null" json:"received_at"`
	ProcessedAt           *time.Time   `json:"processed_at,omitempty"`
}

func (EventRecord) TableName() string { return "payment_events" }

// InboundEvent is a payment confirmation as delivered by the payment
// network, before any persistence.
type InboundEvent struct {
	TransactionID     string    `json:"transaction_id"`
	AccountIdentifier string    `json:"account_identifier"`
	Amount            int64     `json:"amount"`
	PaymentMethod     string    `json:"payment_method"`
	Status            string    `json:"status,omitempty"`
	ReferenceType     string    `json:"reference_type,omitempty"`
	Timestamp         time.Time `json:"timestamp,omitempty"`
}

// Validate rejects malformed events before any write.
func (e InboundEvent) Validate() error {
	if e.TransactionID == "" {
		return ErrMissingTransactionID
	}
	if e.AccountIdentifier == "" {
		return ErrMissingAccount
	}
	if e.Amount <= 0 {
		return ErrNonPositiveAmount
	}
	if e.PaymentMethod == "" {
		return ErrMissingMethod
	}
	return nil
}

// statuses the payment network reports that mean the money never moved.
func (e InboundEvent) Failed() bool {
	switch e.Status {
	case "failed", "reversed", "cancelled", "expired":
		return true
	}
	return false
}

var (
	ErrMissingTransactionID = errors.New("missing_transaction_id")
	ErrMissingAccount       = errors.New("missing_account_identifier")
	ErrNonPositiveAmount    = errors.New("non_positive_amount")
	ErrMissingMethod        = errors.New("missing_payment_method")
	ErrDuplicateEvent       = errors.New("duplicate_payment_event")
	ErrPaymentNotFound      = errors.New("payment_not_found")
)
