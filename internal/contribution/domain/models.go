package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type ContributionStatus string

const (
	ContributionStatusPending   ContributionStatus = "pending"
	ContributionStatusPartial   ContributionStatus = "partial"
	ContributionStatusCompleted ContributionStatus = "completed"
	ContributionStatusOverdue   ContributionStatus = "overdue"
)

// Contribution is one monthly community levy for one customer. Unlike bills
// it carries no balance forward: each month stands alone.
type Contribution struct {
	ID                snowflake.ID       `gorm:"primaryKey" json:"id"`
	CustomerID        snowflake.ID       `gorm:"not null;index;uniqueIndex:ux_contributions_customer_month,priority:1" json:"customer_id"`
	ContributionMonth time.Time          `gorm:"not null;uniqueIndex:ux_contributions_customer_month,priority:2" json:"contribution_month"`
	AmountRequired    int64              `gorm:"not null" json:"amount_required"`
	AmountPaid        int64              `gorm:"not null;default:0" json:"amount_paid"`
	DueDate           time.Time          `gorm:"not null;index" json:"due_date"`
	Status            ContributionStatus `gorm:"type:text;not null;default:'pending'" json:"status"`
	CreatedAt         time.Time          `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time          `gorm:"not null" json:"updated_at"`
}

func (Contribution) TableName() string { return "contributions" }

// Outstanding is the unpaid remainder of the contribution.
func (c Contribution) Outstanding() int64 {
	remaining := c.AmountRequired - c.AmountPaid
	if remaining < 0 {
		return 0
	}
	return remaining
}

var ErrContributionNotFound = errors.New("contribution_not_found")
