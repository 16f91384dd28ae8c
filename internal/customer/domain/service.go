package domain

import "context"

// BalanceBreakdown splits outstanding obligations by category, in minor units.
type BalanceBreakdown struct {
	Bills         int64 `json:"bills"`
	Fines         int64 `json:"fines"`
	Contributions int64 `json:"contributions"`
}

// ValidationResult answers the payment network's pre-payment customer check.
type ValidationResult struct {
	Exists             bool             `json:"exists"`
	Active             bool             `json:"active"`
	Name               string           `json:"name,omitempty"`
	OutstandingBalance int64            `json:"outstanding_balance"`
	Breakdown          BalanceBreakdown `json:"breakdown"`
}

type Service interface {
	Validate(ctx context.Context, accountNumber string) (ValidationResult, error)
}
