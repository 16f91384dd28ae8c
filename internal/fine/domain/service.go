package domain

import (
	"context"

	"github.com/hydranet/hydrabill/internal/notification"
)

// AssessSummary reports a fine assessment run. Skipped covers bills whose
// computed fine fell under the minimum or that already carry a fine.
type AssessSummary struct {
	Eligible      int
	Applied       int
	Skipped       int
	Failed        int
	Notifications []notification.Message
}

func (s AssessSummary) Counts() map[string]any {
	return map[string]any{
		"eligible": s.Eligible,
		"applied":  s.Applied,
		"skipped":  s.Skipped,
		"failed":   s.Failed,
	}
}

type Service interface {
	// AssessOverdue fines every bill whose grace period has lapsed.
	AssessOverdue(ctx context.Context) (AssessSummary, error)
}
