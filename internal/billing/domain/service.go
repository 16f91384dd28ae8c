package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hydranet/hydrabill/internal/notification"
)

// GenerateRequest asks for one bill per eligible customer for Month.
// CustomerIDs optionally restricts the run.
type GenerateRequest struct {
	Month       time.Time
	CustomerIDs []snowflake.ID
}

// GenerateSummary reports a generation run. Notifications are produced, not
// sent: the generator is a pure data producer plus persistence.
type GenerateSummary struct {
	Eligible      int
	Generated     int
	Skipped       int
	Failed        int
	Notifications []notification.Message
}

// Counts returns the bounded payload recorded in the job audit trail.
func (s GenerateSummary) Counts() map[string]any {
	return map[string]any{
		"eligible":  s.Eligible,
		"generated": s.Generated,
		"skipped":   s.Skipped,
		"failed":    s.Failed,
	}
}

type Service interface {
	GenerateForMonth(ctx context.Context, req GenerateRequest) (GenerateSummary, error)
}
