package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hydranet/hydrabill/internal/notification"
)

type GenerateRequest struct {
	Month       time.Time
	CustomerIDs []snowflake.ID
}

type GenerateSummary struct {
	Eligible      int
	Generated     int
	Skipped       int
	Failed        int
	Notifications []notification.Message
}

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
