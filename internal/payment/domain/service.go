package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type AllocationOutcome string

const (
	OutcomeAllocated AllocationOutcome = "allocated"
	OutcomeDuplicate AllocationOutcome = "duplicate"
	OutcomeFailed    AllocationOutcome = "failed"
	OutcomeRejected  AllocationOutcome = "rejected"
)

// AllocationResult reports how one inbound event was settled. Allocations is
// empty for duplicate, failed-status, and rejected events.
type AllocationResult struct {
	Outcome     AllocationOutcome
	PaymentID   snowflake.ID
	Allocations []Allocation
}

// Service is the payment allocation engine. Process is safe to call
// concurrently: allocations for the same customer are serialized.
type Service interface {
	Process(ctx context.Context, event InboundEvent) (AllocationResult, error)
}

// Intake accepts raw payment events at the boundary, recording them durably
// before asynchronous allocation.
type Intake interface {
	// Accept validates and persists the event. A nil error means the event
	// is durably queued; ErrDuplicateEvent means it was already accepted.
	Accept(ctx context.Context, event InboundEvent) error
	// RecoverPending re-enqueues events that were accepted but never
	// processed, e.g. after a crash.
	RecoverPending(ctx context.Context) (int, error)
}
