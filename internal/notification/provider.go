package notification

import "context"

// Template types the core emits. The transport renders them; the core only
// produces recipient + variables.
const (
	TemplateBillGenerated       = "bill_generated"
	TemplateContributionDue     = "contribution_due"
	TemplateFineApplied         = "fine_applied"
	TemplatePaymentConfirmation = "payment_confirmation"
)

// Message is one templated notification for one customer.
type Message struct {
	Recipient    string
	TemplateType string
	Variables    map[string]any
}

type Result struct {
	Success   bool
	MessageID string
	Err       error
}

// Provider is the outbound transport contract. The core never depends on a
// send succeeding.
type Provider interface {
	Send(ctx context.Context, msg Message) Result
}

type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, msg Message) Result {
	return Result{Success: true}
}
