package scheduler

import (
	"context"
	"errors"

	billingdomain "github.com/hydranet/hydrabill/internal/billing/domain"
	"github.com/hydranet/hydrabill/internal/clock"
	contributiondomain "github.com/hydranet/hydrabill/internal/contribution/domain"
	finedomain "github.com/hydranet/hydrabill/internal/fine/domain"
	"github.com/hydranet/hydrabill/internal/notification"
	paymentdomain "github.com/hydranet/hydrabill/internal/payment/domain"
	"go.uber.org/fx"
)

const (
	JobBillingGeneration      = "billing_generation"
	JobContributionGeneration = "contribution_generation"
	JobFineAssessment         = "fine_assessment"
	JobPaymentRecovery        = "payment_recovery"
)

type JobsParams struct {
	fx.In

	Orchestrator    *Orchestrator
	Clock           clock.Clock
	BillingSvc      billingdomain.Service
	ContributionSvc contributiondomain.Service
	FineSvc         finedomain.Service
	Intake          paymentdomain.Intake
	Dispatcher      *notification.Dispatcher
}

// RegisterJobs binds the production job set to the orchestrator. Each job
// dispatches its notifications after the financial writes have committed.
func RegisterJobs(p JobsParams) error {
	cfg := p.Orchestrator.cfg

	return errors.Join(
		p.Orchestrator.Register(Job{
			Name: JobBillingGeneration,
			Spec: cfg.BillingSpec,
			Run: func(ctx context.Context) (map[string]any, error) {
				summary, err := p.BillingSvc.GenerateForMonth(ctx, billingdomain.GenerateRequest{
					Month: p.Clock.Now(),
				})
				p.Dispatcher.Dispatch(ctx, summary.Notifications)
				return summary.Counts(), err
			},
		}),
		p.Orchestrator.Register(Job{
			Name: JobContributionGeneration,
			Spec: cfg.ContributionSpec,
			Run: func(ctx context.Context) (map[string]any, error) {
				summary, err := p.ContributionSvc.GenerateForMonth(ctx, contributiondomain.GenerateRequest{
					Month: p.Clock.Now(),
				})
				p.Dispatcher.Dispatch(ctx, summary.Notifications)
				return summary.Counts(), err
			},
		}),
		p.Orchestrator.Register(Job{
			Name: JobFineAssessment,
			Spec: cfg.FineSpec,
			Run: func(ctx context.Context) (map[string]any, error) {
				summary, err := p.FineSvc.AssessOverdue(ctx)
				p.Dispatcher.Dispatch(ctx, summary.Notifications)
				return summary.Counts(), err
			},
		}),
		p.Orchestrator.Register(Job{
			Name: JobPaymentRecovery,
			Spec: cfg.RecoverySpec,
			Run: func(ctx context.Context) (map[string]any, error) {
				recovered, err := p.Intake.RecoverPending(ctx)
				return map[string]any{"recovered": recovered}, err
			},
		}),
	)
}
