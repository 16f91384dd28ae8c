package intake

import (
	"context"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/hydranet/hydrabill/internal/clock"
	"github.com/hydranet/hydrabill/internal/observability/metrics"
	"github.com/hydranet/hydrabill/internal/payment/domain"
	"github.com/hydranet/hydrabill/internal/payment/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	queueDepth    = 256
	recoveryBatch = 100
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      repository.Repository
	Processor domain.Service
}

// Intake is the boundary between webhook acceptance and allocation. Accept
// persists the event and returns; a single worker drains the queue so the
// caller is never blocked on allocation.
type Intake struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      repository.Repository
	processor domain.Service

	queue chan domain.EventRecord
	stop  chan struct{}
	wg    sync.WaitGroup
}

func New(p Params) *Intake {
	return &Intake{
		db:        p.DB,
		log:       p.Log.Named("payment.intake"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		processor: p.Processor,
		queue:     make(chan domain.EventRecord, queueDepth),
		stop:      make(chan struct{}),
	}
}

func (i *Intake) Accept(ctx context.Context, event domain.InboundEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	record := &domain.EventRecord{
		ID:                    i.genID.Generate(),
		ExternalTransactionID: event.TransactionID,
		AccountNumber:         event.AccountIdentifier,
		Amount:                event.Amount,
		Method:                event.PaymentMethod,
		EventStatus:           event.Status,
		ReferenceType:         event.ReferenceType,
		State:                 domain.EventStatePending,
		ReceivedAt:            i.clock.Now(),
	}
	inserted, err := i.repo.InsertEvent(ctx, i.db, record)
	if err != nil {
		return err
	}
	if !inserted {
		i.log.Debug("duplicate payment event accepted",
			zap.String("transaction_id", event.TransactionID),
		)
		return domain.ErrDuplicateEvent
	}

	select {
	case i.queue <- *record:
	default:
		// Queue saturated. The row is durable, so the recovery sweep will
		// pick it up.
		i.log.Warn("payment event queue full, deferring to recovery",
			zap.String("transaction_id", event.TransactionID),
		)
	}
	return nil
}

// RecoverPending re-enqueues events that were accepted but never processed.
// Reprocessing is safe: allocation is idempotent on transaction id.
func (i *Intake) RecoverPending(ctx context.Context) (int, error) {
	events, err := i.repo.ListPendingEvents(ctx, i.db, recoveryBatch)
	if err != nil {
		return 0, err
	}
	recovered := 0
	for _, e := range events {
		select {
		case i.queue <- e:
			recovered++
		default:
			return recovered, nil
		}
	}
	return recovered, nil
}

// Run drains the queue until Shutdown. Meant to run as a background
// goroutine for the life of the process.
func (i *Intake) Run() {
	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		for {
			select {
			case <-i.stop:
				return
			case record := <-i.queue:
				i.process(record)
			}
		}
	}()
}

func (i *Intake) Shutdown() {
	close(i.stop)
	i.wg.Wait()
}

func (i *Intake) process(record domain.EventRecord) {
	ctx := context.Background()

	event := domain.InboundEvent{
		TransactionID:     record.ExternalTransactionID,
		AccountIdentifier: record.AccountNumber,
		Amount:            record.Amount,
		PaymentMethod:     record.Method,
		Status:            record.EventStatus,
		ReferenceType:     record.ReferenceType,
		Timestamp:         record.ReceivedAt,
	}

	result, err := i.processor.Process(ctx, event)
	now := i.clock.Now()
	if err != nil {
		i.log.Error("payment event processing failed",
			zap.String("transaction_id", record.ExternalTransactionID),
			zap.Error(err),
		)
		if markErr := i.repo.MarkEventFailed(ctx, i.db, record.ID, err.Error(), now); markErr != nil {
			i.log.Error("mark payment event failed", zap.Error(markErr))
		}
		metrics.Default().CountPaymentEvent("intake_failed")
		return
	}

	if markErr := i.repo.MarkEventProcessed(ctx, i.db, record.ID, now); markErr != nil {
		i.log.Error("mark payment event processed", zap.Error(markErr))
	}
	i.log.Info("payment event processed",
		zap.String("transaction_id", record.ExternalTransactionID),
		zap.String("outcome", string(result.Outcome)),
		zap.Int("allocations", len(result.Allocations)),
	)
}
