package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hydranet/hydrabill/internal/clock"
	customerdomain "github.com/hydranet/hydrabill/internal/customer/domain"
	"github.com/hydranet/hydrabill/internal/locks"
	"github.com/hydranet/hydrabill/internal/notification"
	"github.com/hydranet/hydrabill/internal/observability/metrics"
	"github.com/hydranet/hydrabill/internal/payment/domain"
	"github.com/hydranet/hydrabill/internal/payment/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	allocationLockTTL   = 30 * time.Second
	allocationLockWait  = 100 * time.Millisecond
	allocationLockTries = 50
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       repository.Repository
	Customer   customerdomain.Repository
	Mutex      *locks.KeyedMutex
	Locker     *locks.Locker `optional:"true"`
	Dispatcher *notification.Dispatcher
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       repository.Repository
	customer   customerdomain.Repository
	mutex      *locks.KeyedMutex
	locker     *locks.Locker
	dispatcher *notification.Dispatcher
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		customer:   p.Customer,
		mutex:      p.Mutex,
		locker:     p.Locker,
		dispatcher: p.Dispatcher,
	}
}

func (s *Service) Process(ctx context.Context, event domain.InboundEvent) (domain.AllocationResult, error) {
	var result domain.AllocationResult

	if err := event.Validate(); err != nil {
		result.Outcome = domain.OutcomeRejected
		metrics.Default().CountPaymentEvent("rejected")
		return result, err
	}

	cust, err := s.customer.FindByAccountNumber(ctx, s.db, event.AccountIdentifier)
	if err != nil {
		return result, fmt.Errorf("find customer: %w", err)
	}
	if cust == nil {
		result.Outcome = domain.OutcomeRejected
		metrics.Default().CountPaymentEvent("unknown_account")
		return result, customerdomain.ErrNotFound
	}

	// Allocations for one customer are serialized: in-process via the keyed
	// mutex, across processes via the optional redis lock.
	lockKey := fmt.Sprintf("alloc:%d", cust.ID)
	s.mutex.Lock(lockKey)
	defer s.mutex.Unlock(lockKey)

	token, err := s.acquireSharedLock(ctx, lockKey)
	if err != nil {
		return result, err
	}
	if token != "" {
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), lockKey, token); err != nil {
				s.log.Warn("release allocation lock", zap.String("key", lockKey), zap.Error(err))
			}
		}()
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindPaymentByTransactionID(ctx, tx, event.TransactionID)
		if err != nil {
			return err
		}
		if existing != nil {
			s.log.Debug("duplicate payment delivery",
				zap.String("transaction_id", event.TransactionID),
			)
			result.Outcome = domain.OutcomeDuplicate
			result.PaymentID = existing.ID
			return nil
		}

		now := s.clock.Now()
		paidAt := event.Timestamp
		if paidAt.IsZero() {
			paidAt = now
		}
		payment := &domain.Payment{
			ID:                    s.genID.Generate(),
			CustomerID:            cust.ID,
			ExternalTransactionID: event.TransactionID,
			Amount:                event.Amount,
			Method:                event.PaymentMethod,
			Status:                domain.PaymentStatusCompleted,
			PaidAt:                paidAt,
			CreatedAt:             now,
			UpdatedAt:             now,
		}

		if event.Failed() {
			payment.Status = domain.PaymentStatusFailed
			inserted, err := s.repo.InsertPayment(ctx, tx, payment)
			if err != nil {
				return err
			}
			if !inserted {
				return s.markDuplicate(ctx, tx, event.TransactionID, &result)
			}
			result.Outcome = domain.OutcomeFailed
			result.PaymentID = payment.ID
			return nil
		}

		inserted, err := s.repo.InsertPayment(ctx, tx, payment)
		if err != nil {
			return err
		}
		if !inserted {
			// Lost a cross-process race after the duplicate check; the
			// conflict target makes this a clean no-op instead of an error.
			return s.markDuplicate(ctx, tx, event.TransactionID, &result)
		}

		allocations, err := s.allocate(ctx, tx, payment, event.ReferenceType, now)
		if err != nil {
			return err
		}
		result.Outcome = domain.OutcomeAllocated
		result.PaymentID = payment.ID
		result.Allocations = allocations
		return nil
	})
	if err != nil {
		metrics.Default().CountPaymentEvent("store_failure")
		return domain.AllocationResult{}, err
	}

	metrics.Default().CountPaymentEvent(string(result.Outcome))
	if result.Outcome == domain.OutcomeAllocated {
		for _, a := range result.Allocations {
			metrics.Default().CountAllocation(string(a.TargetType))
		}
		s.notifyConfirmation(ctx, cust, event, result.Allocations)
	}
	return result, nil
}

func (s *Service) markDuplicate(ctx context.Context, tx *gorm.DB, txnID string, result *domain.AllocationResult) error {
	s.log.Debug("duplicate payment delivery", zap.String("transaction_id", txnID))
	result.Outcome = domain.OutcomeDuplicate
	existing, err := s.repo.FindPaymentByTransactionID(ctx, tx, txnID)
	if err != nil {
		return err
	}
	if existing != nil {
		result.PaymentID = existing.ID
	}
	return nil
}

// acquireSharedLock spins on the redis lock when one is configured. The
// in-process mutex is already held, so contention here only comes from other
// processes.
func (s *Service) acquireSharedLock(ctx context.Context, key string) (string, error) {
	if s.locker == nil {
		return "", nil
	}
	for i := 0; i < allocationLockTries; i++ {
		token, ok, err := s.locker.TryLock(ctx, key, allocationLockTTL)
		if err != nil {
			return "", fmt.Errorf("acquire allocation lock: %w", err)
		}
		if ok {
			return token, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(allocationLockWait):
		}
	}
	return "", fmt.Errorf("allocation lock busy: %s", key)
}

// allocate distributes the payment across the customer's obligations in
// strict priority order, crediting any remainder as an advance. The sum of
// allocation amounts always equals the payment amount.
func (s *Service) allocate(ctx context.Context, tx *gorm.DB, payment *domain.Payment, referenceType string, now time.Time) ([]domain.Allocation, error) {
	var allocations []domain.Allocation
	remaining := payment.Amount

	for _, target := range allocationOrder(referenceType) {
		if remaining <= 0 {
			break
		}
		var err error
		switch target {
		case domain.TargetBill:
			allocations, remaining, err = s.allocateBills(ctx, tx, payment, allocations, remaining, now)
		case domain.TargetFine:
			allocations, remaining, err = s.allocateFines(ctx, tx, payment, allocations, remaining, now)
		case domain.TargetContribution:
			allocations, remaining, err = s.allocateContributions(ctx, tx, payment, allocations, remaining, now)
		}
		if err != nil {
			return nil, err
		}
	}

	if remaining > 0 {
		advance := domain.Allocation{
			ID:         s.genID.Generate(),
			PaymentID:  payment.ID,
			TargetType: domain.TargetAdvance,
			Amount:     remaining,
			CreatedAt:  now,
		}
		if err := s.repo.InsertAllocation(ctx, tx, &advance); err != nil {
			return nil, err
		}
		allocations = append(allocations, advance)
	}
	return allocations, nil
}

// allocationOrder is bills, fines, contributions; a reference hint promotes
// its category to the front without disturbing the rest of the order.
func allocationOrder(referenceType string) []domain.TargetType {
	order := []domain.TargetType{domain.TargetBill, domain.TargetFine, domain.TargetContribution}
	hint := domain.TargetType(referenceType)
	for i, t := range order {
		if t == hint && i > 0 {
			return append([]domain.TargetType{t}, append(order[:i:i], order[i+1:]...)...)
		}
	}
	return order
}

func (s *Service) allocateBills(ctx context.Context, tx *gorm.DB, payment *domain.Payment, allocations []domain.Allocation, remaining int64, now time.Time) ([]domain.Allocation, int64, error) {
	bills, err := s.repo.ListOpenBills(ctx, tx, payment.CustomerID)
	if err != nil {
		return nil, 0, err
	}
	for _, bill := range bills {
		if remaining <= 0 {
			break
		}
		outstanding := bill.Outstanding()
		amount := min(remaining, outstanding)
		settled := amount == outstanding
		if err := s.repo.ApplyToBill(ctx, tx, bill.ID, amount, settled, now); err != nil {
			return nil, 0, err
		}
		targetID := bill.ID
		alloc := domain.Allocation{
			ID:         s.genID.Generate(),
			PaymentID:  payment.ID,
			TargetType: domain.TargetBill,
			TargetID:   &targetID,
			Amount:     amount,
			CreatedAt:  now,
		}
		if err := s.repo.InsertAllocation(ctx, tx, &alloc); err != nil {
			return nil, 0, err
		}
		allocations = append(allocations, alloc)
		remaining -= amount
	}
	return allocations, remaining, nil
}

func (s *Service) allocateFines(ctx context.Context, tx *gorm.DB, payment *domain.Payment, allocations []domain.Allocation, remaining int64, now time.Time) ([]domain.Allocation, int64, error) {
	fines, err := s.repo.ListOpenFines(ctx, tx, payment.CustomerID)
	if err != nil {
		return nil, 0, err
	}
	for _, fine := range fines {
		if remaining <= 0 {
			break
		}
		outstanding := fine.Outstanding()
		amount := min(remaining, outstanding)
		settled := amount == outstanding
		if err := s.repo.ApplyToFine(ctx, tx, fine.ID, amount, settled, now); err != nil {
			return nil, 0, err
		}
		targetID := fine.ID
		alloc := domain.Allocation{
			ID:         s.genID.Generate(),
			PaymentID:  payment.ID,
			TargetType: domain.TargetFine,
			TargetID:   &targetID,
			Amount:     amount,
			CreatedAt:  now,
		}
		if err := s.repo.InsertAllocation(ctx, tx, &alloc); err != nil {
			return nil, 0, err
		}
		allocations = append(allocations, alloc)
		remaining -= amount
	}
	return allocations, remaining, nil
}

func (s *Service) allocateContributions(ctx context.Context, tx *gorm.DB, payment *domain.Payment, allocations []domain.Allocation, remaining int64, now time.Time) ([]domain.Allocation, int64, error) {
	contributions, err := s.repo.ListOpenContributions(ctx, tx, payment.CustomerID)
	if err != nil {
		return nil, 0, err
	}
	for _, c := range contributions {
		if remaining <= 0 {
			break
		}
		outstanding := c.Outstanding()
		amount := min(remaining, outstanding)
		settled := amount == outstanding
		if err := s.repo.ApplyToContribution(ctx, tx, c.ID, amount, settled, now); err != nil {
			return nil, 0, err
		}
		targetID := c.ID
		alloc := domain.Allocation{
			ID:         s.genID.Generate(),
			PaymentID:  payment.ID,
			TargetType: domain.TargetContribution,
			TargetID:   &targetID,
			Amount:     amount,
			CreatedAt:  now,
		}
		if err := s.repo.InsertAllocation(ctx, tx, &alloc); err != nil {
			return nil, 0, err
		}
		allocations = append(allocations, alloc)
		remaining -= amount
	}
	return allocations, remaining, nil
}

// notifyConfirmation sends a single confirmation. Delivery failure never
// affects the committed allocation.
func (s *Service) notifyConfirmation(ctx context.Context, cust *customerdomain.Customer, event domain.InboundEvent, allocations []domain.Allocation) {
	if cust.Phone == "" {
		return
	}
	var advance int64
	for _, a := range allocations {
		if a.TargetType == domain.TargetAdvance {
			advance += a.Amount
		}
	}
	s.dispatcher.Dispatch(ctx, []notification.Message{{
		Recipient:    cust.Phone,
		TemplateType: notification.TemplatePaymentConfirmation,
		Variables: map[string]any{
			"customer_name":  cust.Name,
			"transaction_id": event.TransactionID,
			"amount":         event.Amount,
			"method":         event.PaymentMethod,
			"advance_credit": advance,
		},
	}})
}
