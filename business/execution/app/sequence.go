package app

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/apexarb/flasharb/internal/apperror"
	"github.com/apexarb/flasharb/internal/logger"
)

// SequenceManager owns the operating account's strictly increasing
// operation sequence number. The counter only advances on Confirm,
// never optimistically on submission, and at most one reservation may
// be outstanding at a time.
type SequenceManager struct {
	mu       sync.Mutex
	account  common.Address
	syncer   SequenceSyncer
	logger   logger.LoggerInterface
	next     uint64
	synced   bool
	inFlight bool
}

// NewSequenceManager creates an unsynchronized manager; the first
// reservation (or an explicit Sync) pulls the network value.
func NewSequenceManager(account common.Address, syncer SequenceSyncer, log logger.LoggerInterface) *SequenceManager {
	return &SequenceManager{account: account, syncer: syncer, logger: log}
}

// Sync reads the network's authoritative next sequence. Fails when a
// reservation is in flight.
func (m *SequenceManager) Sync(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight {
		return apperror.New(apperror.CodeReservationHeld,
			apperror.WithMessage("cannot resync with a reservation in flight"))
	}
	return m.syncLocked(ctx)
}

func (m *SequenceManager) syncLocked(ctx context.Context) error {
	value, err := m.syncer.NextSequence(ctx, m.account)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeSequenceDrift, "sequence sync")
	}
	if m.synced && value != m.next {
		m.logger.Warn(ctx, "sequence drift detected",
			"local", m.next, "network", value)
	}
	m.next = value
	m.synced = true
	return nil
}

// ReserveNext hands out the current sequence number and holds it until
// the caller reports the outcome via Confirm or AbortAndResync. A
// second reservation before that fails with RESERVATION_HELD.
func (m *SequenceManager) ReserveNext(ctx context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight {
		return 0, apperror.New(apperror.CodeReservationHeld)
	}
	if !m.synced {
		if err := m.syncLocked(ctx); err != nil {
			return 0, err
		}
	}
	m.inFlight = true
	return m.next, nil
}

// Confirm advances the counter by exactly one and releases the
// reservation. Called once the network confirms the operation was
// mined, whether the settlement committed or aborted.
func (m *SequenceManager) Confirm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.inFlight {
		return
	}
	m.next++
	m.inFlight = false
}

// AbortAndResync releases the reservation without advancing and
// re-reads the network value to recover from external drift. Called
// when submission failed before network acceptance.
func (m *SequenceManager) AbortAndResync(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.inFlight {
		return nil
	}
	m.inFlight = false
	m.logger.Info(ctx, "sequence reservation aborted, resyncing", "sequence", m.next)
	return m.syncLocked(ctx)
}

// Next returns the counter value without reserving. For logging.
func (m *SequenceManager) Next() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.next
}
