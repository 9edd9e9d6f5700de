package app

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/apexarb/flasharb/internal/apperror"
	"github.com/apexarb/flasharb/internal/logger"
)

type fakeSyncer struct {
	value uint64
	err   error
	calls int
}

func (f *fakeSyncer) NextSequence(ctx context.Context, account common.Address) (uint64, error) {
	f.calls++
	return f.value, f.err
}

var testAccount = common.HexToAddress("0x00000000000000000000000000000000000000ee")

func newManager(syncer *fakeSyncer) *SequenceManager {
	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	return NewSequenceManager(testAccount, syncer, log)
}

func TestSequenceManager_ConfirmAdvancesExactlyOne(t *testing.T) {
	syncer := &fakeSyncer{value: 7}
	m := newManager(syncer)

	seq, err := m.ReserveNext(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if seq != 7 {
		t.Fatalf("first reservation = %d, want network value 7", seq)
	}

	m.Confirm()
	m.Confirm() // double confirm must not advance twice

	seq, err = m.ReserveNext(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if seq != 8 {
		t.Errorf("after one confirm next = %d, want 8", seq)
	}
}

func TestSequenceManager_SingleReservation(t *testing.T) {
	m := newManager(&fakeSyncer{value: 1})

	if _, err := m.ReserveNext(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := m.ReserveNext(context.Background()); !errors.Is(err, apperror.New(apperror.CodeReservationHeld)) {
		t.Errorf("second reservation error = %v, want RESERVATION_HELD", err)
	}
	if err := m.Sync(context.Background()); !errors.Is(err, apperror.New(apperror.CodeReservationHeld)) {
		t.Errorf("sync during reservation error = %v, want RESERVATION_HELD", err)
	}
}

func TestSequenceManager_AbortResyncsToNetwork(t *testing.T) {
	syncer := &fakeSyncer{value: 3}
	m := newManager(syncer)

	if _, err := m.ReserveNext(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Another process consumed slots while our submission failed.
	syncer.value = 11
	if err := m.AbortAndResync(context.Background()); err != nil {
		t.Fatal(err)
	}

	if got := m.Next(); got != 11 {
		t.Errorf("after resync next = %d, want the network value 11", got)
	}

	seq, err := m.ReserveNext(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if seq != 11 {
		t.Errorf("reservation after resync = %d, want 11", seq)
	}
}

func TestSequenceManager_SyncFailureSurfaces(t *testing.T) {
	syncer := &fakeSyncer{err: errors.New("rpc down")}
	m := newManager(syncer)

	if _, err := m.ReserveNext(context.Background()); !errors.Is(err, apperror.New(apperror.CodeSequenceDrift)) {
		t.Errorf("reserve with failing sync = %v, want SEQUENCE_DRIFT", err)
	}
}
