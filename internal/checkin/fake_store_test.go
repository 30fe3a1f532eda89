package checkin

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/campus-events/internal/domain"
)

type fakeStore struct {
	mu      sync.Mutex
	regs    map[string]domain.Registration
	gets    int
	redeems int
	writes  int

	// the first `barrier` reads block until all of them have taken a snapshot
	barrier  int
	released chan struct{}

	failGets      int
	failRedeems   int
	loseRedeemAck bool
	blockGets     bool
}

func newFakeStore(regs ...domain.Registration) *fakeStore {
	f := &fakeStore{regs: map[string]domain.Registration{}, released: make(chan struct{})}
	for _, r := range regs {
		f.regs[r.ID] = r
	}
	return f
}

func (f *fakeStore) GetRegistration(ctx context.Context, id string) (*domain.Registration, error) {
	f.mu.Lock()
	f.gets++
	n := f.gets
	reg, ok := f.regs[id]
	fail := f.failGets > 0
	if fail {
		f.failGets--
	}
	block := f.blockGets
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if fail {
		return nil, errors.New("connection reset by peer")
	}
	if f.barrier > 0 && n <= f.barrier {
		if n == f.barrier {
			close(f.released)
		}
		select {
		case <-f.released:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &reg, nil
}

func (f *fakeStore) RedeemRegistration(ctx context.Context, id, checkInID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.redeems++
	if f.failRedeems > 0 {
		f.failRedeems--
		return errors.New("i/o timeout")
	}
	reg, ok := f.regs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if reg.Utilized {
		return domain.ErrConflict
	}
	reg.Utilized = true
	reg.UtilizedAt = &at
	reg.CheckInID = checkInID
	f.regs[id] = reg
	f.writes++
	if f.loseRedeemAck {
		f.loseRedeemAck = false
		return errors.New("i/o timeout")
	}
	return nil
}

func (f *fakeStore) counts() (gets, redeems, writes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets, f.redeems, f.writes
}

func (f *fakeStore) registration(id string) domain.Registration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.regs[id]
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *recordingNotifier) TicketRedeemed(ctx context.Context, reg domain.Registration, at time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, reg.ID)
	return nil
}

// hangingNotifier blocks until its context gives up.
type hangingNotifier struct{}

func (hangingNotifier) TicketRedeemed(ctx context.Context, reg domain.Registration, at time.Time) error {
	<-ctx.Done()
	return ctx.Err()
}
