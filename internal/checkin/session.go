package checkin

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/campus-events/internal/domain"
)

type State int

const (
	StateAwaiting State = iota
	StateVerifying
	StateShowingResult
)

func (s State) String() string {
	switch s {
	case StateAwaiting:
		return "awaiting"
	case StateVerifying:
		return "verifying"
	case StateShowingResult:
		return "showing_result"
	default:
		return "unknown"
	}
}

var ErrScanInProgress = errors.New("scan already in progress, reset before scanning again")

// Session is the per-device scan guard. Once a payload is accepted, further
// captures are dropped until the operator resets ("scan next"). Reset also
// clears the last result.
type Session struct {
	mu    sync.Mutex
	state State
	last  *domain.VerificationResult
}

func NewSession() *Session {
	return &Session{state: StateAwaiting}
}

func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAwaiting {
		return ErrScanInProgress
	}
	s.state = StateVerifying
	s.last = nil
	return nil
}

func (s *Session) Finish(res domain.VerificationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateShowingResult
	s.last = &res
}

func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateAwaiting
	s.last = nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Last() (domain.VerificationResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return domain.VerificationResult{}, false
	}
	return *s.last, true
}

// Submit runs one guarded verification. The session stays in the result
// state until Reset is called.
func (s *Session) Submit(ctx context.Context, c Checker, raw string) (domain.VerificationResult, error) {
	if err := s.Begin(); err != nil {
		return domain.VerificationResult{}, err
	}
	res := c.Verify(ctx, raw)
	s.Finish(res)
	return res, nil
}
