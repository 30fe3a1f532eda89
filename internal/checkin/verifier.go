// Package checkin verifies scanned or typed tickets and redeems them.
//
// A registration moves from issued (utilized=false) to redeemed
// (utilized=true) exactly once. The store's conditional update arbitrates
// concurrent scans of the same ticket; the loser re-reads the record and
// reports ALREADY_USED.
package checkin

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/campus-events/internal/clock"
	"github.com/robertarktes/campus-events/internal/domain"
	"github.com/robertarktes/campus-events/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTimeout = 3 * time.Second
	defaultRetries = 3

	unknownHolder = "Unknown"
	defaultHolder = "Attendee"
)

// RegistrationStore is the slice of the registration store the verifier needs.
//
// RedeemRegistration must only flip utilized when it is still false, recording
// checkInID alongside. It returns domain.ErrConflict when the precondition
// fails and domain.ErrNotFound when no such registration exists.
type RegistrationStore interface {
	GetRegistration(ctx context.Context, id string) (*domain.Registration, error)
	RedeemRegistration(ctx context.Context, id, checkInID string, at time.Time) error
}

type RedemptionNotifier interface {
	TicketRedeemed(ctx context.Context, reg domain.Registration, at time.Time) error
}

// Checker is anything that turns a raw scan into a result: the Verifier
// itself, or a remote client talking to it.
type Checker interface {
	Verify(ctx context.Context, raw string) domain.VerificationResult
}

type Verifier struct {
	store    RegistrationStore
	clock    clock.Clock
	timeout  time.Duration
	retries  uint
	backoff  func() backoff.BackOff
	notifier RedemptionNotifier
	logger   observability.Logger
	tracer   trace.Tracer
}

type Option func(*Verifier)

// WithTimeout bounds every single store round-trip.
func WithTimeout(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithRetries sets how many times a StoreUnavailable call is retried.
func WithRetries(n uint) Option {
	return func(v *Verifier) {
		v.retries = n
	}
}

func WithBackOff(fn func() backoff.BackOff) Option {
	return func(v *Verifier) {
		if fn != nil {
			v.backoff = fn
		}
	}
}

func WithNotifier(n RedemptionNotifier) Option {
	return func(v *Verifier) {
		v.notifier = n
	}
}

func WithLogger(l observability.Logger) Option {
	return func(v *Verifier) {
		if l != nil {
			v.logger = l
		}
	}
}

func NewVerifier(store RegistrationStore, clk clock.Clock, opts ...Option) *Verifier {
	v := &Verifier{
		store:   store,
		clock:   clk,
		timeout: defaultTimeout,
		retries: defaultRetries,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			b.MaxInterval = time.Second
			return b
		},
		logger: observability.NewNopLogger(),
		tracer: otel.Tracer("checkin"),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ParsePayload decodes a scan payload. Any decoding failure or a missing
// registration id is a MalformedPayload error.
func ParsePayload(raw string) (domain.ScanPayload, error) {
	var p domain.ScanPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &p); err != nil {
		return domain.ScanPayload{}, domain.NewVerificationError(domain.KindMalformedPayload, errors.Wrap(err, "decode scan payload"))
	}
	p.RegistrationID = strings.TrimSpace(p.RegistrationID)
	if p.RegistrationID == "" {
		return domain.ScanPayload{}, domain.NewVerificationError(domain.KindMalformedPayload, errors.New("registration id missing"))
	}
	return p, nil
}

func EncodePayload(p domain.ScanPayload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", errors.Wrap(err, "encode scan payload")
	}
	return string(data), nil
}

// ManualPayload wraps an operator-typed id in the QR payload envelope.
func ManualPayload(id string) string {
	data, _ := json.Marshal(domain.ScanPayload{RegistrationID: strings.TrimSpace(id)})
	return string(data)
}

func (v *Verifier) VerifyManual(ctx context.Context, id string) domain.VerificationResult {
	return v.Verify(ctx, ManualPayload(id))
}

// Verify never returns an error: every failure becomes an INVALID result.
func (v *Verifier) Verify(ctx context.Context, raw string) domain.VerificationResult {
	ctx, span := v.tracer.Start(ctx, "checkin.Verify")
	defer span.End()

	res, err := v.verify(ctx, raw)
	if err != nil {
		res = resultFor(err)
		v.logger.WithField("error_kind", string(res.ErrorKind)).WithError(err).Warn("ticket rejected")
	}

	span.SetAttributes(
		attribute.String("checkin.result", string(res.Kind)),
		attribute.String("checkin.registration_id", res.RegistrationID),
	)
	observability.VerifyResults.WithLabelValues(string(res.Kind)).Inc()
	return res
}

func (v *Verifier) verify(ctx context.Context, raw string) (domain.VerificationResult, error) {
	payload, err := ParsePayload(raw)
	if err != nil {
		return domain.VerificationResult{}, err
	}

	reg, err := v.fetch(ctx, payload.RegistrationID)
	if err != nil {
		return domain.VerificationResult{}, err
	}

	now := v.clock.Now()
	if reg.Utilized {
		return domain.AlreadyUsed(reg.ID, holderName(*reg, unknownHolder), now), nil
	}

	checkInID := uuid.NewString()
	err = v.call(ctx, "redeem", func(ctx context.Context) error {
		return v.store.RedeemRegistration(ctx, reg.ID, checkInID, now)
	})
	if domain.KindOf(err) == domain.KindWriteConflict {
		current, ferr := v.fetch(ctx, reg.ID)
		if ferr != nil {
			return domain.VerificationResult{}, ferr
		}
		// A timed-out attempt of ours may have committed before the retry.
		if current.CheckInID != checkInID {
			return domain.AlreadyUsed(current.ID, holderName(*current, unknownHolder), now), nil
		}
		err = nil
	}
	if err != nil {
		return domain.VerificationResult{}, err
	}

	reg.Utilized = true
	reg.UtilizedAt = &now
	reg.CheckInID = checkInID
	v.notify(ctx, *reg, now)

	return domain.Valid(reg.ID, holderName(*reg, defaultHolder), now), nil
}

func (v *Verifier) fetch(ctx context.Context, id string) (*domain.Registration, error) {
	var reg *domain.Registration
	err := v.call(ctx, "get", func(ctx context.Context) error {
		r, err := v.store.GetRegistration(ctx, id)
		if err != nil {
			return err
		}
		if r == nil {
			return domain.ErrNotFound
		}
		reg = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// call runs one store operation under the per-call timeout, retrying only
// StoreUnavailable failures.
func (v *Verifier) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := 0
	operation := func() (struct{}, error) {
		attempts++
		if attempts > 1 {
			observability.StoreRetries.Inc()
		}

		callCtx, cancel := context.WithTimeout(ctx, v.timeout)
		defer cancel()

		start := time.Now()
		err := classify(fn(callCtx))
		observability.StoreRoundTrip.WithLabelValues(op).Observe(time.Since(start).Seconds())

		if err == nil {
			return struct{}{}, nil
		}
		if !domain.KindOf(err).Retryable() || ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(v.backoff()),
		backoff.WithMaxTries(v.retries+1),
	)
	if err != nil && domain.KindOf(err) == "" {
		// context cancelled between attempts
		return domain.NewVerificationError(domain.KindStoreUnavailable, err)
	}
	return err
}

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case domain.KindOf(err) != "":
		return err
	case errors.Is(err, domain.ErrNotFound):
		return domain.NewVerificationError(domain.KindNotFound, err)
	case errors.Is(err, domain.ErrConflict):
		return domain.NewVerificationError(domain.KindWriteConflict, err)
	default:
		return domain.NewVerificationError(domain.KindStoreUnavailable, err)
	}
}

func resultFor(err error) domain.VerificationResult {
	switch domain.KindOf(err) {
	case domain.KindMalformedPayload:
		return domain.Invalid(domain.KindMalformedPayload, domain.ReasonInvalidPayload)
	case domain.KindNotFound:
		return domain.Invalid(domain.KindNotFound, domain.ReasonNotFound)
	default:
		return domain.Invalid(domain.KindStoreUnavailable, domain.ReasonStoreUnavailable)
	}
}

// notify is bounded by the store timeout; the redemption has already
// committed and stays VALID whatever happens here.
func (v *Verifier) notify(ctx context.Context, reg domain.Registration, at time.Time) {
	if v.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	if err := v.notifier.TicketRedeemed(ctx, reg, at); err != nil {
		v.logger.WithField("registration_id", reg.ID).WithError(err).Error("failed to announce redemption")
	}
}

func holderName(reg domain.Registration, fallback string) string {
	if reg.UserName == "" {
		return fallback
	}
	return reg.UserName
}
