package idempotency

import (
	"context"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	redisadapter "github.com/robertarktes/campus-events/internal/adapters/redis"
)

// Store is the persistence behind Idempotency.
type Store interface {
	Get(ctx context.Context, key string) (*redisadapter.IdempResponse, error)
	Set(ctx context.Context, key string, resp redisadapter.IdempResponse, ttl time.Duration) error
}

type Idempotency struct {
	store Store
	ttl   time.Duration
}

func NewIdempotency(store Store, ttl time.Duration) *Idempotency {
	return &Idempotency{store: store, ttl: ttl}
}

type Response struct {
	Status int
	Result []byte
	// Fingerprint identifies the request body the response was produced for.
	Fingerprint string
}

// Get returns the stored response for key, or nil when the key is new or empty.
func (i *Idempotency) Get(ctx context.Context, key string) (*Response, error) {
	if key == "" {
		return nil, nil
	}
	stored, err := i.store.Get(ctx, key)
	if err != nil || stored == nil {
		return nil, err
	}
	return &Response{Status: stored.Status, Result: stored.Result, Fingerprint: stored.Fingerprint}, nil
}

func (i *Idempotency) Set(ctx context.Context, key string, resp Response) error {
	if key == "" {
		return nil
	}
	return i.store.Set(ctx, key, redisadapter.IdempResponse{Status: resp.Status, Result: resp.Result, Fingerprint: resp.Fingerprint}, i.ttl)
}

// Fingerprint hashes a request body for comparison against a stored response.
func Fingerprint(body []byte) string {
	return strconv.FormatUint(xxhash.Sum64(body), 16)
}

// Matches reports whether a stored response was produced for the request
// with the given fingerprint. Records written without one match anything.
func (r *Response) Matches(fingerprint string) bool {
	return r.Fingerprint == "" || r.Fingerprint == fingerprint
}
