package domain

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
)

// ScanPayload is the JSON encoded in a ticket QR code. Manual entry wraps the
// typed id in the same shape. EventID and UserID are informational only.
type ScanPayload struct {
	RegistrationID string `json:"registrationId"`
	EventID        string `json:"eventId,omitempty"`
	UserID         string `json:"userId,omitempty"`
}

type ResultKind string

const (
	ResultValid       ResultKind = "VALID"
	ResultAlreadyUsed ResultKind = "ALREADY_USED"
	ResultInvalid     ResultKind = "INVALID"
)

const (
	ReasonInvalidPayload   = "Invalid Ticket QR Code"
	ReasonNotFound         = "Ticket not found in database"
	ReasonStoreUnavailable = "Ticket service unavailable"
)

// VerificationResult is handed to the presentation layer and never persisted.
type VerificationResult struct {
	Kind           ResultKind `json:"kind"`
	RegistrationID string     `json:"registration_id,omitempty"`
	HolderName     string     `json:"holder_name,omitempty"`
	CheckTime      time.Time  `json:"check_time,omitempty"`
	Reason         string     `json:"reason,omitempty"`
	ErrorKind      ErrorKind  `json:"error_kind,omitempty"`
}

func Valid(id, holder string, at time.Time) VerificationResult {
	return VerificationResult{Kind: ResultValid, RegistrationID: id, HolderName: holder, CheckTime: at}
}

func AlreadyUsed(id, holder string, at time.Time) VerificationResult {
	return VerificationResult{Kind: ResultAlreadyUsed, RegistrationID: id, HolderName: holder, CheckTime: at, ErrorKind: KindAlreadyRedeemed}
}

func Invalid(kind ErrorKind, reason string) VerificationResult {
	return VerificationResult{Kind: ResultInvalid, Reason: reason, ErrorKind: kind}
}

type ErrorKind string

const (
	KindMalformedPayload ErrorKind = "MALFORMED_PAYLOAD"
	KindNotFound         ErrorKind = "NOT_FOUND"
	KindAlreadyRedeemed  ErrorKind = "ALREADY_REDEEMED"
	KindStoreUnavailable ErrorKind = "STORE_UNAVAILABLE"
	KindWriteConflict    ErrorKind = "WRITE_CONFLICT"
)

type VerificationError struct {
	Kind ErrorKind
	Err  error
}

func NewVerificationError(kind ErrorKind, err error) *VerificationError {
	return &VerificationError{Kind: kind, Err: err}
}

func (e *VerificationError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

// KindOf returns the verification kind carried by err, or "" if none.
func KindOf(err error) ErrorKind {
	var ve *VerificationError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return ""
}

// Retryable reports whether a failure may succeed on a later attempt.
func (k ErrorKind) Retryable() bool {
	return k == KindStoreUnavailable
}
