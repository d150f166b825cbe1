package tts

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies provider failures so callers can tell retryable
// failures from terminal ones.
type ErrorKind int

const (
	KindTransport ErrorKind = iota
	KindQuota
	KindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case KindQuota:
		return "quota"
	case KindValidation:
		return "validation"
	default:
		return "transport"
	}
}

// ParseKind is the inverse of ErrorKind.String. Unknown names map to transport.
func ParseKind(name string) ErrorKind {
	switch name {
	case "quota":
		return KindQuota
	case "validation":
		return KindValidation
	default:
		return KindTransport
	}
}

var (
	// ErrQuotaExceeded matches provider errors caused by exhausted credits or payment.
	ErrQuotaExceeded = errors.New("provider quota insufficient")

	// ErrValidation matches provider errors caused by bad request parameters.
	ErrValidation = errors.New("provider rejected request")

	// ErrTransport matches network and generic provider failures.
	ErrTransport = errors.New("provider transport error")
)

// ProviderError is the error returned by the synthesis pipeline.
type ProviderError struct {
	Kind    ErrorKind
	Segment int // -1 when the failure is not tied to a segment
	Err     error
}

// NewProviderError wraps err with kind.
func NewProviderError(kind ErrorKind, err error) *ProviderError {
	return &ProviderError{Kind: kind, Segment: -1, Err: err}
}

func (e *ProviderError) Error() string {
	if e.Segment >= 0 {
		return fmt.Sprintf("%s error on segment %d: %v", e.Kind, e.Segment, e.Err)
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrQuotaExceeded:
		return e.Kind == KindQuota
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrTransport:
		return e.Kind == KindTransport
	}
	return false
}

// KindOf classifies any error. Unknown errors, cancellations and timeouts
// count as transport failures.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		return KindQuota
	case errors.Is(err, ErrValidation):
		return KindValidation
	}
	return KindTransport
}

// HTTPStatus maps a failure kind to the status reported to HTTP callers.
func HTTPStatus(kind ErrorKind) int {
	switch kind {
	case KindQuota:
		return http.StatusPaymentRequired
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// segmentError tags err with the failing segment, keeping its kind.
func segmentError(index int, err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return &ProviderError{Kind: pe.Kind, Segment: index, Err: pe.Err}
	}
	return &ProviderError{Kind: KindOf(err), Segment: index, Err: err}
}
