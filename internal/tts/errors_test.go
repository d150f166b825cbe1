package tts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestProviderErrorMatchesSentinels(t *testing.T) {
	cases := []struct {
		kind     ErrorKind
		sentinel error
		status   int
	}{
		{KindQuota, ErrQuotaExceeded, http.StatusPaymentRequired},
		{KindValidation, ErrValidation, http.StatusBadRequest},
		{KindTransport, ErrTransport, http.StatusBadGateway},
	}
	for _, tc := range cases {
		err := fmt.Errorf("wrapped: %w", NewProviderError(tc.kind, errors.New("boom")))
		if !errors.Is(err, tc.sentinel) {
			t.Fatalf("%s error should match its sentinel", tc.kind)
		}
		if KindOf(err) != tc.kind {
			t.Fatalf("expected kind %s, got %s", tc.kind, KindOf(err))
		}
		if HTTPStatus(KindOf(err)) != tc.status {
			t.Fatalf("expected status %d for %s", tc.status, tc.kind)
		}
		if ParseKind(tc.kind.String()) != tc.kind {
			t.Fatalf("kind %s does not round trip", tc.kind)
		}
	}
}

func TestKindOfUnknownErrors(t *testing.T) {
	if KindOf(errors.New("x")) != KindTransport {
		t.Fatalf("plain errors should be transport")
	}
	if KindOf(context.Canceled) != KindTransport {
		t.Fatalf("cancellation should be transport")
	}
	if ParseKind("nope") != KindTransport {
		t.Fatalf("unknown kind names should map to transport")
	}
}

func TestSegmentErrorKeepsKind(t *testing.T) {
	base := NewProviderError(KindValidation, errors.New("bad voice"))
	err := segmentError(4, base)
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError")
	}
	if pe.Kind != KindValidation || pe.Segment != 4 {
		t.Fatalf("unexpected tag %+v", pe)
	}
	if got := err.Error(); got != "validation error on segment 4: bad voice" {
		t.Fatalf("unexpected message %q", got)
	}
}
