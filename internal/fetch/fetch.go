// Package fetch retrieves raw listing batches from the two marketplaces.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"

	"riven-sniper/internal/model"
)

// ErrorKind classifies a fetch failure for backoff handling.
type ErrorKind string

const (
	KindNetwork     ErrorKind = "network"
	KindRateLimited ErrorKind = "rate_limited"
	KindTimeout     ErrorKind = "timeout"
	KindServerError ErrorKind = "server_error"
)

// FetchError wraps a failed poll attempt against one marketplace. The poller
// recovers from these locally via backoff; they never propagate past the
// per-source cycle.
type FetchError struct {
	Marketplace model.Marketplace
	Kind        ErrorKind
	Status      int
	Err         error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: %s (http %d)", e.Marketplace, e.Kind, e.Status)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.Marketplace, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// wrapTransportErr classifies a transport-level error into a FetchError.
func wrapTransportErr(m model.Marketplace, err error) *FetchError {
	kind := KindNetwork
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &FetchError{Marketplace: m, Kind: kind, Err: err}
}

// statusErr classifies a non-2xx HTTP status into a FetchError.
func statusErr(m model.Marketplace, status int) *FetchError {
	kind := KindNetwork
	switch {
	case status == 429:
		kind = KindRateLimited
	case status >= 500:
		kind = KindServerError
	}
	return &FetchError{Marketplace: m, Kind: kind, Status: status}
}

// ListingFetcher retrieves one batch of raw records per poll tick.
type ListingFetcher interface {
	Marketplace() model.Marketplace
	Fetch(ctx context.Context) ([]model.RawListing, error)
}
