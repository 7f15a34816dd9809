// Package errdefs defines the error taxonomy shared across the report
// pipeline. Each failure class is a sentinel error that callers test with
// [errors.Is]; packages wrap the sentinels with fmt.Errorf("%w: ...") so the
// class survives arbitrary wrapping.
//
// Classes:
//
//	ErrInvalidArgument - bad caller input; surfaced immediately, never retried
//	ErrUpstream        - model or vector-store call failed, timed out, or came back empty
//	ErrDelivery        - one channel's send failed; recorded, other channels continue
//	ErrPersistence     - filesystem write/move failed; fatal for that artifact only
package errdefs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument indicates bad caller input (unknown report kind,
	// non-positive limit). Never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUpstream indicates a failed, timed-out, or empty response from the
	// model or the vector store. Aborts the current pipeline stage only.
	ErrUpstream = errors.New("upstream error")

	// ErrDelivery indicates a single delivery channel failed. The fan-out
	// records it per channel and continues with the remaining channels.
	ErrDelivery = errors.New("delivery error")

	// ErrPersistence indicates a filesystem write or move failed. Fatal for
	// that artifact only; other artifacts are still attempted.
	ErrPersistence = errors.New("persistence error")
)

// InvalidArgumentf wraps ErrInvalidArgument with a formatted message.
func InvalidArgumentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Upstreamf wraps ErrUpstream with a formatted message.
func Upstreamf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUpstream, fmt.Sprintf(format, args...))
}

// Deliveryf wraps ErrDelivery with a formatted message.
func Deliveryf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDelivery, fmt.Sprintf(format, args...))
}

// Persistencef wraps ErrPersistence with a formatted message.
func Persistencef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPersistence, fmt.Sprintf(format, args...))
}
