// Package quoteerr defines the error taxonomy shared by the UTSF control
// plane and the price calculator.
package quoteerr

import "errors"

// Sentinel errors. Callers should compare with errors.Is; wrapped
// occurrences still carry the original cause via %w.
var (
	// ErrInput marks a missing or malformed request field. No retry.
	ErrInput = errors.New("input error")

	// ErrNotServiceable marks a route with no serviceable vendor. Not a
	// failure - callers should return an empty result set with this noted.
	ErrNotServiceable = errors.New("not serviceable")

	// ErrPricingMiss marks a single vendor that cannot price a route.
	// Never escalate this into a request-level failure.
	ErrPricingMiss = errors.New("pricing miss")

	// ErrCatalog marks a failure to load or refresh the MPC or UTSF
	// snapshot. Fatal at startup; at runtime the caller should fall back
	// to the last good snapshot and alarm.
	ErrCatalog = errors.New("catalog error")

	// ErrTimeout marks a request that exceeded its deadline.
	ErrTimeout = errors.New("timeout")

	// ErrIntegrityViolation marks a Strict Mode block detected at serve
	// time. Treated as NotServiceable for the vendor it concerns.
	ErrIntegrityViolation = errors.New("integrity violation")
)

// WorkerError captures a per-vendor computation failure inside a batch.
// It never escapes a worker boundary as a panic or bubbled error - it is
// always turned into one of these and counted into batch stats.
type WorkerError struct {
	VendorID     string
	VendorName   string
	ErrorMessage string
}

func (e *WorkerError) Error() string {
	return "vendor " + e.VendorID + " (" + e.VendorName + "): " + e.ErrorMessage
}
