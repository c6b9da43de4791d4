package lp

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// Sentinel errors for the LP API surface.
var (
	// ErrTransport covers timeouts, connection failures and malformed
	// responses. Transport errors are safe to retry.
	ErrTransport = errors.New("lp transport error")

	// ErrUnavailable is returned on HTTP 503: the LP is up but cannot
	// serve the request right now (chain RPC down, etc.). Retryable.
	ErrUnavailable = errors.New("lp temporarily unavailable")

	// ErrSwapNotFound is returned when the LP does not know the swap id.
	ErrSwapNotFound = errors.New("swap not found")
)

// RejectReason classifies a business rejection parsed from the LP's
// detail message.
type RejectReason string

const (
	ReasonBelowMinimum RejectReason = "below_minimum"
	ReasonAboveMaximum RejectReason = "above_maximum"
	ReasonNoInventory  RejectReason = "no_inventory"
	ReasonOther        RejectReason = "other"
)

// RejectionError is a business-level rejection from an LP. It is never
// retried; the detail is surfaced verbatim to the caller.
type RejectionError struct {
	Status int
	Detail string
	Reason RejectReason
	// Limit carries the parsed minimum or maximum amount when the
	// rejection names one, 0 otherwise.
	Limit float64
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("lp rejected request (HTTP %d): %s", e.Status, e.Detail)
}

var (
	minimumRe   = regexp.MustCompile(`minimum: ([\d.]+)`)
	maximumRe   = regexp.MustCompile(`maximum: ([\d.]+)`)
	inventoryRe = regexp.MustCompile(`(?i)inventory|liquidity`)
)

// parseRejection builds a RejectionError from an LP error body,
// extracting the min/max limit when the detail message names one.
func parseRejection(status int, detail string) *RejectionError {
	rej := &RejectionError{Status: status, Detail: detail, Reason: ReasonOther}

	if m := minimumRe.FindStringSubmatch(detail); m != nil {
		rej.Reason = ReasonBelowMinimum
		rej.Limit, _ = strconv.ParseFloat(m[1], 64)
	} else if m := maximumRe.FindStringSubmatch(detail); m != nil {
		rej.Reason = ReasonAboveMaximum
		rej.Limit, _ = strconv.ParseFloat(m[1], 64)
	} else if inventoryRe.MatchString(detail) {
		rej.Reason = ReasonNoInventory
	}

	return rej
}

// IsRetryable reports whether err is worth retrying: transport failures
// and 503s are, business rejections and not-found are not.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrUnavailable)
}
