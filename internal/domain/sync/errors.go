// Package sync implements the account synchronization and reconciliation
// engine: balance refresh, transaction ingestion with two-tier dedup, and
// the orchestration that keeps per-account failures isolated.
package sync

import (
	"context"
	"errors"
	"net"
	"net/http"

	"finlink/internal/infrastructure/aggregator"
)

// FailureKind classifies a provider failure at the account sync boundary.
type FailureKind int

const (
	// FailureTransient covers rate limits, timeouts, network failures and
	// any unrecognized provider error. The account is left untouched; the
	// next trigger invocation retries.
	FailureTransient FailureKind = iota

	// FailureReconnectRequired means the stored credential is no longer
	// usable. The account is latched disconnected until the user re-links.
	FailureReconnectRequired

	// FailureNotYetReady means transaction data for a newly linked account
	// is still processing. Not an error; safe to retry on the next trigger.
	FailureNotYetReady

	// FailureNotFound means the provider no longer lists the external
	// account under the credential. Ambiguous, so the account stays
	// connected.
	FailureNotFound
)

func (k FailureKind) String() string {
	switch k {
	case FailureReconnectRequired:
		return "reconnect_required"
	case FailureNotYetReady:
		return "not_yet_ready"
	case FailureNotFound:
		return "not_found"
	default:
		return "transient"
	}
}

// ErrSweepInProgress is returned by SyncAllUsers when a periodic sweep is
// already running in this process.
var ErrSweepInProgress = errors.New("periodic sweep already in progress")

// Classify maps an error from the aggregator client to its failure kind.
// Unrecognized errors default to transient: wrongly retrying is cheap,
// wrongly disconnecting an account is not.
func Classify(err error) FailureKind {
	if err == nil {
		return FailureTransient
	}

	var apiErr *aggregator.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case aggregator.CodeItemLoginRequired,
			aggregator.CodeInvalidCredentials,
			aggregator.CodeItemLocked:
			return FailureReconnectRequired
		case aggregator.CodeProductNotReady:
			return FailureNotYetReady
		case aggregator.CodeAccountNotFound:
			return FailureNotFound
		case aggregator.CodeRateLimitExceeded:
			return FailureTransient
		}
		// A 401 without a recognized code still means the credential is dead.
		if apiErr.StatusCode == http.StatusUnauthorized {
			return FailureReconnectRequired
		}
		return FailureTransient
	}

	// Timeouts and cancellations never disconnect an account.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return FailureTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return FailureTransient
	}

	return FailureTransient
}
