package domain

import (
	"errors"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors — compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Configuration / credential errors
var (
	// ErrMissingPrivateKey is returned when the PK environment variable is not
	// set. All three entry points abort before any network call without it.
	ErrMissingPrivateKey = errors.New("PK environment variable must be set")

	// ErrMissingCredentials is returned when an authenticated CLOB endpoint is
	// called before API credentials have been created or derived.
	ErrMissingCredentials = errors.New("missing CLOB API credentials")
)

// Dashboard / content-API errors
var (
	// ErrNoEventsFound is returned when the Gamma query for the configured
	// event slug matches nothing.
	ErrNoEventsFound = errors.New("no events found")

	// ErrNoMarketsForEvent is returned when the event exists but carries no
	// markets list.
	ErrNoMarketsForEvent = errors.New("no markets found for event")
)

// On-chain errors
var (
	// ErrNoGasBalance is returned when the wallet holds zero native POL; the
	// allowance batch refuses to start because every approval needs gas.
	ErrNoGasBalance = errors.New("no POL found in wallet to cover gas fees")

	// ErrNonceUnavailable is returned after the transaction-count fetch has
	// failed for every attempt allowed by the retry policy.
	ErrNonceUnavailable = errors.New("failed to get nonce after retries")

	// ErrTxRetriesExhausted is returned when sign-and-send kept hitting
	// "nonce too low" until the retry budget ran out.
	ErrTxRetriesExhausted = errors.New("failed to send transaction after retries")
)
