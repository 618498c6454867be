// Package services defines the business logic for credit balances, lookup
// kind administration, and the lookup lifecycle. This file centralizes
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed by
// the transport layers (bot adapter, HTTP handlers).
package services

import "errors"

// Admission errors. Returned by LookupService.Start before any state changes.
var (
	// ErrUnknownKind indicates the kind is not part of the catalog or has no
	// configuration row.
	ErrUnknownKind = errors.New("unknown lookup kind")

	// ErrKindDisabled indicates the kind is configured but switched off.
	ErrKindDisabled = errors.New("lookup kind disabled")

	// ErrInsufficientCredits indicates the user's available balance is below
	// the kind's price.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrInvalidParams indicates the parameters do not fit the kind.
	ErrInvalidParams = errors.New("invalid lookup parameters")
)

// Lookup and account errors.
var (
	// ErrLookupNotFound indicates the lookup does not exist or is not owned
	// by the current user.
	ErrLookupNotFound = errors.New("lookup not found")

	// ErrInvalidAmount is returned for non-positive credit grants.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidKindConfig is returned for negative prices or timeouts.
	ErrInvalidKindConfig = errors.New("invalid kind configuration")

	// ErrMissingUser is returned when no user identity was supplied.
	ErrMissingUser = errors.New("user id is required")
)
