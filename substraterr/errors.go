// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package substraterr defines the closed error taxonomy surfaced on every
// boundary API of the substrate (spec.md §7): a fixed set of Kinds, each
// wrapping a caller-supplied reason, so callers can branch with errors.As
// instead of string matching.
package substraterr

import "fmt"

// Kind is one of the seven taxonomy buckets (the two transport conditions
// are separate Kinds). Every exported Error carries exactly one.
type Kind int

const (
	// Validation covers malformed input: bad layer, expired signal,
	// oversized message. Local, reported to caller, never retried.
	Validation Kind = iota
	// TransportUnavailable signals the destination is unreachable. The
	// transports in this module report it on the first failed attempt;
	// they do not retry.
	TransportUnavailable
	// TransportTimeout signals an outbound operation exceeded its
	// effective deadline.
	TransportTimeout
	// ProtocolIncompatible signals negotiation failed or a version
	// migration is unsupported. Reporting it does not drop the cached
	// peer session; protocolmgr's Manager.DropSession does that on request.
	ProtocolIncompatible
	// Overloaded signals a full queue / backpressure condition.
	Overloaded
	// TopologyConflict signals an edge violating the ±1 rule, or a
	// reference to a removed unit.
	TopologyConflict
	// Internal marks a bug, a condition unreachable in correct code. It
	// is returned and reported like any other Kind; no component enters a
	// degraded state or emits a health event on it.
	Internal
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case TransportUnavailable:
		return "transport_unavailable"
	case TransportTimeout:
		return "transport_timeout"
	case ProtocolIncompatible:
		return "protocol_incompatible"
	case Overloaded:
		return "overloaded"
	case TopologyConflict:
		return "topology_conflict"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the concrete error type for every taxonomy Kind.
type Error struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "router.route"
	Reason  string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Kind, e.Op, e.Reason, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Reason)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is lets errors.Is match two *Error values by Kind alone, so callers can
// test against a sentinel constructed with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an *Error of the given Kind.
func New(kind Kind, op, reason string) *Error {
	return &Error{Kind: kind, Op: op, Reason: reason}
}

// Wrap constructs an *Error of the given Kind wrapping err.
func Wrap(kind Kind, op, reason string, err error) *Error {
	return &Error{Kind: kind, Op: op, Reason: reason, Wrapped: err}
}

// KindOf extracts the Kind of err if it is (or wraps) a *Error; ok is
// false otherwise.
func KindOf(err error) (kind Kind, ok bool) {
	var e *Error
	if asError(err, &e) {
		return e.Kind, true
	}
	return Internal, false
}

// asError walks err's Unwrap chain and stores the first *Error it finds
// in target, like errors.As restricted to *Error.
func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Retryable reports whether the taxonomy Kind is one the caller should
// retry with backoff (transport conditions only, per spec.md §7 policy).
func Retryable(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return false
	}
	return kind == TransportUnavailable || kind == TransportTimeout
}
