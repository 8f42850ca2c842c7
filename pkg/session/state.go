package session

import (
	"fmt"
	"strings"
)

// State is the lifecycle state of a session's connection.
type State int

const (
	// Disconnected means no transport is open or being opened.
	Disconnected State = iota

	// Connecting means a transport is being dialed.
	Connecting

	// Connected means the transport is open and edits are transmitted.
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// NackPolicy decides what a session does when the authority rejects an edit.
type NackPolicy string

const (
	// NackIgnore only reports the rejection. Local and authoritative text
	// may differ until the next snapshot or update arrives.
	NackIgnore NackPolicy = "ignore"

	// NackResync reconnects to the same document, which makes the authority
	// send a fresh snapshot.
	NackResync NackPolicy = "resync"
)

// ParseNackPolicy parses a policy name. The empty string means NackIgnore.
func ParseNackPolicy(s string) (NackPolicy, error) {
	switch NackPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", NackIgnore:
		return NackIgnore, nil
	case NackResync:
		return NackResync, nil
	default:
		return "", fmt.Errorf("unknown nack policy %q (expected %q or %q)", s, NackIgnore, NackResync)
	}
}

// Status is a point-in-time view of a session, for display and tests.
type Status struct {
	State      State
	DocID      string
	Generation uint64

	// Version is the last version reported by the authority, or nil if none
	// was received since the last connect request.
	Version *int

	// LastKnown is the text the session believes the buffer holds.
	LastKnown string
}
