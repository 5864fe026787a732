// ABOUTME: Session correlation helpers. Sessions are echoed, never stored.
// ABOUTME: Synthesized ids are uuid v4 values rendered as 32 hex characters.

package mcp

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// SessionIDLength is the length of ids produced by NewSessionID.
const SessionIDLength = 32

// NewSessionID returns a fresh opaque session token.
func NewSessionID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// echoSession copies an incoming session id to the response side.
// It returns the id, or "" when the caller supplied none.
func echoSession(rc RequestContext) string {
	id := rc.Header(SessionHeader)
	if id != "" {
		rc.SetHeader(SessionHeader, id)
	}
	return id
}
