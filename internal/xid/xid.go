package xid

import "github.com/google/uuid"

// New returns a prefixed random identifier, e.g. inv-0b4c....
func New(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// RequestID is used for X-Request-ID when the client sent none.
func RequestID() string {
	return uuid.NewString()
}
