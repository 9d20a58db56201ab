package domain

import "fmt"

// Defaults applied when the caller leaves the corresponding request field empty.
const (
	DefaultBlockReason   = "cross-wiki abuse"
	DefaultBlockExpiry   = "31 hours"
	DefaultUnblockReason = "Removing obsolete block"
	DefaultLockReason    = "cross-wiki abuse"
	DefaultUnlockReason  = "Removing obsolete account lock"
)

// BlockRequest describes a global IP block. IP may be a bare address, a
// hyphenated start-end range or a CIDR expression.
type BlockRequest struct {
	IP       string
	AnonOnly bool
	Reason   string // DefaultBlockReason when empty
	Expiry   string // DefaultBlockExpiry when empty
}

// UnblockRequest describes the removal of a global IP block.
type UnblockRequest struct {
	IP     string
	Reason string // DefaultUnblockReason when empty
}

// LockRequest describes a CentralAuth account status change. A nil Lock means
// the operation's own default (true for lock, false for unlock). Hide is the
// numeric suppression level, 0 meaning visible.
type LockRequest struct {
	User   string
	Hide   int
	Reason string
	Lock   *bool
}

// Result is the payload of a successful steward action. It lives for one call;
// callers only ever inspect Body for diagnostics.
type Result struct {
	Body string
}

// SiteError is a failure the wiki itself reported, carrying the text scraped
// from the response's error container.
type SiteError struct {
	Message string
}

func (e *SiteError) Error() string {
	return fmt.Sprintf("wiki reported an error: %s", e.Message)
}
