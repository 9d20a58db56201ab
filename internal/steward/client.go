// Package steward implements the four steward actions the plugin exposes:
// global IP block/unblock and CentralAuth account lock/unlock. Each action
// fetches the relevant special page through the host session, submits the
// form fields and scrapes the response for the wiki's error container.
package steward

import (
	"context"
	"fmt"
	"net/netip"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"steward/internal/domain"
	"steward/internal/geo"
	"steward/internal/iprange"
	"steward/internal/scrape"
	"steward/internal/site"
)

const (
	pageGlobalBlock     = "Special:GlobalBlock"
	pageGlobalUnblock   = "Special:RemoveGlobalBlock"
	pageGlobalBlockList = "Special:GlobalBlockList"
	pageCentralAuth     = "Special:CentralAuth"
)

// Client performs steward actions through a host session. Geo is optional and
// only feeds log annotations.
type Client struct {
	Site site.Pager
	Log  *log.Logger
	Geo  *geo.Resolver
}

func New(pager site.Pager) *Client {
	return &Client{
		Site: pager,
		Log:  log.Default(),
	}
}

// GlobalBlock blocks an IP, range or CIDR across all wikis. Unset request
// fields fall back to the documented defaults. A target that fails to
// normalize is logged and submitted as given; the wiki is the final validator.
func (c *Client) GlobalBlock(ctx context.Context, req domain.BlockRequest) (*domain.Result, error) {
	if strings.TrimSpace(req.IP) == "" {
		return nil, domain.ErrEmptyTarget
	}

	address := req.IP
	if target, err := iprange.Parse(req.IP); err != nil {
		c.Log.Warn("invalid block target, submitting unmodified", "target", req.IP, "error", err)
	} else {
		address = target.String()
		if country := c.Geo.Country(target.Start); country != "" {
			c.Log.Info("resolved block target", "address", address, "country", country)
		}
	}

	fields := url.Values{
		"wpAddress":  {address},
		"wpAnonOnly": {boolField(req.AnonOnly)},
		"wpReason":   {defaulted(req.Reason, domain.DefaultBlockReason)},
		"wpExpiry":   {defaulted(req.Expiry, domain.DefaultBlockExpiry)},
	}

	return c.run(ctx, pageGlobalBlock, fields)
}

// GlobalBlockIP is GlobalBlock with every option left at its default.
func (c *Client) GlobalBlockIP(ctx context.Context, ip string) (*domain.Result, error) {
	return c.GlobalBlock(ctx, domain.BlockRequest{IP: ip})
}

// GlobalUnblock removes the active global block covering the request's IP.
// When the caller names a range, the in-effect block for the range's start
// address is looked up first: block-time normalization may have produced a
// different CIDR than the caller's expression. No matching block yields
// domain.ErrNoActiveBlock without submitting anything.
func (c *Client) GlobalUnblock(ctx context.Context, req domain.UnblockRequest) (*domain.Result, error) {
	if strings.TrimSpace(req.IP) == "" {
		return nil, domain.ErrEmptyTarget
	}

	address := req.IP
	if target, err := iprange.Parse(req.IP); err != nil {
		c.Log.Warn("invalid unblock target, submitting unmodified", "target", req.IP, "error", err)
	} else if target.IsSingle() {
		address = target.String()
	} else {
		blocked, err := c.lookupActiveBlock(ctx, target.Start)
		if err != nil {
			return nil, err
		}
		address = blocked
	}

	fields := url.Values{
		"address":  {address},
		"wpReason": {defaulted(req.Reason, domain.DefaultUnblockReason)},
	}

	return c.run(ctx, pageGlobalUnblock, fields)
}

// GlobalUnblockIP is GlobalUnblock with the default reason.
func (c *Client) GlobalUnblockIP(ctx context.Context, ip string) (*domain.Result, error) {
	return c.GlobalUnblock(ctx, domain.UnblockRequest{IP: ip})
}

// AccountLock locks (or, with Lock pointing at false, unlocks) an account
// through Special:CentralAuth. An optional "User:" prefix is stripped and
// spaces map to underscores before the name lands in the page title.
func (c *Client) AccountLock(ctx context.Context, req domain.LockRequest) (*domain.Result, error) {
	lock := true
	if req.Lock != nil {
		lock = *req.Lock
	}
	return c.setAccountStatus(ctx, req.User, lock, req.Hide, defaulted(req.Reason, domain.DefaultLockReason))
}

// AccountLockUser is AccountLock with every option left at its default.
func (c *Client) AccountLockUser(ctx context.Context, user string) (*domain.Result, error) {
	return c.AccountLock(ctx, domain.LockRequest{User: user})
}

// AccountUnlock is AccountLock with the lock flag reversed and its own
// default reason.
func (c *Client) AccountUnlock(ctx context.Context, req domain.LockRequest) (*domain.Result, error) {
	lock := false
	if req.Lock != nil {
		lock = *req.Lock
	}
	return c.setAccountStatus(ctx, req.User, lock, req.Hide, defaulted(req.Reason, domain.DefaultUnlockReason))
}

// AccountUnlockUser is AccountUnlock with every option left at its default.
func (c *Client) AccountUnlockUser(ctx context.Context, user string) (*domain.Result, error) {
	return c.AccountUnlock(ctx, domain.LockRequest{User: user})
}

func (c *Client) setAccountStatus(ctx context.Context, user string, lock bool, hide int, reason string) (*domain.Result, error) {
	name := normalizeUser(user)
	if name == "" {
		return nil, domain.ErrEmptyTarget
	}

	fields := url.Values{
		"wpMethod":       {"set-status"},
		"wpStatusLocked": {boolField(lock)},
		"wpStatusHidden": {strconv.Itoa(hide)},
		"wpReason":       {reason},
	}

	return c.run(ctx, pageCentralAuth+"/"+name, fields)
}

// run is the shared fetch-then-submit cycle: one page retrieval for form
// context, one submission, one error scrape.
func (c *Client) run(ctx context.Context, pageTitle string, fields url.Values) (*domain.Result, error) {
	page, err := c.Site.Fetch(ctx, pageTitle, false, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageTitle, err)
	}
	if token := scrape.EditToken(page); token != "" {
		fields.Set("wpEditToken", token)
	}

	body, err := c.Site.SubmitForm(ctx, pageTitle, fields)
	if err != nil {
		return nil, fmt.Errorf("submit %s: %w", pageTitle, err)
	}

	if message, found := scrape.FindError(body); found {
		c.Log.Warn("wiki rejected the action", "page", pageTitle, "message", message)
		return nil, &domain.SiteError{Message: message}
	}
	return &domain.Result{Body: body}, nil
}

func (c *Client) lookupActiveBlock(ctx context.Context, start netip.Addr) (string, error) {
	page, err := c.Site.Fetch(ctx, pageGlobalBlockList, false, url.Values{"ip": {start.String()}})
	if err != nil {
		return "", fmt.Errorf("fetch block list: %w", err)
	}

	for _, target := range scrape.BlockTargets(page) {
		if prefix, err := netip.ParsePrefix(target); err == nil && prefix.Masked().Contains(start) {
			return target, nil
		}
		if addr, err := netip.ParseAddr(target); err == nil && addr == start {
			return target, nil
		}
	}
	return "", fmt.Errorf("%w: %s", domain.ErrNoActiveBlock, start)
}

func normalizeUser(user string) string {
	name := strings.TrimSpace(user)
	name = strings.TrimPrefix(name, "User:")
	return strings.ReplaceAll(name, " ", "_")
}

func defaulted(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func boolField(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
