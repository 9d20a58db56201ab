package steward

import (
	"context"
	"errors"
	"net/url"
	"reflect"
	"testing"

	"steward/internal/domain"
)

type fetchCall struct {
	title string
	extra url.Values
}

type submitCall struct {
	title  string
	fields url.Values
}

type fakePager struct {
	pages      map[string]string // fetch responses keyed by page title
	fetchErr   error
	submitErr  error
	submitBody string

	fetches []fetchCall
	submits []submitCall
}

func (f *fakePager) Fetch(_ context.Context, pageTitle string, _ bool, extra url.Values) (string, error) {
	f.fetches = append(f.fetches, fetchCall{title: pageTitle, extra: extra})
	if f.fetchErr != nil {
		return "", f.fetchErr
	}
	if page, ok := f.pages[pageTitle]; ok {
		return page, nil
	}
	return "<html><body></body></html>", nil
}

func (f *fakePager) SubmitForm(_ context.Context, pageTitle string, fields url.Values) (string, error) {
	f.submits = append(f.submits, submitCall{title: pageTitle, fields: fields})
	if f.submitErr != nil {
		return "", f.submitErr
	}
	if f.submitBody != "" {
		return f.submitBody, nil
	}
	return "<html><body><p>done</p></body></html>", nil
}

func newTestClient(pager *fakePager) *Client {
	return New(pager)
}

const formPage = `<form><input type="hidden" name="wpEditToken" value="token123"/></form>`

func TestGlobalBlockNormalizesRange(t *testing.T) {
	pager := &fakePager{pages: map[string]string{pageGlobalBlock: formPage}}
	client := newTestClient(pager)

	result, err := client.GlobalBlockIP(context.Background(), "127.0.0.0-127.0.0.255")
	if err != nil {
		t.Fatalf("GlobalBlockIP returned error: %v", err)
	}
	if result == nil {
		t.Fatal("GlobalBlockIP returned nil result")
	}

	if len(pager.submits) != 1 {
		t.Fatalf("expected one submission, got %d", len(pager.submits))
	}
	got := pager.submits[0]
	if got.title != pageGlobalBlock {
		t.Fatalf("submitted to %q", got.title)
	}
	want := url.Values{
		"wpAddress":   {"127.0.0.0/24"},
		"wpAnonOnly":  {"0"},
		"wpReason":    {"cross-wiki abuse"},
		"wpExpiry":    {"31 hours"},
		"wpEditToken": {"token123"},
	}
	if !reflect.DeepEqual(got.fields, want) {
		t.Fatalf("submitted fields = %v, want %v", got.fields, want)
	}
}

func TestGlobalBlockHonorsOverrides(t *testing.T) {
	pager := &fakePager{}
	client := newTestClient(pager)

	_, err := client.GlobalBlock(context.Background(), domain.BlockRequest{
		IP:       "192.0.2.9",
		AnonOnly: true,
		Reason:   "spambot",
		Expiry:   "1 week",
	})
	if err != nil {
		t.Fatalf("GlobalBlock returned error: %v", err)
	}

	fields := pager.submits[0].fields
	if fields.Get("wpAddress") != "192.0.2.9" {
		t.Fatalf("wpAddress = %q, want bare address", fields.Get("wpAddress"))
	}
	if fields.Get("wpAnonOnly") != "1" || fields.Get("wpReason") != "spambot" || fields.Get("wpExpiry") != "1 week" {
		t.Fatalf("overrides not applied: %v", fields)
	}
	if fields.Has("wpEditToken") {
		t.Fatalf("token-less form page should not produce wpEditToken, got %v", fields)
	}
}

func TestGlobalBlockSubmitsInvalidTargetUnmodified(t *testing.T) {
	pager := &fakePager{}
	client := newTestClient(pager)

	if _, err := client.GlobalBlockIP(context.Background(), "not.an.ip.addr"); err != nil {
		t.Fatalf("GlobalBlockIP returned error: %v", err)
	}
	if got := pager.submits[0].fields.Get("wpAddress"); got != "not.an.ip.addr" {
		t.Fatalf("wpAddress = %q, want the raw input", got)
	}
}

func TestGlobalBlockEmptyTarget(t *testing.T) {
	pager := &fakePager{}
	client := newTestClient(pager)

	if _, err := client.GlobalBlockIP(context.Background(), "  "); !errors.Is(err, domain.ErrEmptyTarget) {
		t.Fatalf("error = %v, want ErrEmptyTarget", err)
	}
	if len(pager.fetches) != 0 {
		t.Fatal("empty target should not reach the site")
	}
}

func TestGlobalBlockAbortsOnTransportFailure(t *testing.T) {
	pager := &fakePager{fetchErr: errors.New("connection refused")}
	client := newTestClient(pager)

	result, err := client.GlobalBlockIP(context.Background(), "192.0.2.9")
	if err == nil {
		t.Fatal("expected an error when the fetch fails")
	}
	if result != nil {
		t.Fatal("failed operation must return a nil result")
	}
	if len(pager.submits) != 0 {
		t.Fatal("no form may be submitted after a failed fetch")
	}
}

func TestGlobalBlockSurfacesSiteError(t *testing.T) {
	pager := &fakePager{submitBody: `<div class="error">The block already exists.</div>`}
	client := newTestClient(pager)

	result, err := client.GlobalBlockIP(context.Background(), "192.0.2.9")
	if result != nil {
		t.Fatal("site-rejected operation must return a nil result")
	}
	var siteErr *domain.SiteError
	if !errors.As(err, &siteErr) {
		t.Fatalf("error = %v, want *domain.SiteError", err)
	}
	if siteErr.Message != "The block already exists." {
		t.Fatalf("scraped message = %q", siteErr.Message)
	}
}

func TestGlobalUnblockRangeLooksUpActiveBlock(t *testing.T) {
	listPage := `<ul><li><a href="/c/127.0.0.0/24">127.0.0.0/24</a> (expires 31 hours)</li></ul>`
	pager := &fakePager{pages: map[string]string{pageGlobalBlockList: listPage}}
	client := newTestClient(pager)

	if _, err := client.GlobalUnblockIP(context.Background(), "127.0.0.64-127.0.0.127"); err != nil {
		t.Fatalf("GlobalUnblockIP returned error: %v", err)
	}

	if len(pager.fetches) != 2 {
		t.Fatalf("expected block list fetch plus form fetch, got %d fetches", len(pager.fetches))
	}
	list := pager.fetches[0]
	if list.title != pageGlobalBlockList || list.extra.Get("ip") != "127.0.0.64" {
		t.Fatalf("block list lookup = %+v, want query for the range start", list)
	}

	got := pager.submits[0]
	if got.title != pageGlobalUnblock {
		t.Fatalf("submitted to %q", got.title)
	}
	if got.fields.Get("address") != "127.0.0.0/24" {
		t.Fatalf("address = %q, want the in-effect block target", got.fields.Get("address"))
	}
	if got.fields.Get("wpReason") != "Removing obsolete block" {
		t.Fatalf("wpReason = %q", got.fields.Get("wpReason"))
	}
}

func TestGlobalUnblockRangeWithoutActiveBlock(t *testing.T) {
	pager := &fakePager{pages: map[string]string{
		pageGlobalBlockList: "<p>No active blocks were found.</p>",
	}}
	client := newTestClient(pager)

	_, err := client.GlobalUnblockIP(context.Background(), "10.0.0.0-10.0.0.255")
	if !errors.Is(err, domain.ErrNoActiveBlock) {
		t.Fatalf("error = %v, want ErrNoActiveBlock", err)
	}
	if len(pager.submits) != 0 {
		t.Fatal("no form may be submitted when the lookup finds nothing")
	}
}

func TestGlobalUnblockSingleAddressSkipsLookup(t *testing.T) {
	pager := &fakePager{}
	client := newTestClient(pager)

	if _, err := client.GlobalUnblockIP(context.Background(), "192.0.2.9"); err != nil {
		t.Fatalf("GlobalUnblockIP returned error: %v", err)
	}
	if len(pager.fetches) != 1 || pager.fetches[0].title != pageGlobalUnblock {
		t.Fatalf("single address should fetch only the unblock form, got %+v", pager.fetches)
	}
	if got := pager.submits[0].fields.Get("address"); got != "192.0.2.9" {
		t.Fatalf("address = %q", got)
	}
}

func TestAccountLockNormalizesUserName(t *testing.T) {
	pager := &fakePager{}
	client := newTestClient(pager)

	if _, err := client.AccountLockUser(context.Background(), "User:Some Vandal"); err != nil {
		t.Fatalf("AccountLockUser returned error: %v", err)
	}

	got := pager.submits[0]
	if got.title != "Special:CentralAuth/Some_Vandal" {
		t.Fatalf("submitted to %q", got.title)
	}
	want := url.Values{
		"wpMethod":       {"set-status"},
		"wpStatusLocked": {"1"},
		"wpStatusHidden": {"0"},
		"wpReason":       {"cross-wiki abuse"},
	}
	if !reflect.DeepEqual(got.fields, want) {
		t.Fatalf("submitted fields = %v, want %v", got.fields, want)
	}
}

func TestAccountUnlockMatchesLockWithReversedFlag(t *testing.T) {
	unlockPager := &fakePager{}
	if _, err := newTestClient(unlockPager).AccountUnlockUser(context.Background(), "Some Vandal"); err != nil {
		t.Fatalf("AccountUnlockUser returned error: %v", err)
	}

	noLock := false
	lockPager := &fakePager{}
	_, err := newTestClient(lockPager).AccountLock(context.Background(), domain.LockRequest{
		User:   "Some Vandal",
		Lock:   &noLock,
		Reason: domain.DefaultUnlockReason,
	})
	if err != nil {
		t.Fatalf("AccountLock returned error: %v", err)
	}

	unlock := unlockPager.submits[0]
	lock := lockPager.submits[0]
	if unlock.title != lock.title {
		t.Fatalf("titles differ: %q vs %q", unlock.title, lock.title)
	}
	if !reflect.DeepEqual(unlock.fields, lock.fields) {
		t.Fatalf("field sets differ: %v vs %v", unlock.fields, lock.fields)
	}
	if unlock.fields.Get("wpStatusLocked") != "0" {
		t.Fatalf("wpStatusLocked = %q, want reversed flag", unlock.fields.Get("wpStatusLocked"))
	}
}

func TestAccountLockEmptyUser(t *testing.T) {
	pager := &fakePager{}
	client := newTestClient(pager)

	if _, err := client.AccountLockUser(context.Background(), "User: "); !errors.Is(err, domain.ErrEmptyTarget) {
		t.Fatalf("error = %v, want ErrEmptyTarget", err)
	}
	if len(pager.fetches) != 0 {
		t.Fatal("empty user should not reach the site")
	}
}
