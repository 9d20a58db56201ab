// Package iprange turns user-supplied address expressions (bare IP, hyphenated
// start-end range, CIDR) into the canonical form the wiki's block forms expect.
package iprange

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

var ErrInvalid = errors.New("invalid address expression")

// Target is a parsed address expression.
type Target struct {
	// Prefix is the canonical CIDR covering the expression. For CIDR input the
	// suffix and the pre-suffix address are kept exactly as given.
	Prefix netip.Prefix
	// Start is the first address the caller named. Block-time normalization may
	// widen a range, so unblock lookups key on Start rather than on Prefix.
	Start netip.Addr
	// Raw is the original expression.
	Raw string
}

// IsSingle reports whether the target covers exactly one host.
func (t Target) IsSingle() bool {
	return t.Prefix.IsSingleIP()
}

// String renders the form the wiki receives: the bare address for single
// hosts, CIDR notation otherwise.
func (t Target) String() string {
	if t.Prefix.IsSingleIP() {
		return t.Prefix.Addr().String()
	}
	return t.Prefix.String()
}

// Parse resolves expr into a Target. Hyphenated ranges are covered by the
// smallest CIDR block containing both endpoints.
func Parse(expr string) (Target, error) {
	s := strings.TrimSpace(expr)
	switch {
	case s == "":
		return Target{}, fmt.Errorf("%w: empty input", ErrInvalid)
	case strings.Contains(s, "-"):
		return parseRange(s, expr)
	case strings.Contains(s, "/"):
		prefix, err := netip.ParsePrefix(s)
		if err != nil {
			return Target{}, fmt.Errorf("%w: %q", ErrInvalid, expr)
		}
		return Target{Prefix: prefix, Start: prefix.Addr(), Raw: expr}, nil
	default:
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return Target{}, fmt.Errorf("%w: %q", ErrInvalid, expr)
		}
		return Target{Prefix: netip.PrefixFrom(addr, addr.BitLen()), Start: addr, Raw: expr}, nil
	}
}

func parseRange(s, raw string) (Target, error) {
	first, second, ok := strings.Cut(s, "-")
	if !ok {
		return Target{}, fmt.Errorf("%w: %q", ErrInvalid, raw)
	}

	start, err := netip.ParseAddr(strings.TrimSpace(first))
	if err != nil {
		return Target{}, fmt.Errorf("%w: bad range start in %q", ErrInvalid, raw)
	}
	end, err := netip.ParseAddr(strings.TrimSpace(second))
	if err != nil {
		return Target{}, fmt.Errorf("%w: bad range end in %q", ErrInvalid, raw)
	}
	if start.Is4() != end.Is4() {
		return Target{}, fmt.Errorf("%w: mixed address families in %q", ErrInvalid, raw)
	}
	if end.Less(start) {
		return Target{}, fmt.Errorf("%w: range end precedes start in %q", ErrInvalid, raw)
	}

	return Target{Prefix: smallestCover(start, end), Start: start, Raw: raw}, nil
}

// smallestCover returns the shortest prefix that contains every address from
// start through end, keyed on their common leading bits.
func smallestCover(start, end netip.Addr) netip.Prefix {
	sb := start.AsSlice()
	eb := end.AsSlice()

	common := 0
	for i := range sb {
		diff := sb[i] ^ eb[i]
		if diff == 0 {
			common += 8
			continue
		}
		for bit := 7; bit >= 0; bit-- {
			if diff&(1<<uint(bit)) != 0 {
				break
			}
			common++
		}
		break
	}

	prefix, err := start.Prefix(common)
	if err != nil {
		// unreachable: common is bounded by start.BitLen()
		return netip.PrefixFrom(start, start.BitLen())
	}
	return prefix
}
