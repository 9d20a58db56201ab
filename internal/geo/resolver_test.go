package geo

import (
	"net/netip"
	"testing"
)

func TestDisabledResolver(t *testing.T) {
	resolver, err := Open("")
	if err != nil {
		t.Fatalf("Open with empty path returned error: %v", err)
	}
	defer resolver.Close()

	if got := resolver.Country(netip.MustParseAddr("192.0.2.1")); got != "" {
		t.Fatalf("disabled resolver returned %q", got)
	}

	var nilResolver *Resolver
	if got := nilResolver.Country(netip.MustParseAddr("192.0.2.1")); got != "" {
		t.Fatalf("nil resolver returned %q", got)
	}
	if err := nilResolver.Close(); err != nil {
		t.Fatalf("nil resolver Close returned error: %v", err)
	}
}

func TestOpenMissingDatabase(t *testing.T) {
	if _, err := Open("testdata/does-not-exist.mmdb"); err == nil {
		t.Fatal("Open should fail for a missing database file")
	}
}
