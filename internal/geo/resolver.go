// Package geo annotates block targets with their GeoLite2 country so steward
// log lines show where a range points. Lookups are advisory; everything fails
// soft when no database is configured.
package geo

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/oschwald/geoip2-golang"
)

// Resolver wraps a GeoLite2 country database. A nil Resolver, or one opened
// without a database path, answers every lookup with "".
type Resolver struct {
	db *geoip2.Reader
}

// Open loads the database at path. An empty path yields a disabled resolver.
func Open(path string) (*Resolver, error) {
	if path == "" {
		return &Resolver{}, nil
	}
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geolite database: %w", err)
	}
	return &Resolver{db: db}, nil
}

// Country returns the English country name for addr, or "" when disabled or
// unknown.
func (r *Resolver) Country(addr netip.Addr) string {
	if r == nil || r.db == nil || !addr.IsValid() {
		return ""
	}
	record, err := r.db.Country(net.IP(addr.AsSlice()))
	if err != nil {
		return ""
	}
	return record.Country.Names["en"]
}

func (r *Resolver) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
