// Package geoip wraps a MaxMind city or country database for address
// enrichment. A single database serves both IPv4 and IPv6 lookups; lookups
// against a country-only database simply yield empty city-level fields.
package geoip

import (
	"net"
	"net/netip"

	geoip2 "github.com/oschwald/geoip2-golang"
)

// Info is the geographic metadata recorded for an address. Fields the
// database cannot answer are left at their zero values.
type Info struct {
	CountryCode string
	CountryName string
	Region      string
	City        string
	Latitude    float64
	Longitude   float64
}

// Lookup resolves geographic metadata for an address. The second return is
// false when the address is not present in the database.
type Lookup func(addr netip.Addr) (Info, bool)

// Open opens a MaxMind-compatible database and returns a lookup function
// plus a closer for the underlying reader.
func Open(path string) (Lookup, func() error, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, nil, err
	}

	lookup := func(addr netip.Addr) (Info, bool) {
		if !addr.IsValid() {
			return Info{}, false
		}
		record, err := reader.City(net.IP(addr.AsSlice()))
		if err != nil || record == nil {
			return Info{}, false
		}
		info := Info{
			CountryCode: record.Country.IsoCode,
			CountryName: record.Country.Names["en"],
			City:        record.City.Names["en"],
			Latitude:    record.Location.Latitude,
			Longitude:   record.Location.Longitude,
		}
		if len(record.Subdivisions) > 0 {
			info.Region = record.Subdivisions[0].Names["en"]
		}
		if info == (Info{}) {
			return Info{}, false
		}
		return info, true
	}

	return lookup, reader.Close, nil
}
