package tracker

import (
	"net"

	"github.com/oschwald/geoip2-golang"
)

// GeoLocator answers country lookups from a GeoLite2 database.
type GeoLocator struct {
	Reader *geoip2.Reader
}

func (g *GeoLocator) Country(ip net.IP) string {
	if g.Reader == nil {
		return "Unknown"
	}
	record, err := g.Reader.Country(ip)
	if err != nil {
		return "Unknown"
	}
	if name, ok := record.Country.Names["en"]; ok && name != "" {
		return name
	}
	return "Unknown"
}
