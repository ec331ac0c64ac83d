package tracker

import (
	"errors"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/mileusna/useragent"

	"github.com/nesohq/krakens/models"
)

// Device taxonomy is closed; anything unrecognized falls back to DeviceOther.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceOther   = "other"
)

var (
	ErrMissingPath    = errors.New("path is required")
	ErrMissingVisitor = errors.New("visitor_id is required")
)

// Locator resolves an IP address to a country label. The GeoIP database
// sits behind this so tests can stub it out.
type Locator interface {
	Country(ip net.IP) string
}

// Normalize turns a raw beacon into a canonical event. When the domain has
// anonymize_ip enabled the IP is truncated to its network prefix before the
// country lookup or anything else sees it; the full address is never kept.
func Normalize(beacon models.Beacon, rawIP string, domainID int, settings models.DomainSettings, locator Locator, now time.Time) (models.Event, error) {
	if beacon.Path == "" {
		return models.Event{}, ErrMissingPath
	}
	if beacon.VisitorID == "" {
		return models.Event{}, ErrMissingVisitor
	}

	path := beacon.Path
	if !settings.TrackQueryParams {
		if i := strings.Index(path, "?"); i != -1 {
			path = path[:i]
		}
	}

	ip := net.ParseIP(strings.TrimSpace(rawIP))
	if ip != nil && settings.AnonymizeIP {
		ip = AnonymizeIP(ip)
	}

	country := "Unknown"
	if ip != nil && locator != nil {
		country = locator.Country(ip)
	}

	ipString := ""
	if ip != nil {
		ipString = ip.String()
	}

	ua := useragent.Parse(beacon.UserAgent)

	event := models.Event{
		DomainID:  domainID,
		VisitorID: beacon.VisitorID,
		Path:      path,
		Referrer:  normalizeReferrer(beacon.Referrer),
		Device:    deviceType(&ua),
		Browser:   browserName(&ua),
		Country:   country,
		IP:        ipString,
		Timestamp: now,
	}
	return event, nil
}

// AnonymizeIP drops the last octet of an IPv4 address and the lower 80 bits
// of an IPv6 address.
func AnonymizeIP(ip net.IP) net.IP {
	if v4 := ip.To4(); v4 != nil {
		return v4.Mask(net.CIDRMask(24, 32))
	}
	return ip.Mask(net.CIDRMask(48, 128))
}

func deviceType(ua *useragent.UserAgent) string {
	if ua.Mobile {
		return DeviceMobile
	} else if ua.Tablet {
		return DeviceTablet
	} else if ua.Desktop {
		return DeviceDesktop
	}
	return DeviceOther
}

func browserName(ua *useragent.UserAgent) string {
	if ua.Name == "" {
		return "unknown"
	}
	return ua.Name
}

// normalizeReferrer strips the scheme and query from a referrer URL; an
// empty referrer means the visitor arrived directly.
func normalizeReferrer(referrer string) string {
	if referrer == "" {
		return "direct"
	}
	u, err := url.Parse(referrer)
	if err != nil || u.Host == "" {
		return referrer
	}
	return u.Host + u.Path
}
