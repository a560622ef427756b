package enrich

import (
	"errors"
	"net"

	"github.com/oschwald/geoip2-golang"
)

var ErrGeoUnavailable = errors.New("geo lookup unavailable")

// Location is a best-effort place for an IP address. Either field may be empty.
type Location struct {
	City    string
	Country string
}

// Label renders "City, Country", "Country" or Unknown.
func (l Location) Label() string {
	switch {
	case l.City != "" && l.Country != "":
		return l.City + ", " + l.Country
	case l.Country != "":
		return l.Country
	default:
		return Unknown
	}
}

type GeoLookup interface {
	Lookup(ip net.IP) (Location, error)
}

// GeoIP2Lookup resolves addresses against a MaxMind City database.
type GeoIP2Lookup struct {
	reader *geoip2.Reader
	lang   string
}

func OpenGeoIP2(path string) (*GeoIP2Lookup, error) {
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &GeoIP2Lookup{reader: r, lang: "en"}, nil
}

func (g *GeoIP2Lookup) Lookup(ip net.IP) (Location, error) {
	rec, err := g.reader.City(ip)
	if err != nil {
		return Location{}, err
	}
	return Location{
		City:    rec.City.Names[g.lang],
		Country: rec.Country.Names[g.lang],
	}, nil
}

func (g *GeoIP2Lookup) Close() error {
	return g.reader.Close()
}

// NoGeoLookup is used when no geo database is configured.
type NoGeoLookup struct{}

func (NoGeoLookup) Lookup(net.IP) (Location, error) {
	return Location{}, ErrGeoUnavailable
}

// Locatable reports whether ip is worth a geo lookup: public unicast only.
func Locatable(ip net.IP) bool {
	if ip == nil {
		return false
	}
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast())
}
