package enrich

import (
	"errors"
	"strings"

	"github.com/ua-parser/uap-go/uaparser"
)

// Unknown is recorded whenever a lookup cannot produce a value.
const Unknown = "Unknown"

var ErrEmptyUserAgent = errors.New("empty user agent")

// UserAgent is the parsed form of a User-Agent header.
type UserAgent struct {
	OSFamily       string
	BrowserFamily  string
	BrowserVersion string
}

type UserAgentParser interface {
	Parse(ua string) (UserAgent, error)
}

// UAPParser parses user agents with the ua-parser regex set embedded in uap-go.
type UAPParser struct {
	parser *uaparser.Parser
}

func NewUAPParser() *UAPParser {
	return &UAPParser{parser: uaparser.NewFromSaved()}
}

func (p *UAPParser) Parse(ua string) (UserAgent, error) {
	if strings.TrimSpace(ua) == "" {
		return UserAgent{}, ErrEmptyUserAgent
	}
	client := p.parser.Parse(ua)
	if client == nil || client.UserAgent == nil || client.Os == nil {
		return UserAgent{}, errors.New("user agent not recognised")
	}
	return UserAgent{
		OSFamily:      client.Os.Family,
		BrowserFamily: client.UserAgent.Family,
		BrowserVersion: joinVersion(
			client.UserAgent.Major,
			client.UserAgent.Minor,
			client.UserAgent.Patch,
		),
	}, nil
}

func joinVersion(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			break
		}
		out = append(out, p)
	}
	return strings.Join(out, ".")
}

var mobileBrowserNames = map[string]string{
	"Chrome Mobile":  "Chrome (Mobile)",
	"Firefox Mobile": "Firefox (Mobile)",
	"Mobile Safari":  "Safari (Mobile)",
}

// BrowserLabel normalizes mobile browser families and appends the version when known.
func BrowserLabel(family, version string) string {
	if family == "" {
		return Unknown
	}
	if name, ok := mobileBrowserNames[family]; ok {
		family = name
	}
	if version != "" {
		return family + " " + version
	}
	return family
}
