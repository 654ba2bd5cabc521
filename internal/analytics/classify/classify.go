// Package classify turns raw request metadata into coarse, anonymous
// buckets. Every function here is pure, never fails, and answers
// "unknown" instead of erroring on garbage input.
package classify

import (
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const Unknown = "unknown"

var botPattern = regexp.MustCompile(`(?i)bot|crawl|spider|slurp|curl|wget|python-requests|headless|lighthouse|pingdom|facebookexternalhit|monitor|scan`)

// IsBot reports whether the user agent looks automated. Matching is
// case-insensitive and position-independent.
func IsBot(userAgent string) bool {
	if strings.TrimSpace(userAgent) == "" {
		return true
	}
	return botPattern.MatchString(userAgent)
}

// pattern order matters: the first match wins, so the more specific
// agents (Edge before Chrome, Chrome before Safari) come first.
var browserPatterns = []struct {
	needle string
	name   string
}{
	{"edg/", "Edge"},
	{"edge/", "Edge"},
	{"opr/", "Opera"},
	{"opera", "Opera"},
	{"samsungbrowser", "Samsung Internet"},
	{"firefox/", "Firefox"},
	{"fxios/", "Firefox"},
	{"crios/", "Chrome"},
	{"chrome/", "Chrome"},
	{"safari/", "Safari"},
	{"msie", "Internet Explorer"},
	{"trident/", "Internet Explorer"},
}

func Browser(userAgent string) string {
	ua := strings.ToLower(userAgent)
	for _, p := range browserPatterns {
		if strings.Contains(ua, p.needle) {
			return p.name
		}
	}
	return Unknown
}

var osPatterns = []struct {
	needle string
	name   string
}{
	{"windows phone", "Windows Phone"},
	{"windows", "Windows"},
	{"android", "Android"},
	{"iphone", "iOS"},
	{"ipad", "iOS"},
	{"ipod", "iOS"},
	{"mac os x", "macOS"},
	{"macintosh", "macOS"},
	{"cros", "ChromeOS"},
	{"linux", "Linux"},
}

func OS(userAgent string) string {
	ua := strings.ToLower(userAgent)
	for _, p := range osPatterns {
		if strings.Contains(ua, p.needle) {
			return p.name
		}
	}
	return Unknown
}

var mobilePatterns = []string{"mobi", "iphone", "ipod", "android", "windows phone"}
var tabletPatterns = []string{"ipad", "tablet", "kindle", "silk"}

func Device(userAgent string) string {
	ua := strings.ToLower(userAgent)
	for _, p := range tabletPatterns {
		if strings.Contains(ua, p) {
			return "tablet"
		}
	}
	for _, p := range mobilePatterns {
		if strings.Contains(ua, p) {
			return "mobile"
		}
	}
	if strings.TrimSpace(ua) == "" {
		return Unknown
	}
	return "desktop"
}

// AnonymizeIP drops the last IPv4 octet or collapses an IPv6 address to
// its first three hextets. Deterministic and lossy; repeated calls on the
// same input yield the same prefix.
func AnonymizeIP(raw string) string {
	ip := net.ParseIP(strings.TrimSpace(raw))
	if ip == nil {
		return ""
	}
	if v4 := ip.To4(); v4 != nil {
		parts := strings.Split(v4.String(), ".")
		return strings.Join(parts[:3], ".") + ".xxx"
	}
	v6 := ip.To16()
	hextets := make([]string, 3)
	for i := 0; i < 3; i++ {
		hextets[i] = strconv.FormatUint(uint64(v6[2*i])<<8|uint64(v6[2*i+1]), 16)
	}
	return strings.Join(hextets, ":") + "::"
}

// CleanReferrer reduces a referrer URL to its host, dropping query
// strings, fragments and anything pointing back at ownHost.
func CleanReferrer(raw, ownHost string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return ""
	}
	host := strings.ToLower(strings.TrimPrefix(parsed.Hostname(), "www."))
	if host == "" || strings.EqualFold(host, strings.TrimPrefix(ownHost, "www.")) {
		return ""
	}
	return host
}

// PrimaryLanguage extracts the first language tag from an Accept-Language
// header ("de-DE,de;q=0.9" -> "de").
func PrimaryLanguage(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return Unknown
	}
	first := header
	if idx := strings.IndexAny(first, ",;"); idx >= 0 {
		first = first[:idx]
	}
	first = strings.TrimSpace(first)
	if idx := strings.Index(first, "-"); idx > 0 {
		first = first[:idx]
	}
	first = strings.ToLower(first)
	if first == "" || first == "*" {
		return Unknown
	}
	return first
}
