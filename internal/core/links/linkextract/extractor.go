// Package linkextract finds monetizable links in chat text, including store links carried
// inside another link's query string.
package linkextract

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Candidate is one link occurrence to rewrite.
//
// Original is the token as it appears in the text; URL is the store link that matched, which
// is either Original itself or a URL nested in one of its query values; Domain is the
// registrable domain of URL.
type Candidate struct {
	Original string
	URL      string
	Domain   string
}

const trailingPunctuation = ".,;:!?)"

var urlRegex = regexp.MustCompile(`https?://[^\s<>"{}|\\^\x60\[\]]+`)

// ExtractURLs returns every http(s) token in text, in order, duplicates included.
// Trailing sentence punctuation is not part of the token.
func ExtractURLs(text string) []string {
	matches := urlRegex.FindAllString(text, -1)
	urls := make([]string, 0, len(matches))

	for _, m := range matches {
		m = strings.TrimRight(m, trailingPunctuation)
		if m == "" {
			continue
		}

		urls = append(urls, m)
	}

	return urls
}

// ExtractCandidates matches every URL token of text against matcher. A token matching
// directly yields itself; otherwise each of its query values that matches yields a candidate
// for the nested URL. A nil matcher means the platform does not apply and yields nothing.
func ExtractCandidates(text string, matcher *regexp.Regexp) []Candidate {
	if matcher == nil {
		return nil
	}

	var candidates []Candidate

	for _, token := range ExtractURLs(text) {
		if matcher.MatchString(token) {
			candidates = append(candidates, Candidate{Original: token, URL: token, Domain: DomainOf(token)})

			continue
		}

		for _, nested := range nestedValues(token) {
			if matcher.MatchString(nested) {
				candidates = append(candidates, Candidate{Original: token, URL: nested, Domain: DomainOf(nested)})
			}
		}
	}

	return candidates
}

// DiscoverDomains returns the registrable domains referenced by text, directly or through
// URLs nested in query values, keeping only those accepted by known. Order is first-seen and
// each domain appears once.
func DiscoverDomains(text string, known func(domain string) bool) []string {
	var domains []string

	seen := make(map[string]bool)
	add := func(domain string) {
		if domain == "" || seen[domain] || !known(domain) {
			return
		}

		seen[domain] = true
		domains = append(domains, domain)
	}

	for _, token := range ExtractURLs(text) {
		add(DomainOf(token))

		for _, nested := range nestedValues(token) {
			if isHTTPURL(nested) {
				add(DomainOf(nested))
			}
		}
	}

	return domains
}

// DomainOf returns the registrable domain of rawURL, or "" when it has no host.
func DomainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	return RegistrableDomain(u.Hostname())
}

// RegistrableDomain returns the public-suffix-aware "domain.tld" part of host, so that
// www.amazon.co.uk becomes amazon.co.uk. Hosts the suffix list cannot split are returned
// lowercased as they are.
func RegistrableDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	if host == "" {
		return ""
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}

	return domain
}

func nestedValues(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil || u.RawQuery == "" {
		return nil
	}

	return ParseQuery(u.RawQuery).Values()
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
