// Package affiliate turns store links into affiliate links: the platform table, the URL
// builder, and the engine that applies them to a message.
package affiliate

import (
	"regexp"
	"sort"
	"strings"

	"github.com/lueurxax/affiliate-link-bot/internal/core/attribution"
)

// Template placeholders.
const (
	phDomain          = "{domain}"
	phPathBeforeQuery = "{pathBeforeQuery}"
	phFullURL         = "{fullUrl}"
	phTagKey          = "{tagKey}"
	phBeneficiaryID   = "{beneficiaryId}"
	phAdvertiserID    = "{advertiserId}"
	phDomains         = "{domains}"

	advertiserIDParam = "advertiserId"
)

// storeMatcherTemplate matches a link on any subdomain of one of {domains}.
const storeMatcherTemplate = `(?i)^https?://(?:[\w\-]+\.)*(?:{domains})/[a-zA-Z0-9\-\._~:/?#\[\]@!$&'()*+,;=%]+`

// PlatformSpec declares how one affiliate program rewrites a link.
type PlatformSpec struct {
	Name            string
	MatcherTemplate string
	URLTemplate     string
	TagKey          string
}

// Platforms is the pattern-driven platform table in priority order.
var Platforms = []PlatformSpec{
	{
		Name:            attribution.PlatformAmazon,
		MatcherTemplate: storeMatcherTemplate,
		URLTemplate:     "{domain}{pathBeforeQuery}",
		TagKey:          "tag",
	},
	{
		Name:            attribution.PlatformAwin,
		MatcherTemplate: storeMatcherTemplate,
		URLTemplate:     "https://www.awin1.com/cread.php?awinmid={advertiserId}&awinaffid={beneficiaryId}&ued={fullUrl}",
		TagKey:          "awinaffid",
	},
	{
		Name:            attribution.PlatformAdmitad,
		MatcherTemplate: storeMatcherTemplate,
		URLTemplate:     "https://wextap.com/g/{advertiserId}/?ulp={fullUrl}",
	},
	{
		Name:            attribution.PlatformTradeDoubler,
		MatcherTemplate: storeMatcherTemplate,
		URLTemplate:     "https://clk.tradedoubler.com/click?p={advertiserId}&a={beneficiaryId}&url={fullUrl}",
		TagKey:          "a",
	},
}

// RequiresPublisher reports whether a link cannot be built without the beneficiary's
// publisher id (or Amazon tag).
func (p PlatformSpec) RequiresPublisher() bool {
	return p.TagKey != "" || strings.Contains(p.URLTemplate, phBeneficiaryID)
}

// RequiresAdvertiser reports whether the template embeds a per-store advertiser id.
func (p PlatformSpec) RequiresAdvertiser() bool {
	return strings.Contains(p.URLTemplate, phAdvertiserID)
}

// DomainUnion returns the sorted set of store domains that the selected beneficiaries have
// a non-empty id for on this platform.
func (p PlatformSpec) DomainUnion(selected []*attribution.Beneficiary) []string {
	seen := make(map[string]bool)

	var domains []string

	for _, b := range selected {
		if b == nil {
			continue
		}

		for domain, id := range b.Advertisers(p.Name) {
			domain = strings.ToLower(strings.TrimSpace(domain))
			if domain == "" || id == "" || seen[domain] {
				continue
			}

			seen[domain] = true
			domains = append(domains, domain)
		}
	}

	sort.Strings(domains)

	return domains
}

// Matcher returns the compiled matcher for domains, or nil when domains is empty.
// Compiled patterns are kept in the snapshot's cache keyed by platform and domain set.
func (p PlatformSpec) Matcher(cache *attribution.PatternCache, domains []string) (*regexp.Regexp, error) {
	if len(domains) == 0 {
		return nil, nil //nolint:nilnil // no domains means the platform does not apply
	}

	quoted := make([]string, len(domains))
	for i, d := range domains {
		quoted[i] = regexp.QuoteMeta(d)
	}

	pattern := strings.Replace(p.MatcherTemplate, phDomains, strings.Join(quoted, "|"), 1)
	key := p.Name + "|" + strings.Join(domains, ",")

	return cache.Compile(key, pattern)
}
