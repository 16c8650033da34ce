package affiliate

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/lueurxax/affiliate-link-bot/internal/core/links/linkextract"
)

// Credentials is what a beneficiary contributes to one affiliate link.
type Credentials struct {
	TagKey        string
	BeneficiaryID string
	AdvertiserID  string
}

// BuildURL renders template for rawURL.
//
// A template that references {beneficiaryId} is a wrapper: the result is whatever the template
// says, usually a redirector embedding {fullUrl}. Any other template is flat: when a tag key is
// set, the original query with the tag overwritten is appended to the rendered template, so
// building from an already tagged link gives the same link back.
func BuildURL(rawURL, template string, creds Credentials) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", rawURL, err)
	}

	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("parse %q: not an absolute URL", rawURL)
	}

	domain := u.Scheme + "://" + u.Host
	path := u.EscapedPath()
	fullURL := domain + path

	query := linkextract.ParseQuery(u.RawQuery)
	if creds.TagKey != "" {
		query = query.Set(creds.TagKey, creds.BeneficiaryID)
	}

	if creds.AdvertiserID != "" {
		query = query.Set(advertiserIDParam, creds.AdvertiserID)
	}

	out := strings.NewReplacer(
		phDomain, domain,
		phPathBeforeQuery, path,
		phFullURL, fullURL,
		phTagKey, creds.TagKey,
		phBeneficiaryID, creds.BeneficiaryID,
		phAdvertiserID, creds.AdvertiserID,
	).Replace(template)

	for _, p := range query {
		out = strings.ReplaceAll(out, "{"+p.Key+"}", p.Value)
	}

	if !strings.Contains(template, phBeneficiaryID) && creds.TagKey != "" {
		sep := "?"
		if strings.Contains(out, "?") {
			sep = "&"
		}

		out += sep + query.Encode()
	}

	return out, nil
}
