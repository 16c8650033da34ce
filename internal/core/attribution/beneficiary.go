// Package attribution holds beneficiary credentials, the per-domain weight table and the
// weighted draw that decides which beneficiary earns the commission for a store domain.
package attribution

import "strings"

// PrimaryID identifies the operator's own beneficiary.
const PrimaryID = "main"

// AliExpressDomain is the registrable domain served by the AliExpress API and discount paths.
const AliExpressDomain = "aliexpress.com"

// Platform names.
const (
	PlatformAmazon       = "amazon"
	PlatformAwin         = "awin"
	PlatformAdmitad      = "admitad"
	PlatformTradeDoubler = "tradedoubler"
	PlatformAliExpress   = "aliexpress"
)

// AmazonProgram maps store domains (amazon.es, amazon.co.uk, ...) to associate tags.
type AmazonProgram struct {
	Advertisers map[string]string
}

// NetworkProgram is a redirector network account: one publisher id plus per-store advertiser ids.
type NetworkProgram struct {
	PublisherID string
	Advertisers map[string]string
}

// AliExpressProgram holds the signed API credentials and the discount code block.
type AliExpressProgram struct {
	AppKey        string
	AppSecret     string
	TrackingID    string
	DiscountCodes string
}

// Beneficiary is one party entitled to a share of the affiliate traffic.
// It is immutable once placed in a Snapshot.
type Beneficiary struct {
	ID           string
	Percentage   float64
	Amazon       AmazonProgram
	Awin         NetworkProgram
	Admitad      NetworkProgram
	TradeDoubler NetworkProgram
	AliExpress   AliExpressProgram
}

// IsPrimary reports whether b is the operator's beneficiary.
func (b *Beneficiary) IsPrimary() bool {
	return b.ID == PrimaryID
}

// Advertisers returns the store domain to id map configured for the platform.
func (b *Beneficiary) Advertisers(platform string) map[string]string {
	switch platform {
	case PlatformAmazon:
		return b.Amazon.Advertisers
	case PlatformAwin:
		return b.Awin.Advertisers
	case PlatformAdmitad:
		return b.Admitad.Advertisers
	case PlatformTradeDoubler:
		return b.TradeDoubler.Advertisers
	default:
		return nil
	}
}

// Credentials returns the publisher and advertiser ids for a store on a platform.
// Amazon has no publisher account: the per-store associate tag is the id applied to the link.
func (b *Beneficiary) Credentials(platform, storeDomain string) (publisherID, advertiserID string) {
	switch platform {
	case PlatformAmazon:
		return b.Amazon.Advertisers[storeDomain], ""
	case PlatformAwin:
		return b.Awin.PublisherID, b.Awin.Advertisers[storeDomain]
	case PlatformAdmitad:
		return b.Admitad.PublisherID, b.Admitad.Advertisers[storeDomain]
	case PlatformTradeDoubler:
		return b.TradeDoubler.PublisherID, b.TradeDoubler.Advertisers[storeDomain]
	default:
		return "", ""
	}
}

// HasAliExpressAPI reports whether every credential needed for a signed API call is present.
func (b *Beneficiary) HasAliExpressAPI() bool {
	return b.AliExpress.AppKey != "" && b.AliExpress.AppSecret != "" && b.AliExpress.TrackingID != ""
}

// DiscountCodes returns the trimmed AliExpress discount block, or "" when none is configured.
func (b *Beneficiary) DiscountCodes() string {
	return strings.TrimSpace(b.AliExpress.DiscountCodes)
}

// Domains lists every store domain this beneficiary can be attributed for.
func (b *Beneficiary) Domains() []string {
	var domains []string

	seen := make(map[string]bool)
	add := func(domain string) {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" || seen[domain] {
			return
		}

		seen[domain] = true
		domains = append(domains, domain)
	}

	if b.DiscountCodes() != "" || b.AliExpress.AppKey != "" {
		add(AliExpressDomain)
	}

	for _, platform := range []string{PlatformAmazon, PlatformAwin, PlatformAdmitad, PlatformTradeDoubler} {
		for domain, id := range b.Advertisers(platform) {
			if id != "" {
				add(domain)
			}
		}
	}

	return domains
}
