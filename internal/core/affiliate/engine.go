package affiliate

import (
	"context"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lueurxax/affiliate-link-bot/internal/core/attribution"
	"github.com/lueurxax/affiliate-link-bot/internal/core/links/linkextract"
	"github.com/lueurxax/affiliate-link-bot/internal/platform/observability"
)

// Rewrite paths beyond the pattern platforms.
const (
	PathAliExpressAPI = "aliexpress_api"
	PathDiscount      = "discount"
)

const (
	skipReasonClaimed     = "claimed"
	skipReasonNoSelection = "no_beneficiary"
	skipReasonNoCreds     = "missing_credentials"
	skipReasonBuild       = "build_failed"
	skipReasonAPI         = "api_failed"

	redirectURLParam = "redirectUrl"
)

// DefaultShortenerHosts are expanded before domain discovery.
var DefaultShortenerHosts = []string{"amzn.to", "amzn.eu", "s.click.aliexpress.com", "a.aliexpress.com"}

// URLExpander follows a short link to its destination. It returns the input on failure.
type URLExpander interface {
	Expand(ctx context.Context, rawURL string) string
}

// PromotionLinker converts a store link into an affiliate link through a signed API.
type PromotionLinker interface {
	PromotionLink(ctx context.Context, creds attribution.AliExpressProgram, sourceURL string) (string, error)
}

// Engine rewrites the store links of one message at a time. It holds no per-message state
// and is safe for concurrent use.
type Engine struct {
	logger     *zerolog.Logger
	platforms  []PlatformSpec
	expander   URLExpander
	linker     PromotionLinker
	draw       attribution.DrawFunc
	shortHosts map[string]bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithExpander sets the short-URL expander.
func WithExpander(x URLExpander) Option {
	return func(e *Engine) { e.expander = x }
}

// WithPromotionLinker enables the AliExpress API path.
func WithPromotionLinker(l PromotionLinker) Option {
	return func(e *Engine) { e.linker = l }
}

// WithDraw replaces the random draw, mostly for tests.
func WithDraw(d attribution.DrawFunc) Option {
	return func(e *Engine) { e.draw = d }
}

// WithShortenerHosts replaces the hosts whose links are expanded.
func WithShortenerHosts(hosts []string) Option {
	return func(e *Engine) {
		e.shortHosts = make(map[string]bool, len(hosts))
		for _, h := range hosts {
			e.shortHosts[strings.ToLower(h)] = true
		}
	}
}

// WithPlatforms replaces the platform table.
func WithPlatforms(p []PlatformSpec) Option {
	return func(e *Engine) { e.platforms = p }
}

func NewEngine(logger *zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		logger:    logger,
		platforms: Platforms,
		draw:      attribution.RandomDraw,
	}

	WithShortenerHosts(DefaultShortenerHosts)(e)

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Process runs Prepare and Rewrite. The boolean reports whether the message has to be
// dispatched.
func (e *Engine) Process(ctx context.Context, snap *attribution.Snapshot, msg MessageRef, text string) (*RewriteContext, bool) {
	rc := e.Prepare(ctx, snap, msg, text)
	if rc.State == StateUnmodified {
		observability.RewriteOutcomes.WithLabelValues(rc.State.String()).Inc()

		return rc, false
	}

	handled := e.Rewrite(ctx, snap, rc)
	observability.RewriteOutcomes.WithLabelValues(rc.State.String()).Inc()

	return rc, handled
}

// Prepare expands short links, discovers the store domains in text and draws a beneficiary
// for each of them.
func (e *Engine) Prepare(ctx context.Context, snap *attribution.Snapshot, msg MessageRef, text string) *RewriteContext {
	rc := NewRewriteContext(msg, text)
	if snap == nil {
		rc.State = StateUnmodified

		return rc
	}

	e.expandShortLinks(ctx, rc)

	// Expansion is not a rewrite on its own.
	rc.Original = rc.Text

	known := func(domain string) bool { return snap.HasDomain(canonicalDomain(domain)) }

	for _, domain := range linkextract.DiscoverDomains(rc.Text, known) {
		domain = canonicalDomain(domain)
		if rc.Selected[domain] != nil {
			continue
		}

		b := snap.SelectBeneficiary(domain, e.draw())
		if b == nil {
			continue
		}

		rc.Selected[domain] = b
		observability.AttributionSelections.WithLabelValues(b.ID).Inc()

		e.logger.Debug().
			Str("rewrite_id", rc.ID).
			Int("message_id", msg.MessageID).
			Str("domain", domain).
			Str("beneficiary", b.ID).
			Str("weights", snap.WeightTable().Describe(domain)).
			Msg("Beneficiary selected")
	}

	if len(rc.Selected) == 0 {
		rc.State = StateUnmodified

		return rc
	}

	rc.State = StateExtractedCandidates

	return rc
}

// Rewrite applies every rewrite path to rc in priority order: pattern platforms in table order,
// then the AliExpress API, then the discount-only fallback. The first path that rewrites a link
// of a domain claims it and later paths leave that domain alone.
func (e *Engine) Rewrite(ctx context.Context, snap *attribution.Snapshot, rc *RewriteContext) bool {
	if snap == nil || len(rc.Selected) == 0 {
		rc.finish()

		return false
	}

	for _, p := range e.platforms {
		e.rewritePlatform(snap, rc, p)
	}

	e.rewriteAliExpress(ctx, rc)
	e.discountFallback(rc)

	rc.finish()

	e.logger.Info().
		Str("rewrite_id", rc.ID).
		Int("message_id", rc.Message.MessageID).
		Int64("chat_id", rc.Message.ChatID).
		Str("state", rc.State.String()).
		Int("rewritten", rc.rewritten).
		Int("candidates", rc.candidates).
		Msg("Message processed")

	return rc.Handled()
}

// DiscountCodes draws a beneficiary for the discount domain and returns its codes.
func (e *Engine) DiscountCodes(snap *attribution.Snapshot) string {
	if snap == nil {
		return ""
	}

	b := snap.SelectBeneficiary(attribution.AliExpressDomain, e.draw())
	if b == nil {
		return ""
	}

	return b.DiscountCodes()
}

func (e *Engine) rewritePlatform(snap *attribution.Snapshot, rc *RewriteContext, p PlatformSpec) {
	log := e.logger.With().
		Str("rewrite_id", rc.ID).
		Int("message_id", rc.Message.MessageID).
		Str("platform", p.Name).
		Logger()

	matcher, err := p.Matcher(snap.Patterns(), p.DomainUnion(rc.SelectedBeneficiaries()))
	if err != nil {
		log.Error().Err(err).Msg("Failed to build matcher")

		return
	}

	if matcher == nil {
		return
	}

	replaced := make(map[string]bool)

	for _, c := range linkextract.ExtractCandidates(rc.Text, matcher) {
		domain := canonicalDomain(c.Domain)

		if owner := rc.ClaimedBy(domain); owner != "" && owner != p.Name {
			observability.LinksSkipped.WithLabelValues(p.Name, skipReasonClaimed).Inc()

			continue
		}

		rc.candidates++

		if replaced[c.Original] {
			rc.rewritten++

			continue
		}

		b := rc.Selected[domain]
		if b == nil {
			observability.LinksSkipped.WithLabelValues(p.Name, skipReasonNoSelection).Inc()

			continue
		}

		publisherID, advertiserID := b.Credentials(p.Name, domain)
		if (p.RequiresPublisher() && publisherID == "") || (p.RequiresAdvertiser() && advertiserID == "") {
			log.Debug().Str("domain", domain).Str("beneficiary", b.ID).Msg("No publisher or advertiser id, skipping link")
			observability.LinksSkipped.WithLabelValues(p.Name, skipReasonNoCreds).Inc()

			continue
		}

		affiliateURL, err := BuildURL(c.URL, p.URLTemplate, Credentials{
			TagKey:        p.TagKey,
			BeneficiaryID: publisherID,
			AdvertiserID:  advertiserID,
		})
		if err != nil {
			log.Warn().Err(err).Str("url", c.URL).Msg("Failed to build affiliate URL")
			observability.LinksSkipped.WithLabelValues(p.Name, skipReasonBuild).Inc()

			continue
		}

		text, n := linkextract.ReplaceToken(rc.Text, c.Original, affiliateURL)
		if n == 0 {
			continue
		}

		rc.Text = text
		rc.rewritten++
		replaced[c.Original] = true
		rc.claim(domain, p.Name)

		observability.LinksRewritten.WithLabelValues(p.Name).Add(float64(n))
		log.Info().Str("domain", domain).Str("beneficiary", b.ID).Msg("Link rewritten")

		if domain == attribution.AliExpressDomain {
			rc.appendDiscount(b.DiscountCodes())
		}
	}
}

func (e *Engine) rewriteAliExpress(ctx context.Context, rc *RewriteContext) {
	domain := attribution.AliExpressDomain
	if e.linker == nil || rc.ClaimedBy(domain) != "" {
		return
	}

	b := rc.Selected[domain]
	if b == nil || !b.HasAliExpressAPI() {
		return
	}

	log := e.logger.With().
		Str("rewrite_id", rc.ID).
		Int("message_id", rc.Message.MessageID).
		Str("platform", PathAliExpressAPI).
		Str("beneficiary", b.ID).
		Logger()

	seen := make(map[string]bool)

	for _, token := range linkextract.ExtractURLs(rc.Text) {
		if seen[token] {
			continue
		}

		seen[token] = true

		source := unwrapRedirect(token)
		if canonicalDomain(linkextract.DomainOf(source)) != domain {
			continue
		}

		rc.candidates++

		link, err := e.linker.PromotionLink(ctx, b.AliExpress, source)
		if err != nil {
			log.Warn().Err(err).Str("url", source).Msg("AliExpress conversion failed, keeping original link")
			observability.LinksSkipped.WithLabelValues(PathAliExpressAPI, skipReasonAPI).Inc()

			continue
		}

		text, n := linkextract.ReplaceToken(rc.Text, token, link)
		if n == 0 {
			continue
		}

		rc.Text = text
		rc.rewritten++
		rc.claim(domain, PathAliExpressAPI)

		observability.LinksRewritten.WithLabelValues(PathAliExpressAPI).Add(float64(n))
		log.Info().Msg("Link rewritten")
	}

	if rc.ClaimedBy(domain) == PathAliExpressAPI {
		rc.appendDiscount(b.DiscountCodes())
	}
}

func (e *Engine) discountFallback(rc *RewriteContext) {
	domain := attribution.AliExpressDomain
	if rc.ClaimedBy(domain) != "" {
		return
	}

	b := rc.Selected[domain]
	if b == nil {
		return
	}

	codes := b.DiscountCodes()
	if codes == "" {
		return
	}

	rc.DiscountReply = codes
	rc.claim(domain, PathDiscount)

	e.logger.Info().
		Str("rewrite_id", rc.ID).
		Int("message_id", rc.Message.MessageID).
		Str("beneficiary", b.ID).
		Msg("No link rewritten for discount domain, replying with discount codes")
}

func (e *Engine) expandShortLinks(ctx context.Context, rc *RewriteContext) {
	if e.expander == nil || len(e.shortHosts) == 0 {
		return
	}

	done := make(map[string]bool)

	for _, token := range linkextract.ExtractURLs(rc.Text) {
		if done[token] || !e.isShortLink(token) {
			continue
		}

		done[token] = true

		expanded := e.expander.Expand(ctx, token)
		if expanded == "" || expanded == token {
			continue
		}

		rc.Text, _ = linkextract.ReplaceToken(rc.Text, token, expanded)

		e.logger.Debug().
			Str("rewrite_id", rc.ID).
			Str("short_url", token).
			Str("expanded_url", expanded).
			Msg("Short link expanded")
	}
}

func (e *Engine) isShortLink(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	return e.shortHosts[strings.ToLower(u.Hostname())]
}

// canonicalDomain folds every AliExpress country domain into the one the weight table uses.
func canonicalDomain(domain string) string {
	if strings.HasPrefix(domain, "aliexpress.") {
		return attribution.AliExpressDomain
	}

	return domain
}

// unwrapRedirect returns the target of a redirectUrl parameter, or rawURL when there is none.
func unwrapRedirect(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.RawQuery == "" {
		return rawURL
	}

	target, ok := linkextract.ParseQuery(u.RawQuery).Get(redirectURLParam)
	if !ok {
		return rawURL
	}

	if !strings.Contains(target, "://") {
		if decoded, err := url.QueryUnescape(target); err == nil {
			target = decoded
		}
	}

	return target
}
