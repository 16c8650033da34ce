// Package beneficiaries loads the beneficiary documents (the operator's own file, the optional
// creators file and the remote creator documents) and turns them into attribution snapshots.
package beneficiaries

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/lueurxax/affiliate-link-bot/internal/core/attribution"
	"github.com/lueurxax/affiliate-link-bot/internal/core/errors"
)

// Defaults applied when the document leaves a setting out.
const (
	DefaultCreatorSharePercent = 10.0
	DefaultReplyPrefix         = "Reply provided by"
	DefaultModifiedSuffix      = "Here is the modified link with our affiliate program:"
	DefaultLogLevel            = "info"
)

// Document is the operator's beneficiary document.
type Document struct {
	Primary        *Credentials   `yaml:"primary_beneficiary"`
	Creators       []CreatorEntry `yaml:"creators"`
	GlobalSettings GlobalSettings `yaml:"global_settings"`
	Messages       MessagesBlock  `yaml:"messages"`
}

// CreatorsDocument is the standalone creators file.
type CreatorsDocument struct {
	Creators []CreatorEntry `yaml:"creators"`
}

// RemoteDocument is what a creator URL serves.
type RemoteDocument struct {
	Configuration *Credentials `yaml:"configuration"`
}

// CreatorEntry names one creator. Either URL or Configuration supplies the credentials;
// inline configuration wins when both are set.
type CreatorEntry struct {
	ID            string       `yaml:"id"`
	Percentage    float64      `yaml:"percentage"`
	URL           string       `yaml:"url"`
	Configuration *Credentials `yaml:"configuration"`
}

// Credentials holds the per-platform blocks. Amazon maps store domains straight to tags.
type Credentials struct {
	Amazon       map[string]string `yaml:"amazon"`
	Awin         NetworkBlock      `yaml:"awin"`
	Admitad      NetworkBlock      `yaml:"admitad"`
	TradeDoubler NetworkBlock      `yaml:"tradedoubler"`
	AliExpress   AliExpressBlock   `yaml:"aliexpress"`
}

type NetworkBlock struct {
	PublisherID string            `yaml:"publisher_id"`
	Advertisers map[string]string `yaml:"advertisers"`
}

type AliExpressBlock struct {
	AppKey        string `yaml:"app_key"`
	AppSecret     string `yaml:"app_secret"`
	TrackingID    string `yaml:"tracking_id"`
	DiscountCodes string `yaml:"discount_codes"`
}

// GlobalSettings uses pointers where an explicit zero must be told apart from a missing key.
type GlobalSettings struct {
	CreatorSharePercent     *float64 `yaml:"creator_share_percent"`
	DeleteOriginalMessage   *bool    `yaml:"delete_original_message"`
	ExcludedUsers           []string `yaml:"excluded_users"`
	DiscountCommandKeywords []string `yaml:"discount_command_keywords"`
	LogLevel                string   `yaml:"log_level"`
}

type MessagesBlock struct {
	ReplyPrefix    string `yaml:"reply_prefix"`
	ModifiedSuffix string `yaml:"modified_suffix"`
}

// ParseDocument decodes and validates the operator's document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode document: %w", errors.ErrInvalidConfig, err)
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}

	return &doc, nil
}

// ParseCreators decodes a standalone creators file.
func ParseCreators(data []byte) ([]CreatorEntry, error) {
	var doc CreatorsDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode creators: %w", errors.ErrInvalidConfig, err)
	}

	if err := validateCreators(doc.Creators); err != nil {
		return nil, err
	}

	return doc.Creators, nil
}

// ParseRemote decodes a remote creator document. A document without a configuration key is
// rejected so that a wrong URL does not silently register an empty creator.
func ParseRemote(data []byte) (*Credentials, error) {
	var doc RemoteDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode remote document: %w", err)
	}

	if doc.Configuration == nil {
		return nil, fmt.Errorf("%w: remote document has no configuration key", errors.ErrCreatorUnavailable)
	}

	return doc.Configuration, nil
}

// Validate checks settings ranges and creator entries.
func (d *Document) Validate() error {
	if share := d.GlobalSettings.CreatorSharePercent; share != nil && (*share < 0 || *share > 100) {
		return fmt.Errorf("%w: creator_share_percent %.2f outside 0..100", errors.ErrInvalidConfig, *share)
	}

	if level := d.GlobalSettings.LogLevel; level != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(level)); err != nil {
			return fmt.Errorf("%w: log_level %q", errors.ErrInvalidConfig, level)
		}
	}

	return validateCreators(d.Creators)
}

func validateCreators(creators []CreatorEntry) error {
	seen := make(map[string]bool, len(creators))

	for i, c := range creators {
		id := strings.TrimSpace(c.ID)

		switch {
		case id == "":
			return fmt.Errorf("%w: creator #%d has no id", errors.ErrInvalidConfig, i)
		case id == attribution.PrimaryID:
			return fmt.Errorf("%w: creator id %q is reserved", errors.ErrInvalidConfig, id)
		case seen[id]:
			return fmt.Errorf("%w: duplicate creator id %q", errors.ErrInvalidConfig, id)
		case c.Percentage < 0:
			return fmt.Errorf("%w: creator %q has negative percentage", errors.ErrInvalidConfig, id)
		}

		seen[id] = true
	}

	return nil
}

// Settings resolves the document settings with defaults filled in.
func (d *Document) Settings() attribution.Settings {
	gs := d.GlobalSettings

	share := DefaultCreatorSharePercent
	if gs.CreatorSharePercent != nil {
		share = *gs.CreatorSharePercent
	}

	deleteOriginal := true
	if gs.DeleteOriginalMessage != nil {
		deleteOriginal = *gs.DeleteOriginalMessage
	}

	level := strings.ToLower(strings.TrimSpace(gs.LogLevel))
	if level == "" {
		level = DefaultLogLevel
	}

	return attribution.Settings{
		CreatorSharePercent:     share,
		DeleteOriginalMessage:   deleteOriginal,
		ExcludedUsers:           trimAll(gs.ExcludedUsers),
		DiscountCommandKeywords: trimAll(gs.DiscountCommandKeywords),
		LogLevel:                level,
	}
}

// ResolvedMessages returns the messages with defaults for empty entries.
func (d *Document) ResolvedMessages() attribution.Messages {
	m := attribution.Messages{
		ReplyPrefix:    d.Messages.ReplyPrefix,
		ModifiedSuffix: d.Messages.ModifiedSuffix,
	}

	if m.ReplyPrefix == "" {
		m.ReplyPrefix = DefaultReplyPrefix
	}

	if m.ModifiedSuffix == "" {
		m.ModifiedSuffix = DefaultModifiedSuffix
	}

	return m
}

// Beneficiary converts the credential blocks into an attribution.Beneficiary.
// Store domains are lowercased.
func (c *Credentials) Beneficiary(id string, percentage float64) *attribution.Beneficiary {
	if c == nil {
		return &attribution.Beneficiary{ID: id, Percentage: percentage}
	}

	return &attribution.Beneficiary{
		ID:           id,
		Percentage:   percentage,
		Amazon:       attribution.AmazonProgram{Advertisers: lowerKeys(c.Amazon)},
		Awin:         c.Awin.program(),
		Admitad:      c.Admitad.program(),
		TradeDoubler: c.TradeDoubler.program(),
		AliExpress: attribution.AliExpressProgram{
			AppKey:        strings.TrimSpace(c.AliExpress.AppKey),
			AppSecret:     strings.TrimSpace(c.AliExpress.AppSecret),
			TrackingID:    strings.TrimSpace(c.AliExpress.TrackingID),
			DiscountCodes: c.AliExpress.DiscountCodes,
		},
	}
}

func (n NetworkBlock) program() attribution.NetworkProgram {
	return attribution.NetworkProgram{
		PublisherID: strings.TrimSpace(n.PublisherID),
		Advertisers: lowerKeys(n.Advertisers),
	}
}

func lowerKeys(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}

	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}

	return out
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))

	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}

	return out
}
