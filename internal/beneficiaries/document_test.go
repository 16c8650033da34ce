package beneficiaries

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/affiliate-link-bot/internal/core/attribution"
	"github.com/lueurxax/affiliate-link-bot/internal/core/errors"
)

const sampleDocument = `
primary_beneficiary:
  amazon:
    Amazon.ES: main-21
  awin:
    publisher_id: 1639881
    advertisers:
      pccomponentes.com: 20982
  aliexpress:
    app_key: "key"
    app_secret: "secret"
    tracking_id: "track"
    discount_codes: |
      2$ off: CODE2
creators:
  - id: alice
    percentage: 5
    configuration:
      amazon:
        amazon.es: alice-21
global_settings:
  creator_share_percent: 20
  delete_original_message: false
  excluded_users: [12345, " bob "]
  discount_command_keywords: [discount, cupones]
  log_level: DEBUG
messages:
  reply_prefix: "Shared by"
`

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(sampleDocument))
	require.NoError(t, err)

	settings := doc.Settings()
	assert.InDelta(t, 20.0, settings.CreatorSharePercent, 1e-9)
	assert.False(t, settings.DeleteOriginalMessage)
	assert.Equal(t, []string{"12345", "bob"}, settings.ExcludedUsers)
	assert.Equal(t, []string{"discount", "cupones"}, settings.DiscountCommandKeywords)
	assert.Equal(t, "debug", settings.LogLevel)

	msgs := doc.ResolvedMessages()
	assert.Equal(t, "Shared by", msgs.ReplyPrefix)
	assert.Equal(t, DefaultModifiedSuffix, msgs.ModifiedSuffix)

	primary := doc.Primary.Beneficiary(attribution.PrimaryID, 0)
	tag, _ := primary.Credentials(attribution.PlatformAmazon, "amazon.es")
	assert.Equal(t, "main-21", tag)

	pub, adv := primary.Credentials(attribution.PlatformAwin, "pccomponentes.com")
	assert.Equal(t, "1639881", pub)
	assert.Equal(t, "20982", adv)
	assert.True(t, primary.HasAliExpressAPI())
	assert.Equal(t, "2$ off: CODE2", primary.DiscountCodes())

	require.Len(t, doc.Creators, 1)
	assert.Equal(t, "alice", doc.Creators[0].ID)
}

func TestDocumentDefaults(t *testing.T) {
	doc, err := ParseDocument([]byte("primary_beneficiary: {}\n"))
	require.NoError(t, err)

	settings := doc.Settings()
	assert.InDelta(t, DefaultCreatorSharePercent, settings.CreatorSharePercent, 1e-9)
	assert.True(t, settings.DeleteOriginalMessage)
	assert.Equal(t, DefaultLogLevel, settings.LogLevel)
	assert.Empty(t, settings.ExcludedUsers)

	msgs := doc.ResolvedMessages()
	assert.Equal(t, DefaultReplyPrefix, msgs.ReplyPrefix)
	assert.Equal(t, DefaultModifiedSuffix, msgs.ModifiedSuffix)
}

func TestParseDocumentInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "not yaml", doc: "primary_beneficiary: [unclosed"},
		{name: "share above 100", doc: "global_settings:\n  creator_share_percent: 120\n"},
		{name: "negative share", doc: "global_settings:\n  creator_share_percent: -1\n"},
		{name: "bad log level", doc: "global_settings:\n  log_level: loud\n"},
		{name: "creator without id", doc: "creators:\n  - percentage: 5\n"},
		{name: "reserved id", doc: "creators:\n  - id: main\n"},
		{name: "duplicate id", doc: "creators:\n  - id: a\n  - id: a\n"},
		{name: "negative percentage", doc: "creators:\n  - id: a\n    percentage: -2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
		})
	}
}

func TestParseRemote(t *testing.T) {
	creds, err := ParseRemote([]byte("configuration:\n  admitad:\n    publisher_id: p1\n    advertisers:\n      giftmio.com: adv\n"))
	require.NoError(t, err)

	b := creds.Beneficiary("carol", 3)
	pub, adv := b.Credentials(attribution.PlatformAdmitad, "giftmio.com")
	assert.Equal(t, "p1", pub)
	assert.Equal(t, "adv", adv)
	assert.InDelta(t, 3.0, b.Percentage, 1e-9)

	_, err = ParseRemote([]byte("amazon:\n  amazon.es: x\n"))
	require.ErrorIs(t, err, errors.ErrCreatorUnavailable)
}

func TestNilCredentialsBeneficiary(t *testing.T) {
	var creds *Credentials

	b := creds.Beneficiary("empty", 1)
	assert.Equal(t, "empty", b.ID)
	assert.Empty(t, b.Domains())
}
