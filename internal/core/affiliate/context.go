package affiliate

import (
	"sort"

	"github.com/google/uuid"

	"github.com/lueurxax/affiliate-link-bot/internal/core/attribution"
)

// State is where a message is in the rewrite pipeline.
type State int

const (
	StateUnprocessed State = iota
	StateExtractedCandidates
	StatePartiallyRewritten
	StateFullyRewritten
	StateUnmodified
	StateDispatched
)

func (s State) String() string {
	switch s {
	case StateUnprocessed:
		return "unprocessed"
	case StateExtractedCandidates:
		return "extracted_candidates"
	case StatePartiallyRewritten:
		return "partially_rewritten"
	case StateFullyRewritten:
		return "fully_rewritten"
	case StateUnmodified:
		return "unmodified"
	case StateDispatched:
		return "dispatched"
	default:
		return "unknown"
	}
}

// MessageRef identifies the chat message being rewritten. The engine only carries it through
// to the dispatcher.
type MessageRef struct {
	ChatID           int64
	MessageID        int
	ReplyToMessageID int
	UserID           int64
	Username         string
	FirstName        string
}

// RewriteContext accumulates the work done on one message. It is owned by a single goroutine
// and dropped once the message has been handled.
type RewriteContext struct {
	ID       string
	Message  MessageRef
	Original string
	Text     string

	// Selected maps each discovered store domain to the beneficiary drawn for it.
	Selected map[string]*attribution.Beneficiary

	// DiscountReply holds discount codes to post as a separate reply when no link of the
	// discount domain could be rewritten.
	DiscountReply string

	State State

	claimed          map[string]string
	discountAppended bool
	candidates       int
	rewritten        int
}

// NewRewriteContext starts processing text from msg.
func NewRewriteContext(msg MessageRef, text string) *RewriteContext {
	return &RewriteContext{
		ID:       uuid.NewString(),
		Message:  msg,
		Original: text,
		Text:     text,
		Selected: make(map[string]*attribution.Beneficiary),
		claimed:  make(map[string]string),
	}
}

// Modified reports whether the working text differs from what the user sent.
func (rc *RewriteContext) Modified() bool {
	return rc.Text != rc.Original
}

// Handled reports whether the message needs to go out to the chat.
func (rc *RewriteContext) Handled() bool {
	return rc.Modified() || rc.DiscountReply != ""
}

// ClaimedBy returns the path that rewrote links of domain, or "".
func (rc *RewriteContext) ClaimedBy(domain string) string {
	return rc.claimed[domain]
}

// SelectedBeneficiaries returns the distinct selected beneficiaries ordered by domain.
func (rc *RewriteContext) SelectedBeneficiaries() []*attribution.Beneficiary {
	domains := make([]string, 0, len(rc.Selected))
	for d := range rc.Selected {
		domains = append(domains, d)
	}

	sort.Strings(domains)

	seen := make(map[*attribution.Beneficiary]bool, len(domains))
	out := make([]*attribution.Beneficiary, 0, len(domains))

	for _, d := range domains {
		b := rc.Selected[d]
		if b == nil || seen[b] {
			continue
		}

		seen[b] = true
		out = append(out, b)
	}

	return out
}

func (rc *RewriteContext) claim(domain, path string) {
	if rc.claimed[domain] == "" {
		rc.claimed[domain] = path
	}
}

func (rc *RewriteContext) appendDiscount(codes string) {
	if rc.discountAppended || codes == "" {
		return
	}

	rc.discountAppended = true
	rc.Text += "\n\n" + codes
}

func (rc *RewriteContext) finish() {
	switch {
	case rc.Modified() && rc.rewritten >= rc.candidates:
		rc.State = StateFullyRewritten
	case rc.Handled():
		rc.State = StatePartiallyRewritten
	default:
		rc.State = StateUnmodified
	}
}
