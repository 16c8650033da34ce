package attribution

import (
	"fmt"
	"regexp"
	"sync"
	"time"
)

// Settings are the behavior switches carried by the beneficiary document.
type Settings struct {
	CreatorSharePercent     float64
	DeleteOriginalMessage   bool
	ExcludedUsers           []string
	DiscountCommandKeywords []string
	LogLevel                string
}

// Messages are the texts wrapped around a rewritten message.
type Messages struct {
	ReplyPrefix    string
	ModifiedSuffix string
}

// Snapshot is a point-in-time, read-only view of every beneficiary and the derived weight table.
// A reload builds a new Snapshot and publishes it through Store; nothing mutates a published one
// except its pattern cache, which is internally synchronized.
type Snapshot struct {
	beneficiaries map[string]*Beneficiary
	order         []*Beneficiary
	weights       DomainWeightTable
	settings      Settings
	messages      Messages
	loadedAt      time.Time
	patterns      *PatternCache
}

// NewSnapshot builds a snapshot from the primary beneficiary (may be nil) and the creators,
// deriving the weight table from settings.CreatorSharePercent.
func NewSnapshot(primary *Beneficiary, creators []*Beneficiary, settings Settings, messages Messages, loadedAt time.Time) *Snapshot {
	s := &Snapshot{
		beneficiaries: make(map[string]*Beneficiary, len(creators)+1),
		settings:      settings,
		messages:      messages,
		loadedAt:      loadedAt,
		patterns:      NewPatternCache(),
	}

	if primary != nil {
		p := *primary
		p.ID = PrimaryID
		s.add(&p)
	}

	for _, c := range creators {
		if c == nil || c.ID == "" || c.ID == PrimaryID {
			continue
		}

		if _, dup := s.beneficiaries[c.ID]; dup {
			continue
		}

		s.add(c)
	}

	s.weights = BuildWeightTable(s.order, settings.CreatorSharePercent)

	return s
}

func (s *Snapshot) add(b *Beneficiary) {
	s.beneficiaries[b.ID] = b
	s.order = append(s.order, b)
}

// Beneficiary returns the beneficiary with the given id, or nil.
func (s *Snapshot) Beneficiary(id string) *Beneficiary {
	return s.beneficiaries[id]
}

// Beneficiaries returns all beneficiaries, primary first, then creators in document order.
func (s *Snapshot) Beneficiaries() []*Beneficiary {
	out := make([]*Beneficiary, len(s.order))
	copy(out, s.order)

	return out
}

// Weights returns a copy of the normalized list for domain.
func (s *Snapshot) Weights(domain string) []WeightEntry {
	entries := s.weights[domain]
	out := make([]WeightEntry, len(entries))
	copy(out, entries)

	return out
}

// WeightTable exposes the table for logging and validation. Callers must not modify it.
func (s *Snapshot) WeightTable() DomainWeightTable {
	return s.weights
}

// HasDomain reports whether any beneficiary can be attributed for domain.
func (s *Snapshot) HasDomain(domain string) bool {
	return len(s.weights[domain]) > 0
}

// SelectBeneficiary draws the beneficiary for domain. It returns nil when the domain has no
// weight list.
func (s *Snapshot) SelectBeneficiary(domain string, draw float64) *Beneficiary {
	entry, ok := Select(s.weights[domain], draw)
	if !ok {
		return nil
	}

	return s.beneficiaries[entry.BeneficiaryID]
}

// Settings returns the document settings.
func (s *Snapshot) Settings() Settings {
	return s.settings
}

// Messages returns the document messages.
func (s *Snapshot) Messages() Messages {
	return s.messages
}

// LoadedAt is when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// Patterns returns the compiled-pattern cache bound to this snapshot.
func (s *Snapshot) Patterns() *PatternCache {
	return s.patterns
}

// PatternCache memoizes compiled matchers. It lives as long as its snapshot, so a reload
// starts from an empty cache.
type PatternCache struct {
	mu       sync.RWMutex
	compiled map[string]*regexp.Regexp
}

// NewPatternCache creates an empty cache.
func NewPatternCache() *PatternCache {
	return &PatternCache{compiled: make(map[string]*regexp.Regexp)}
}

// Compile returns the cached matcher for key, compiling pattern on first use.
func (c *PatternCache) Compile(key, pattern string) (*regexp.Regexp, error) {
	c.mu.RLock()
	re, ok := c.compiled[key]
	c.mu.RUnlock()

	if ok {
		return re, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if re, ok := c.compiled[key]; ok {
		return re, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %s: %w", key, err)
	}

	c.compiled[key] = re

	return re, nil
}

// Len returns the number of cached matchers.
func (c *PatternCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.compiled)
}
