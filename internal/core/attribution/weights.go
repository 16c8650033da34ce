package attribution

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/lueurxax/affiliate-link-bot/internal/core/errors"
)

// SumTolerance is the allowed deviation from 100 for a normalized domain list.
const SumTolerance = 1e-6

const fullShare = 100.0

// WeightEntry is one beneficiary's share of a domain, in percent.
type WeightEntry struct {
	BeneficiaryID string
	Percentage    float64
}

// DomainWeightTable maps a registrable domain to its normalized weight list.
// The primary beneficiary's entry, when present, is always at index 0.
type DomainWeightTable map[string][]WeightEntry

// Normalize turns the raw per-beneficiary weights of one domain into shares summing to 100.
//
// The primary takes 100 - creatorShare and the creators split creatorShare in proportion to
// their raw weights. Without a primary the creators fill the whole 100. A primary whose creators
// all have zero weight takes everything; creators alone with zero weight split evenly.
// The input slice is not modified.
func Normalize(entries []WeightEntry, creatorShare float64) []WeightEntry {
	if len(entries) == 0 {
		return nil
	}

	creatorShare = clampShare(creatorShare)

	var primary *WeightEntry

	creators := make([]WeightEntry, 0, len(entries))

	for _, entry := range entries {
		if entry.BeneficiaryID == PrimaryID && primary == nil {
			p := entry
			primary = &p

			continue
		}

		if entry.Percentage < 0 {
			entry.Percentage = 0
		}

		creators = append(creators, entry)
	}

	effectiveShare := creatorShare
	if primary != nil {
		primary.Percentage = fullShare - creatorShare
	} else {
		effectiveShare = fullShare
	}

	var total float64
	for _, c := range creators {
		total += c.Percentage
	}

	switch {
	case total > 0:
		for i := range creators {
			creators[i].Percentage = creators[i].Percentage * (effectiveShare / total)
		}
	case primary != nil:
		primary.Percentage = fullShare
	case len(creators) > 0:
		even := fullShare / float64(len(creators))
		for i := range creators {
			creators[i].Percentage = even
		}
	}

	out := make([]WeightEntry, 0, len(entries))
	if primary != nil {
		out = append(out, *primary)
	}

	return append(out, creators...)
}

// BuildWeightTable collects every beneficiary's domains, in the given order, and normalizes
// each domain's list. The primary contributes 100 - creatorShare as its raw weight.
func BuildWeightTable(beneficiaries []*Beneficiary, creatorShare float64) DomainWeightTable {
	raw := make(map[string][]WeightEntry)

	for _, b := range beneficiaries {
		if b == nil {
			continue
		}

		pct := b.Percentage
		if b.IsPrimary() {
			pct = fullShare - clampShare(creatorShare)
		}

		for _, domain := range b.Domains() {
			if containsBeneficiary(raw[domain], b.ID) {
				continue
			}

			raw[domain] = append(raw[domain], WeightEntry{BeneficiaryID: b.ID, Percentage: pct})
		}
	}

	table := make(DomainWeightTable, len(raw))
	for domain, entries := range raw {
		table[domain] = Normalize(entries, creatorShare)
	}

	return table
}

// Validate checks that every non-empty domain list sums to 100 within SumTolerance
// and that the primary, if listed, comes first.
func (t DomainWeightTable) Validate() error {
	for domain, entries := range t {
		if len(entries) == 0 {
			continue
		}

		var sum float64
		for i, e := range entries {
			if e.BeneficiaryID == PrimaryID && i != 0 {
				return fmt.Errorf("%w: domain %s has primary at position %d", errors.ErrInvalidConfig, domain, i)
			}

			sum += e.Percentage
		}

		if math.Abs(sum-fullShare) > SumTolerance {
			return fmt.Errorf("%w: domain %s weights sum to %.6f", errors.ErrInvalidConfig, domain, sum)
		}
	}

	return nil
}

// Domains returns the table's domains in sorted order.
func (t DomainWeightTable) Domains() []string {
	domains := make([]string, 0, len(t))
	for d := range t {
		domains = append(domains, d)
	}

	sort.Strings(domains)

	return domains
}

// Describe renders a domain's list on one line, e.g. "main:90.00% alice:10.00%".
func (t DomainWeightTable) Describe(domain string) string {
	parts := make([]string, 0, len(t[domain]))
	for _, e := range t[domain] {
		parts = append(parts, fmt.Sprintf("%s:%.2f%%", e.BeneficiaryID, e.Percentage))
	}

	return strings.Join(parts, " ")
}

func containsBeneficiary(entries []WeightEntry, id string) bool {
	for _, e := range entries {
		if e.BeneficiaryID == id {
			return true
		}
	}

	return false
}

func clampShare(share float64) float64 {
	switch {
	case share < 0:
		return 0
	case share > fullShare:
		return fullShare
	default:
		return share
	}
}
