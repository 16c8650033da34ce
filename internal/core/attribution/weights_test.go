package attribution

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCreatorA = "alice"
	testCreatorB = "bob"
	testStore    = "pccomponentes.com"
)

func sumOf(entries []WeightEntry) float64 {
	var sum float64
	for _, e := range entries {
		sum += e.Percentage
	}

	return sum
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name         string
		entries      []WeightEntry
		creatorShare float64
		want         []WeightEntry
	}{
		{
			name:         "primary only",
			entries:      []WeightEntry{{PrimaryID, 90}},
			creatorShare: 10,
			want:         []WeightEntry{{PrimaryID, 100}},
		},
		{
			name:         "creators only fill the whole share",
			entries:      []WeightEntry{{testCreatorA, 30}, {testCreatorB, 10}},
			creatorShare: 10,
			want:         []WeightEntry{{testCreatorA, 75}, {testCreatorB, 25}},
		},
		{
			name:         "primary and creators split the creator share",
			entries:      []WeightEntry{{PrimaryID, 90}, {testCreatorA, 30}, {testCreatorB, 10}},
			creatorShare: 10,
			want:         []WeightEntry{{PrimaryID, 90}, {testCreatorA, 7.5}, {testCreatorB, 2.5}},
		},
		{
			name:         "primary listed after creators moves to front",
			entries:      []WeightEntry{{testCreatorA, 50}, {PrimaryID, 80}},
			creatorShare: 20,
			want:         []WeightEntry{{PrimaryID, 80}, {testCreatorA, 20}},
		},
		{
			name:         "zero creator weight gives primary everything",
			entries:      []WeightEntry{{PrimaryID, 90}, {testCreatorA, 0}},
			creatorShare: 10,
			want:         []WeightEntry{{PrimaryID, 100}, {testCreatorA, 0}},
		},
		{
			name:         "creators only with zero weight split evenly",
			entries:      []WeightEntry{{testCreatorA, 0}, {testCreatorB, 0}},
			creatorShare: 10,
			want:         []WeightEntry{{testCreatorA, 50}, {testCreatorB, 50}},
		},
		{
			name:         "creator share above 100 is clamped",
			entries:      []WeightEntry{{PrimaryID, 0}, {testCreatorA, 5}},
			creatorShare: 150,
			want:         []WeightEntry{{PrimaryID, 0}, {testCreatorA, 100}},
		},
		{
			name:         "empty list",
			entries:      nil,
			creatorShare: 10,
			want:         nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.entries, tt.creatorShare)
			require.Len(t, got, len(tt.want))

			for i := range tt.want {
				assert.Equal(t, tt.want[i].BeneficiaryID, got[i].BeneficiaryID)
				assert.InDelta(t, tt.want[i].Percentage, got[i].Percentage, SumTolerance)
			}
		})
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	in := []WeightEntry{{PrimaryID, 1}, {testCreatorA, 3}}

	_ = Normalize(in, 10)

	assert.Equal(t, []WeightEntry{{PrimaryID, 1}, {testCreatorA, 3}}, in)
}

func TestNormalizeSumsToHundred(t *testing.T) {
	for _, withPrimary := range []bool{true, false} {
		for creators := 0; creators <= 6; creators++ {
			for share := 0.0; share <= 100; share += 12.5 {
				var entries []WeightEntry
				if withPrimary {
					entries = append(entries, WeightEntry{PrimaryID, 100 - share})
				}

				for c := 0; c < creators; c++ {
					entries = append(entries, WeightEntry{string(rune('a' + c)), float64(c*7 + 1)})
				}

				if len(entries) == 0 {
					continue
				}

				got := Normalize(entries, share)
				sum := sumOf(got)

				if math.Abs(sum-100) > SumTolerance {
					t.Errorf("primary=%v creators=%d share=%v: sum = %v", withPrimary, creators, share, sum)
				}

				if withPrimary {
					assert.Equal(t, PrimaryID, got[0].BeneficiaryID)
				}
			}
		}
	}
}

func TestBuildWeightTable(t *testing.T) {
	primary := &Beneficiary{
		ID:   PrimaryID,
		Awin: NetworkProgram{PublisherID: "111", Advertisers: map[string]string{testStore: "20982"}},
		AliExpress: AliExpressProgram{
			DiscountCodes: "CODE1",
		},
	}
	alice := &Beneficiary{
		ID:         testCreatorA,
		Percentage: 30,
		Awin:       NetworkProgram{PublisherID: "222", Advertisers: map[string]string{testStore: "20982"}},
		Amazon:     AmazonProgram{Advertisers: map[string]string{"amazon.es": "alice-21", "amazon.de": ""}},
	}
	bob := &Beneficiary{
		ID:         testCreatorB,
		Percentage: 10,
		Admitad:    NetworkProgram{PublisherID: "333", Advertisers: map[string]string{testStore: "abc"}},
		AliExpress: AliExpressProgram{AppKey: "key"},
	}

	table := BuildWeightTable([]*Beneficiary{primary, alice, bob}, 10)
	require.NoError(t, table.Validate())

	assert.Equal(t, []string{AliExpressDomain, "amazon.es", testStore}, table.Domains())

	store := table[testStore]
	require.Len(t, store, 3)
	assert.Equal(t, PrimaryID, store[0].BeneficiaryID)
	assert.InDelta(t, 90, store[0].Percentage, SumTolerance)
	assert.InDelta(t, 7.5, store[1].Percentage, SumTolerance)
	assert.InDelta(t, 2.5, store[2].Percentage, SumTolerance)

	amazon := table["amazon.es"]
	require.Len(t, amazon, 1)
	assert.Equal(t, testCreatorA, amazon[0].BeneficiaryID)
	assert.InDelta(t, 100, amazon[0].Percentage, SumTolerance)

	ali := table[AliExpressDomain]
	require.Len(t, ali, 2)
	assert.InDelta(t, 90, ali[0].Percentage, SumTolerance)
	assert.InDelta(t, 10, ali[1].Percentage, SumTolerance)

	assert.Equal(t, "main:90.00% bob:10.00%", table.Describe(AliExpressDomain))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		table   DomainWeightTable
		wantErr bool
	}{
		{name: "valid", table: DomainWeightTable{"a.com": {{PrimaryID, 60}, {testCreatorA, 40}}}},
		{name: "empty list ignored", table: DomainWeightTable{"a.com": nil}},
		{name: "bad sum", table: DomainWeightTable{"a.com": {{PrimaryID, 60}, {testCreatorA, 30}}}, wantErr: true},
		{name: "primary not first", table: DomainWeightTable{"a.com": {{testCreatorA, 40}, {PrimaryID, 60}}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
		})
	}
}
