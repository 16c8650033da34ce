package attribution

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amazonBeneficiary(id string, pct float64, tag string) *Beneficiary {
	return &Beneficiary{
		ID:         id,
		Percentage: pct,
		Amazon:     AmazonProgram{Advertisers: map[string]string{"amazon.es": tag}},
	}
}

func TestNewSnapshot(t *testing.T) {
	primary := amazonBeneficiary("ignored", 0, "main-21")
	creators := []*Beneficiary{
		amazonBeneficiary("alice", 1, "alice-21"),
		amazonBeneficiary("alice", 9, "dup-21"),
		amazonBeneficiary(PrimaryID, 5, "fake-21"),
		amazonBeneficiary("", 5, "anon-21"),
		nil,
	}

	snap := NewSnapshot(primary, creators, Settings{CreatorSharePercent: 10}, Messages{ReplyPrefix: "by"}, time.Unix(10, 0))

	ids := make([]string, 0)
	for _, b := range snap.Beneficiaries() {
		ids = append(ids, b.ID)
	}

	assert.Equal(t, []string{PrimaryID, "alice"}, ids)
	assert.Equal(t, "alice-21", snap.Beneficiary("alice").Amazon.Advertisers["amazon.es"])
	assert.True(t, snap.HasDomain("amazon.es"))
	assert.False(t, snap.HasDomain("amazon.de"))
	assert.Equal(t, "by", snap.Messages().ReplyPrefix)
	assert.Equal(t, time.Unix(10, 0), snap.LoadedAt())
	require.NoError(t, snap.WeightTable().Validate())

	assert.Equal(t, PrimaryID, snap.SelectBeneficiary("amazon.es", 50).ID)
	assert.Equal(t, "alice", snap.SelectBeneficiary("amazon.es", 95).ID)
	assert.Nil(t, snap.SelectBeneficiary("amazon.de", 50))
	assert.Equal(t, "ignored", primary.ID)
	assert.Equal(t, PrimaryID, snap.Beneficiary(PrimaryID).ID)
}

func TestSnapshotWeightsIsCopy(t *testing.T) {
	snap := NewSnapshot(amazonBeneficiary("", 0, "main-21"), nil, Settings{CreatorSharePercent: 10}, Messages{}, time.Now())

	w := snap.Weights("amazon.es")
	require.Len(t, w, 1)

	w[0].Percentage = 1
	assert.InDelta(t, 100.0, snap.Weights("amazon.es")[0].Percentage, SumTolerance)
}

func TestPatternCache(t *testing.T) {
	cache := NewPatternCache()

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			re, err := cache.Compile("amazon|amazon.es", `^https?://amazon\.es/`)
			assert.NoError(t, err)
			assert.True(t, re.MatchString("https://amazon.es/dp/1"))
		}()
	}

	wg.Wait()
	assert.Equal(t, 1, cache.Len())

	_, err := cache.Compile("bad", `(`)
	require.Error(t, err)
	assert.Equal(t, 1, cache.Len())
}

func newTestSnapshot() *Snapshot {
	primary := &Beneficiary{
		Amazon: AmazonProgram{Advertisers: map[string]string{"amazon.es": "main-21"}},
	}
	alice := &Beneficiary{
		ID:         testCreatorA,
		Percentage: 10,
		Amazon:     AmazonProgram{Advertisers: map[string]string{"amazon.es": "alice-21"}},
	}

	return NewSnapshot(primary, []*Beneficiary{alice, {ID: PrimaryID}, {ID: ""}},
		Settings{CreatorSharePercent: 25}, Messages{}, time.Unix(0, 0))
}

func TestSnapshotSelectBeneficiary(t *testing.T) {
	snap := newTestSnapshot()

	require.Len(t, snap.Beneficiaries(), 2)
	assert.True(t, snap.Beneficiary(PrimaryID).IsPrimary())

	assert.Equal(t, PrimaryID, snap.SelectBeneficiary("amazon.es", 10).ID)
	assert.Equal(t, testCreatorA, snap.SelectBeneficiary("amazon.es", 90).ID)
	assert.Nil(t, snap.SelectBeneficiary("unknown.com", 10))
	assert.True(t, snap.HasDomain("amazon.es"))
	assert.False(t, snap.HasDomain("unknown.com"))

	weights := snap.Weights("amazon.es")
	weights[0].Percentage = 0
	assert.InDelta(t, 75, snap.Weights("amazon.es")[0].Percentage, SumTolerance)
}
