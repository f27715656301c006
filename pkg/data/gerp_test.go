package data

import (
	"context"
	"testing"

	"github.com/mchmarny/lofcall/pkg/lof"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndGetGERPScores(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveGERPScores(ctx, []*GERPScore{
		{Chrom: "1", Pos: 10, Score: 2.5},
		{Chrom: "1", Pos: 11, Score: -1},
		{Chrom: "2", Pos: 10, Score: 7},
	}))

	got, err := s.GetGERPScores(ctx, "1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, map[int64]float64{10: 2.5}, got)

	got, err = s.GetGERPScores(ctx, "1", 10, 20)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestWeightedDistance(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	tr := &lof.Transcript{
		ID:          "ENST1",
		Chrom:       "1",
		Strand:      1,
		CodingStart: 100,
		CodingEnd:   209,
		Exons:       []lof.Exon{{Start: 100, End: 109}, {Start: 200, End: 209}},
	}

	var rows []*GERPScore
	for p := int64(100); p <= 109; p++ {
		rows = append(rows, &GERPScore{Chrom: "1", Pos: p, Score: 1})
	}
	for p := int64(200); p <= 209; p++ {
		rows = append(rows, &GERPScore{Chrom: "1", Pos: p, Score: 2})
	}
	// outside the coding spans
	rows = append(rows, &GERPScore{Chrom: "1", Pos: 150, Score: 100})
	require.NoError(t, s.SaveGERPScores(ctx, rows))

	d, err := s.WeightedDistance(ctx, &lof.Annotation{Transcript: tr}, 105)
	require.NoError(t, err)
	assert.Equal(t, int64(15), d.Raw)
	assert.InDelta(t, 25.0, d.Weighted, 1e-9)

	d, err = s.WeightedDistance(ctx, &lof.Annotation{Transcript: tr}, 205)
	require.NoError(t, err)
	assert.Equal(t, int64(5), d.Raw)
	assert.InDelta(t, 10.0, d.Weighted, 1e-9)

	d, err = s.WeightedDistance(ctx, &lof.Annotation{}, 1)
	require.NoError(t, err)
	assert.Equal(t, &lof.Distance{}, d)
}
