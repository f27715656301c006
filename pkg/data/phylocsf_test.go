package data

import (
	"context"
	"testing"

	"github.com/mchmarny/lofcall/pkg/lof"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndGetORFScore(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	rows := []*ORFScore{
		{TranscriptID: "ENST1", ExonNumber: 1, Score: 10.5, MaxScore: 40},
		{TranscriptID: "ENST1", ExonNumber: 2, Score: -2, MaxScore: 40},
	}
	require.NoError(t, s.SaveORFScores(ctx, rows))

	got, err := s.GetORFScore(ctx, "ENST1", 2)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, -2.0, got.Score)
	assert.Equal(t, 40.0, got.MaxScore)

	missing, err := s.GetORFScore(ctx, "ENST1", 3)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSaveORFScores_Upsert(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveORFScores(ctx, []*ORFScore{{TranscriptID: "ENST1", ExonNumber: 1, Score: 1, MaxScore: 1}}))
	require.NoError(t, s.SaveORFScores(ctx, []*ORFScore{{TranscriptID: "ENST1", ExonNumber: 1, Score: 5, MaxScore: 9}}))

	got, err := s.GetORFScore(ctx, "ENST1", 1)
	require.NoError(t, err)
	assert.Equal(t, 5.0, got.Score)
	assert.Equal(t, 9.0, got.MaxScore)
}

func TestSaveORFScores_Invalid(t *testing.T) {
	s := setupTestStore(t)
	err := s.SaveORFScores(context.Background(), []*ORFScore{{ExonNumber: 1}})
	assert.Error(t, err)
}

func TestORFScore_NilStore(t *testing.T) {
	var s *Store
	_, err := s.GetORFScore(context.Background(), "ENST1", 1)
	assert.ErrorIs(t, err, errDBNotInitialized)
	assert.ErrorIs(t, s.SaveORFScores(context.Background(), nil), errDBNotInitialized)
}

func TestLookupORF(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveORFScores(ctx, []*ORFScore{{TranscriptID: "ENST1", ExonNumber: 2, Score: -1, MaxScore: 3}}))

	a := &lof.Annotation{
		Transcript: &lof.Transcript{ID: "ENST1"},
		Exon:       &lof.Position{Index: 2, Total: 3},
	}
	got, err := s.LookupORF(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, &lof.ORFScore{Score: -1, MaxScore: 3}, got)

	a.Exon.Index = 1
	got, err = s.LookupORF(ctx, a)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.LookupORF(ctx, &lof.Annotation{Transcript: &lof.Transcript{ID: "ENST1"}})
	require.NoError(t, err)
	assert.Nil(t, got)
}
