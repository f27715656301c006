package data

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportORFScores(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	in := "# transcript\texon\tscore\tmax\nENST1\t1\t3.5\t10\nENST1\t2\t-4\t10\n\n"
	n, err := s.ImportORFScores(ctx, strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.GetORFScore(ctx, "ENST1", 2)
	require.NoError(t, err)
	assert.Equal(t, -4.0, got.Score)
}

func TestImportORFScores_Invalid(t *testing.T) {
	s := setupTestStore(t)
	tests := []struct {
		name string
		in   string
	}{
		{"columns", "ENST1\t1\t3.5\n"},
		{"exon", "ENST1\tx\t3.5\t1\n"},
		{"score", "ENST1\t1\tx\t1\n"},
		{"max score", "ENST1\t1\t1\tx\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ImportORFScores(context.Background(), strings.NewReader(tt.in))
			assert.Error(t, err)
		})
	}
}

func TestImportGERPScores(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	n, err := s.ImportGERPScores(ctx, strings.NewReader("1\t100\t2.5\n1\t101\t-0.5\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.GetGERPScores(ctx, "1", 100, 101)
	require.NoError(t, err)
	assert.Equal(t, map[int64]float64{100: 2.5, 101: -0.5}, got)

	_, err = s.ImportGERPScores(ctx, strings.NewReader("1\tx\t2.5\n"))
	assert.Error(t, err)
}
