package data

import (
	"context"
	"os"
	"testing"

	"github.com/mchmarny/lofcall/pkg/lof"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const pgTestEnvVar = "LOF_PG_TEST"

func TestPostgresStore(t *testing.T) {
	if os.Getenv(pgTestEnvVar) == "" {
		t.Skipf("set %s to run the postgres integration test", pgTestEnvVar)
	}

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("lof"),
		postgres.WithUsername("lof"),
		postgres.WithPassword("lof"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := Open(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, driverPostgres, s.driver)

	require.NoError(t, s.SaveORFScores(ctx, []*ORFScore{{TranscriptID: "ENST1", ExonNumber: 1, Score: -2, MaxScore: 5}}))
	require.NoError(t, s.SaveGERPScores(ctx, []*GERPScore{{Chrom: "1", Pos: 100, Score: 3}, {Chrom: "1", Pos: 101, Score: 4}}))

	orf, err := s.LookupORF(ctx, &lof.Annotation{
		Transcript: &lof.Transcript{ID: "ENST1"},
		Exon:       &lof.Position{Index: 1, Total: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, &lof.ORFScore{Score: -2, MaxScore: 5}, orf)

	tr := &lof.Transcript{Chrom: "1", Strand: 1, CodingStart: 100, CodingEnd: 101, Exons: []lof.Exon{{Start: 100, End: 101}}}
	d, err := s.WeightedDistance(ctx, &lof.Annotation{Transcript: tr}, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(2), d.Raw)
	assert.InDelta(t, 7.0, d.Weighted, 1e-9)
}
