package data

import (
	"context"
	"database/sql"

	"github.com/mchmarny/lofcall/pkg/lof"
	"github.com/pkg/errors"
)

const (
	insertGERP = `INSERT INTO gerp (chrom, pos, score) VALUES (?, ?, ?)
		ON CONFLICT(chrom, pos) DO UPDATE SET score = excluded.score
	`

	selectGERP = `SELECT pos, score FROM gerp WHERE chrom = ? AND pos BETWEEN ? AND ?`
)

// GERPScore is the conservation score of one base.
type GERPScore struct {
	Chrom string  `json:"chrom" yaml:"chrom"`
	Pos   int64   `json:"pos" yaml:"pos"`
	Score float64 `json:"score" yaml:"score"`
}

// SaveGERPScores upserts per-base GERP scores in one transaction.
func (s *Store) SaveGERPScores(ctx context.Context, rows []*GERPScore) error {
	if s == nil || s.db == nil {
		return errDBNotInitialized
	}

	return s.inTx(ctx, insertGERP, func(stmt *sql.Stmt) error {
		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, r.Chrom, r.Pos, r.Score); err != nil {
				return errors.Wrapf(err, "failed to insert GERP score for %s:%d", r.Chrom, r.Pos)
			}
		}
		return nil
	})
}

// GetGERPScores returns scores in [start, end] keyed by position. Bases
// without a row are absent.
func (s *Store) GetGERPScores(ctx context.Context, chrom string, start, end int64) (map[int64]float64, error) {
	if s == nil || s.db == nil {
		return nil, errDBNotInitialized
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(selectGERP), chrom, start, end)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query GERP scores")
	}
	defer rows.Close()

	out := make(map[int64]float64)
	for rows.Next() {
		var pos int64
		var score float64
		if err := rows.Scan(&pos, &score); err != nil {
			return nil, errors.Wrap(err, "failed to scan GERP row")
		}
		out[pos] = score
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate GERP rows")
	}
	return out, nil
}

// WeightedDistance sums GERP scores over the coding bases from pos to the
// coding end. Bases without a score weigh nothing.
func (s *Store) WeightedDistance(ctx context.Context, a *lof.Annotation, pos int64) (*lof.Distance, error) {
	d := &lof.Distance{}
	if a.Transcript == nil {
		return d, nil
	}

	for _, span := range lof.CodingSpansFrom(a.Transcript, pos) {
		scores, err := s.GetGERPScores(ctx, a.Transcript.Chrom, span.Start, span.End)
		if err != nil {
			return nil, err
		}
		for p := span.Start; p <= span.End; p++ {
			d.Weighted += scores[p]
		}
		d.Raw += span.Len()
	}
	return d, nil
}
