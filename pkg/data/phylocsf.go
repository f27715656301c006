package data

import (
	"context"
	"database/sql"

	"github.com/mchmarny/lofcall/pkg/lof"
	"github.com/pkg/errors"
)

const (
	insertORF = `INSERT INTO phylocsf (transcript_id, exon_number, score, max_score) VALUES (?, ?, ?, ?)
		ON CONFLICT(transcript_id, exon_number) DO UPDATE SET score = excluded.score, max_score = excluded.max_score
	`

	selectORF = `SELECT score, max_score FROM phylocsf WHERE transcript_id = ? AND exon_number = ?`
)

// ORFScore is one PhyloCSF row.
type ORFScore struct {
	TranscriptID string  `json:"transcript_id" yaml:"transcript_id"`
	ExonNumber   int     `json:"exon_number" yaml:"exon_number"`
	Score        float64 `json:"score" yaml:"score"`
	MaxScore     float64 `json:"max_score" yaml:"max_score"`
}

// SaveORFScores upserts PhyloCSF rows in one transaction.
func (s *Store) SaveORFScores(ctx context.Context, rows []*ORFScore) error {
	if s == nil || s.db == nil {
		return errDBNotInitialized
	}

	return s.inTx(ctx, insertORF, func(stmt *sql.Stmt) error {
		for _, r := range rows {
			if r.TranscriptID == "" {
				return errors.New("transcript id required")
			}
			if _, err := stmt.ExecContext(ctx, r.TranscriptID, r.ExonNumber, r.Score, r.MaxScore); err != nil {
				return errors.Wrapf(err, "failed to insert PhyloCSF row for %s exon %d", r.TranscriptID, r.ExonNumber)
			}
		}
		return nil
	})
}

// GetORFScore returns the PhyloCSF row for the transcript exon, or nil.
func (s *Store) GetORFScore(ctx context.Context, transcriptID string, exonNumber int) (*ORFScore, error) {
	if s == nil || s.db == nil {
		return nil, errDBNotInitialized
	}

	row := s.db.QueryRowContext(ctx, s.rebind(selectORF), transcriptID, exonNumber)

	o := &ORFScore{TranscriptID: transcriptID, ExonNumber: exonNumber}
	if err := row.Scan(&o.Score, &o.MaxScore); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to scan PhyloCSF row")
	}
	return o, nil
}

// LookupORF serves the classifier's conservation lookup.
func (s *Store) LookupORF(ctx context.Context, a *lof.Annotation) (*lof.ORFScore, error) {
	if a.Transcript == nil || a.Exon == nil {
		return nil, nil
	}
	o, err := s.GetORFScore(ctx, a.Transcript.ID, a.Exon.Index)
	if err != nil || o == nil {
		return nil, err
	}
	return &lof.ORFScore{Score: o.Score, MaxScore: o.MaxScore}, nil
}

func (s *Store) inTx(ctx context.Context, query string, fn func(*sql.Stmt) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(query))
	if err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "failed to prepare statement")
	}
	defer stmt.Close()

	if err := fn(stmt); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return errors.Wrapf(rerr, "failed to rollback transaction after: %v", err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}
