package data

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const importBatchSize = 10000

// ImportORFScores loads tab-separated rows of transcript id, exon number,
// score and max score. Lines starting with # are skipped.
func (s *Store) ImportORFScores(ctx context.Context, r io.Reader) (int, error) {
	var batch []*ORFScore
	total := 0

	err := scanRows(r, 4, func(line int, cols []string) error {
		exon, err := strconv.Atoi(cols[1])
		if err != nil {
			return errors.Wrapf(err, "line %d: invalid exon number", line)
		}
		score, err := strconv.ParseFloat(cols[2], 64)
		if err != nil {
			return errors.Wrapf(err, "line %d: invalid score", line)
		}
		maxScore, err := strconv.ParseFloat(cols[3], 64)
		if err != nil {
			return errors.Wrapf(err, "line %d: invalid max score", line)
		}
		batch = append(batch, &ORFScore{TranscriptID: cols[0], ExonNumber: exon, Score: score, MaxScore: maxScore})
		if len(batch) >= importBatchSize {
			if err := s.SaveORFScores(ctx, batch); err != nil {
				return err
			}
			total += len(batch)
			batch = batch[:0]
		}
		return nil
	})
	if err != nil {
		return total, err
	}

	if err := s.SaveORFScores(ctx, batch); err != nil {
		return total, err
	}
	total += len(batch)
	slog.Debug("PhyloCSF rows imported", "count", total)
	return total, nil
}

// ImportGERPScores loads tab-separated rows of chrom, position and score.
func (s *Store) ImportGERPScores(ctx context.Context, r io.Reader) (int, error) {
	var batch []*GERPScore
	total := 0

	err := scanRows(r, 3, func(line int, cols []string) error {
		pos, err := strconv.ParseInt(cols[1], 10, 64)
		if err != nil {
			return errors.Wrapf(err, "line %d: invalid position", line)
		}
		score, err := strconv.ParseFloat(cols[2], 64)
		if err != nil {
			return errors.Wrapf(err, "line %d: invalid score", line)
		}
		batch = append(batch, &GERPScore{Chrom: cols[0], Pos: pos, Score: score})
		if len(batch) >= importBatchSize {
			if err := s.SaveGERPScores(ctx, batch); err != nil {
				return err
			}
			total += len(batch)
			batch = batch[:0]
		}
		return nil
	})
	if err != nil {
		return total, err
	}

	if err := s.SaveGERPScores(ctx, batch); err != nil {
		return total, err
	}
	total += len(batch)
	slog.Debug("GERP rows imported", "count", total)
	return total, nil
}

func scanRows(r io.Reader, cols int, fn func(line int, cols []string) error) error {
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != cols {
			return errors.Errorf("line %d: expected %d columns, got %d", line, cols, len(fields))
		}
		if err := fn(line, fields); err != nil {
			return err
		}
	}
	return errors.Wrap(sc.Err(), "failed to read rows")
}
