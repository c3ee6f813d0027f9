package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/japaniel/jlptdeck/pkg/harvest"
	"github.com/japaniel/jlptdeck/pkg/jlpt"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB
// or *sql.Tx.
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// LevelStatus summarizes what the cache knows about one level's harvest.
type LevelStatus struct {
	Level        jlpt.Level
	PagesFetched int
	Completed    bool
	Truncated    bool
	SkippedRows  int
	Duplicates   int
	Candidates   int
}

// InsertCandidate upserts a single harvested candidate. Re-inserting the
// same (level, term, reading) refreshes the tags and page.
func InsertCandidate(db DBExecutor, c harvest.Candidate) error {
	tags, err := json.Marshal(c.RawTags)
	if err != nil {
		return fmt.Errorf("encode raw tags: %w", err)
	}
	_, err = db.Exec(`INSERT INTO candidates (level, term, reading, raw_tags, page)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(level, term, reading) DO UPDATE SET
			raw_tags = excluded.raw_tags,
			page = excluded.page`,
		c.Level.String(), c.Term, c.Reading, string(tags), c.Page)
	if err != nil {
		return fmt.Errorf("upsert candidate %s/%s: %w", c.Level, c.Term, err)
	}
	return nil
}

// SetLevelStatus records the outcome of a level harvest.
func SetLevelStatus(db DBExecutor, s LevelStatus) error {
	_, err := db.Exec(`INSERT INTO levels (level, pages_fetched, completed, truncated, skipped_rows, duplicates, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(level) DO UPDATE SET
			pages_fetched = excluded.pages_fetched,
			completed = excluded.completed,
			truncated = excluded.truncated,
			skipped_rows = excluded.skipped_rows,
			duplicates = excluded.duplicates,
			updated_at = excluded.updated_at`,
		s.Level.String(), s.PagesFetched, boolToInt(s.Completed), boolToInt(s.Truncated),
		s.SkippedRows, s.Duplicates, time.Now())
	if err != nil {
		return fmt.Errorf("set level status %s: %w", s.Level, err)
	}
	return nil
}

// GetLevelStatus returns the recorded status for a level, or nil when the
// level has never been harvested.
func GetLevelStatus(db DBExecutor, level jlpt.Level) (*LevelStatus, error) {
	s := LevelStatus{Level: level}
	var completed, truncated int
	err := db.QueryRow(`SELECT pages_fetched, completed, truncated, skipped_rows, duplicates
		FROM levels WHERE level = ?`, level.String()).
		Scan(&s.PagesFetched, &completed, &truncated, &s.SkippedRows, &s.Duplicates)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.Completed = completed != 0
	s.Truncated = truncated != 0
	if err := db.QueryRow(`SELECT COUNT(*) FROM candidates WHERE level = ?`, level.String()).
		Scan(&s.Candidates); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadLevelResult replays a cached harvest as if it had just run.
func LoadLevelResult(db DBExecutor, level jlpt.Level) (*harvest.LevelResult, error) {
	status, err := GetLevelStatus(db, level)
	if err != nil {
		return nil, err
	}
	if status == nil {
		return nil, nil
	}

	rows, err := db.Query(`SELECT term, reading, raw_tags, page FROM candidates
		WHERE level = ? ORDER BY id`, level.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := &harvest.LevelResult{
		Level:        level,
		PagesFetched: status.PagesFetched,
		Truncated:    status.Truncated,
		SkippedRows:  status.SkippedRows,
		Duplicates:   status.Duplicates,
		FromCache:    true,
	}
	for rows.Next() {
		var c harvest.Candidate
		var rawTags string
		if err := rows.Scan(&c.Term, &c.Reading, &rawTags, &c.Page); err != nil {
			return nil, err
		}
		c.Level = level
		if rawTags != "" {
			if err := json.Unmarshal([]byte(rawTags), &c.RawTags); err != nil {
				return nil, fmt.Errorf("decode raw tags for %s: %w", c.Term, err)
			}
		}
		res.Candidates = append(res.Candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// SaveLevelResult persists a fresh harvest through the batch writer:
// candidate upserts in batches, then the level status marker. The status
// row is written last so an interrupted save never looks complete.
func SaveLevelResult(bw *BatchWriter, res *harvest.LevelResult) error {
	for _, c := range res.Candidates {
		cand := c
		if err := bw.Submit(func(tx DBExecutor) error {
			return InsertCandidate(tx, cand)
		}); err != nil {
			return err
		}
	}
	return bw.Submit(func(tx DBExecutor) error {
		return SetLevelStatus(tx, LevelStatus{
			Level:        res.Level,
			PagesFetched: res.PagesFetched,
			Completed:    !res.Truncated,
			Truncated:    res.Truncated,
			SkippedRows:  res.SkippedRows,
			Duplicates:   res.Duplicates,
		})
	})
}

// SaveAudio records a downloaded pronunciation clip for a lexicon sequence.
func SaveAudio(db DBExecutor, seq, path, url string) error {
	_, err := db.Exec(`INSERT INTO audio_files (seq, path, url, downloaded_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(seq) DO UPDATE SET path = excluded.path, url = excluded.url`,
		seq, path, url, time.Now())
	return err
}

// AudioPath returns the stored path for a sequence, or "" when none exists.
func AudioPath(db DBExecutor, seq string) (string, error) {
	var path string
	err := db.QueryRow(`SELECT path FROM audio_files WHERE seq = ?`, seq).Scan(&path)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return path, nil
}

// AudioCount returns the number of downloaded clips in the manifest.
func AudioCount(db DBExecutor) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM audio_files`).Scan(&n)
	return n, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
