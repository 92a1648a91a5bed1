package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

const foreignKeyViolation = "23503"

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	// Advisory lock keeps the gateway and scorer from migrating concurrently.
	const lockID = 731905442

	var acquired bool
	err := s.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockID).Scan(&acquired)
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}

	if !acquired {
		// Another service is running migrations; wait briefly and skip
		time.Sleep(2 * time.Second)
		return nil
	}

	defer func() {
		_, _ = s.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS corpora (
			id UUID PRIMARY KEY,
			name TEXT,
			created_at TIMESTAMPTZ DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS corpus_entries (
			corpus_id UUID REFERENCES corpora(id) ON DELETE CASCADE,
			ord INT,
			role TEXT,
			content TEXT,
			PRIMARY KEY (corpus_id, ord)
		);`,
		`CREATE TABLE IF NOT EXISTS score_runs (
			id UUID PRIMARY KEY,
			corpus_id UUID REFERENCES corpora(id) ON DELETE CASCADE,
			query TEXT,
			status TEXT,
			baseline DOUBLE PRECISION,
			baseline_estimated BOOLEAN,
			scores JSONB,
			error TEXT,
			created_at TIMESTAMPTZ DEFAULT now()
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) CreateCorpus(ctx context.Context, name string, entries []Entry) (Corpus, error) {
	if len(entries) == 0 {
		return Corpus{}, ErrEmptyCorpus
	}
	id := uuid.New()
	ords := make([]int64, len(entries))
	roles := make([]string, len(entries))
	contents := make([]string, len(entries))
	for i, e := range entries {
		ords[i] = int64(i)
		roles[i] = e.Role
		contents[i] = e.Content
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Corpus{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO corpora(id, name) VALUES($1,$2)`, id, name); err != nil {
		return Corpus{}, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO corpus_entries(corpus_id, ord, role, content)
		SELECT $1, e.ord, e.role, e.content
		FROM unnest($2::int[], $3::text[], $4::text[]) AS e(ord, role, content)`,
		id, pq.Array(ords), pq.Array(roles), pq.Array(contents))
	if err != nil {
		return Corpus{}, err
	}
	if err := tx.Commit(); err != nil {
		return Corpus{}, err
	}
	return Corpus{ID: id, Name: name, Entries: entries}, nil
}

func (s *PostgresStore) GetCorpus(ctx context.Context, id uuid.UUID) (Corpus, error) {
	c := Corpus{ID: id}
	err := s.db.QueryRowContext(ctx, `SELECT name FROM corpora WHERE id=$1`, id).Scan(&c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return Corpus{}, ErrNotFound
	}
	if err != nil {
		return Corpus{}, fmt.Errorf("failed to get corpus %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT role, content FROM corpus_entries WHERE corpus_id=$1 ORDER BY ord`, id)
	if err != nil {
		return Corpus{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Role, &e.Content); err != nil {
			return Corpus{}, err
		}
		c.Entries = append(c.Entries, e)
	}
	return c, rows.Err()
}

func (s *PostgresStore) CreateRun(ctx context.Context, corpusID uuid.UUID, query string) (Run, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx, `INSERT INTO score_runs(id, corpus_id, query, status) VALUES($1,$2,$3,$4)`,
		id, corpusID, query, RunPending)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return Run{}, fmt.Errorf("corpus %s: %w", corpusID, ErrNotFound)
		}
		return Run{}, err
	}
	return Run{ID: id, CorpusID: corpusID, Query: query, Status: RunPending, CreatedAt: time.Now()}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, run Run) error {
	scores, err := json.Marshal(run.Scores)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE score_runs SET status=$1, baseline=$2, baseline_estimated=$3, scores=$4, error=NULL
		WHERE id=$5`,
		RunReady, run.Baseline, run.BaselineEstimated, scores, run.ID)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (s *PostgresStore) FailRun(ctx context.Context, id uuid.UUID, reason string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE score_runs SET status=$1, error=$2 WHERE id=$3`, RunFailed, reason, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (Run, error) {
	var (
		run       Run
		baseline  sql.NullFloat64
		estimated sql.NullBool
		scores    []byte
		reason    sql.NullString
		status    string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, corpus_id, query, status, baseline, baseline_estimated, scores, error, created_at
		FROM score_runs WHERE id=$1`, id).
		Scan(&run.ID, &run.CorpusID, &run.Query, &status, &baseline, &estimated, &scores, &reason, &run.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	run.Status = RunStatus(status)
	run.Baseline = baseline.Float64
	run.BaselineEstimated = estimated.Bool
	run.Error = reason.String
	if len(scores) > 0 {
		if err := json.Unmarshal(scores, &run.Scores); err != nil {
			return Run{}, fmt.Errorf("decode scores for run %s: %w", id, err)
		}
	}
	return run, nil
}

func expectOneRow(res sql.Result) error {
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
