package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"golang.org/x/exp/slog"
	_ "modernc.org/sqlite"

	"ytbucket/duration"
	"ytbucket/pipeline"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrNoRun is returned by LatestRun when a playlist was never synced.
var ErrNoRun = errors.New("sink: no sync run recorded")

var sqlMigrations = []string{
	`CREATE TABLE sync_run (
    id VARCHAR(36) PRIMARY KEY,
    playlist_id VARCHAR(64) NOT NULL,
    generated_at TIMESTAMP NOT NULL,
    row_count INTEGER NOT NULL
)`,
	`CREATE TABLE video_row (
    run_id VARCHAR(36) NOT NULL REFERENCES sync_run(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    video_id VARCHAR(32) NOT NULL,
    bucket VARCHAR(16) NOT NULL,
    channel_avatar TEXT NOT NULL,
    title TEXT NOT NULL,
    link TEXT NOT NULL,
    channel TEXT NOT NULL,
    published_at TEXT NOT NULL,
    duration TEXT NOT NULL,
    views BIGINT NOT NULL,
    likes BIGINT NOT NULL,
    comments BIGINT NOT NULL,
    short_description TEXT NOT NULL,
    tags TEXT NOT NULL,
    thumbnail TEXT NOT NULL,
    PRIMARY KEY (run_id, position)
)`,
	`CREATE INDEX video_row_bucket ON video_row (run_id, bucket)`,
	`CREATE INDEX sync_run_playlist ON sync_run (playlist_id, generated_at)`,
}

// SQL records every sync run and its rows in a relational database.
type SQL struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// OpenSQL connects with driver ("sqlite" or "postgres") and applies pending
// migrations.
func OpenSQL(ctx context.Context, driver, dsn string, logger *slog.Logger) (*SQL, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("sink: unsupported sql driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	s, err := NewSQL(ctx, db, driver, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQL wraps an open database and applies pending migrations.
func NewSQL(ctx context.Context, db *sql.DB, driver string, logger *slog.Logger) (*SQL, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SQL{db: db, driver: driver, logger: logger}
	if err := s.migrate(ctx, sqlMigrations); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQL) Name() string { return "sql" }

// Close closes the database.
func (s *SQL) Close() error { return s.db.Close() }

// Write stores the run and its rows in one transaction.
func (s *SQL) Write(ctx context.Context, table *Table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`
INSERT INTO sync_run
(id, playlist_id, generated_at, row_count) VALUES (?, ?, ?, ?)
`), table.RunID, table.PlaylistID, table.GeneratedAt.UTC(), len(table.Rows)); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(`
INSERT INTO video_row
(run_id, position, video_id, bucket, channel_avatar, title, link, channel,
 published_at, duration, views, likes, comments, short_description, tags, thumbnail)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`))
	if err != nil {
		return fmt.Errorf("prepare row insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range table.Rows {
		if _, err := stmt.ExecContext(ctx,
			table.RunID, i, r.VideoID, string(r.Category), r.ChannelAvatar, r.Title, r.Link, r.Channel,
			r.PublishedAt, r.Duration, int64(r.Views), int64(r.Likes), int64(r.Comments),
			r.ShortDescription, r.Tags, r.Thumbnail,
		); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("sql run recorded",
		slog.String("run", table.RunID),
		slog.Int("rows", len(table.Rows)))
	return nil
}

// LatestRun rebuilds the Table of the most recent run for playlistID.
func (s *SQL) LatestRun(ctx context.Context, playlistID string, columns []pipeline.Column) (*Table, error) {
	table := &Table{PlaylistID: playlistID, Columns: columns, Index: pipeline.NewIndex()}
	err := s.db.QueryRowContext(ctx, s.rebind(`
SELECT id, generated_at FROM sync_run
WHERE playlist_id = ?
ORDER BY generated_at DESC
LIMIT 1
`), playlistID).Scan(&table.RunID, &table.GeneratedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRun
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
SELECT video_id, bucket, channel_avatar, title, link, channel, published_at, duration,
       views, likes, comments, short_description, tags, thumbnail
FROM video_row
WHERE run_id = ?
ORDER BY position
`), table.RunID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r      pipeline.Row
			bucket string
		)
		if err := rows.Scan(&r.VideoID, &bucket, &r.ChannelAvatar, &r.Title, &r.Link, &r.Channel,
			&r.PublishedAt, &r.Duration, &r.Views, &r.Likes, &r.Comments,
			&r.ShortDescription, &r.Tags, &r.Thumbnail); err != nil {
			return nil, err
		}
		r.Category = duration.Bucket(bucket)
		if !r.Category.Valid() {
			r.Category = duration.BucketUnknown
		}
		table.Rows = append(table.Rows, r)
		table.Index[r.Category] = append(table.Index[r.Category], r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	table.GeneratedAt = table.GeneratedAt.UTC()
	return table, nil
}

func (s *SQL) migrate(ctx context.Context, wanted []string) error {
	query := `CREATE TABLE IF NOT EXISTS migration
(id INTEGER PRIMARY KEY, query TEXT NOT NULL)`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT query FROM migration ORDER BY id`)
	if err != nil {
		return err
	}
	existing := []string{}
	for rows.Next() {
		var query string
		if err := rows.Scan(&query); err != nil {
			rows.Close()
			return err
		}
		existing = append(existing, query)
	}
	rows.Close()

	missing, err := compareMigrations(wanted, existing)
	if err != nil {
		return err
	}

	for i, query := range missing {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return err
		}
		id := len(existing) + i + 1
		if _, err := s.db.ExecContext(ctx, s.rebind(`
INSERT INTO migration
(id, query) VALUES (?, ?)
`), id, query); err != nil {
			return err
		}
	}
	if len(missing) > 0 {
		s.logger.Info("applied sql migrations", slog.Int("count", len(missing)))
	}
	return nil
}

func compareMigrations(wanted, existing []string) ([]string, error) {
	needed := []string{}
	if len(wanted) < len(existing) {
		return []string{}, fmt.Errorf("not enough migrations")
	}

	for i, want := range wanted {
		switch {
		case i >= len(existing):
			needed = append(needed, want)
		case want == existing[i]:
			// do nothing
		case want != existing[i]:
			return []string{}, fmt.Errorf("incompatible migration: %v", want)
		}
	}

	return needed, nil
}

// rebind rewrites ? placeholders as $1, $2, ... for postgres.
func (s *SQL) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
