// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/meshintel/opera/pkg/types"
)

// SQLite is a database-backed Store.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates the database at path and bootstraps the
// schema.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = "opera.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_by TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL REFERENCES projects(id),
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			description TEXT,
			lat REAL,
			lng REAL,
			data TEXT,
			added_by TEXT,
			created_at TEXT NOT NULL,
			UNIQUE(project_id, name, type)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_project ON items(project_id)`,
		`CREATE TABLE IF NOT EXISTS cycles (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL REFERENCES projects(id),
			cycle_number INTEGER NOT NULL,
			status TEXT NOT NULL,
			sources_found INTEGER NOT NULL DEFAULT 0,
			findings_queued INTEGER NOT NULL DEFAULT 0,
			started_at TEXT NOT NULL,
			completed_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_project ON cycles(project_id)`,
		`CREATE TABLE IF NOT EXISTS sources (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL REFERENCES projects(id),
			url TEXT NOT NULL,
			title TEXT,
			snippet TEXT,
			provider TEXT,
			source_type TEXT,
			full_text TEXT,
			credibility_score REAL,
			discovered_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sources_project ON sources(project_id)`,
		`CREATE TABLE IF NOT EXISTS reviews (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL REFERENCES projects(id),
			cycle_id TEXT,
			finding_type TEXT NOT NULL,
			name TEXT,
			address TEXT,
			lat REAL,
			lng REAL,
			confidence REAL NOT NULL,
			context_snippet TEXT,
			source_url TEXT,
			reviewed INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			scraped_from TEXT,
			created_at TEXT NOT NULL,
			reviewed_at TEXT,
			reviewed_by TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_project ON reviews(project_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func (s *SQLite) CreateProject(ctx context.Context, p *types.Project) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, created_by, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, p.CreatedBy, p.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting project: %w", err)
	}
	return nil
}

func (s *SQLite) Project(ctx context.Context, id string) (*types.Project, error) {
	var p types.Project
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_by, created_at FROM projects WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.CreatedBy, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying project: %w", err)
	}
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

func (s *SQLite) Projects(ctx context.Context) ([]types.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_by, created_at FROM projects ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	var out []types.Project
	for rows.Next() {
		var p types.Project
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		p.CreatedAt = parseTime(createdAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLite) AddItem(ctx context.Context, projectID string, item types.ProjectItem) error {
	var lat, lng sql.NullFloat64
	if item.Coords != nil {
		lat = sql.NullFloat64{Float64: item.Coords.Latitude, Valid: true}
		lng = sql.NullFloat64{Float64: item.Coords.Longitude, Valid: true}
	}
	dataJSON, _ := json.Marshal(item.Data)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO items (id, project_id, name, type, description, lat, lng, data, added_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, projectID, item.Name, string(item.Type), item.Description,
		lat, lng, string(dataJSON), item.AddedBy,
		item.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting item: %w", err)
	}
	return nil
}

func (s *SQLite) Items(ctx context.Context, projectID string) ([]types.ProjectItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, type, description, lat, lng, data, added_by, created_at
		 FROM items WHERE project_id = ? ORDER BY created_at`, projectID)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var out []types.ProjectItem
	for rows.Next() {
		var item types.ProjectItem
		var typ, createdAt string
		var lat, lng sql.NullFloat64
		var dataJSON sql.NullString
		if err := rows.Scan(&item.ID, &item.Name, &typ, &item.Description,
			&lat, &lng, &dataJSON, &item.AddedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		item.Type = types.ItemType(typ)
		if lat.Valid && lng.Valid {
			item.Coords = &types.LatLng{Latitude: lat.Float64, Longitude: lng.Float64}
		}
		if dataJSON.Valid && dataJSON.String != "" && dataJSON.String != "null" {
			_ = json.Unmarshal([]byte(dataJSON.String), &item.Data)
		}
		item.CreatedAt = parseTime(createdAt)
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *SQLite) CreateCycle(ctx context.Context, c *types.ResearchCycle) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cycles (id, project_id, cycle_number, status, sources_found, findings_queued, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ProjectID, c.CycleNumber, string(c.Status),
		c.SourcesFound, c.FindingsQueued,
		c.StartedAt.UTC().Format(time.RFC3339Nano), nullableTime(c.CompletedAt))
	if err != nil {
		return fmt.Errorf("inserting cycle: %w", err)
	}
	return nil
}

func (s *SQLite) UpdateCycle(ctx context.Context, c *types.ResearchCycle) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE cycles SET status = ?, sources_found = ?, findings_queued = ?, completed_at = ?
		 WHERE id = ?`,
		string(c.Status), c.SourcesFound, c.FindingsQueued, nullableTime(c.CompletedAt), c.ID)
	if err != nil {
		return fmt.Errorf("updating cycle: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("cycle %s: %w", c.ID, ErrNotFound)
	}
	return nil
}

func (s *SQLite) NextCycleNumber(ctx context.Context, projectID string) (int, error) {
	var max sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(cycle_number) FROM cycles WHERE project_id = ?`, projectID,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("querying cycle number: %w", err)
	}
	return int(max.Int64) + 1, nil
}

func (s *SQLite) CyclesFor(ctx context.Context, projectID string) ([]types.ResearchCycle, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, cycle_number, status, sources_found, findings_queued, started_at, completed_at
		 FROM cycles WHERE project_id = ? ORDER BY cycle_number`, projectID)
	if err != nil {
		return nil, fmt.Errorf("querying cycles: %w", err)
	}
	defer rows.Close()

	var out []types.ResearchCycle
	for rows.Next() {
		var c types.ResearchCycle
		var status, startedAt string
		var completedAt sql.NullString
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.CycleNumber, &status,
			&c.SourcesFound, &c.FindingsQueued, &startedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scanning cycle: %w", err)
		}
		c.Status = types.CycleStatus(status)
		c.StartedAt = parseTime(startedAt)
		if completedAt.Valid {
			t := parseTime(completedAt.String)
			c.CompletedAt = &t
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLite) SaveSource(ctx context.Context, projectID string, src types.SourceRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sources (id, project_id, url, title, snippet, provider, source_type, full_text, credibility_score, discovered_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		src.ID, projectID, src.URL, src.Title, src.Snippet, src.Provider,
		src.SourceType, src.FullText, src.CredibilityScore,
		src.DiscoveredAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting source: %w", err)
	}
	return nil
}

func (s *SQLite) SourcesFor(ctx context.Context, projectID string) ([]types.SourceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, title, snippet, provider, source_type, full_text, credibility_score, discovered_at
		 FROM sources WHERE project_id = ? ORDER BY discovered_at`, projectID)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	var out []types.SourceRecord
	for rows.Next() {
		var src types.SourceRecord
		var discoveredAt string
		if err := rows.Scan(&src.ID, &src.URL, &src.Title, &src.Snippet,
			&src.Provider, &src.SourceType, &src.FullText, &src.CredibilityScore, &discoveredAt); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		src.DiscoveredAt = parseTime(discoveredAt)
		out = append(out, src)
	}
	return out, rows.Err()
}

func (s *SQLite) SaveReview(ctx context.Context, item *types.ReviewItem) error {
	var lat, lng sql.NullFloat64
	if item.Coords != nil {
		lat = sql.NullFloat64{Float64: item.Coords.Latitude, Valid: true}
		lng = sql.NullFloat64{Float64: item.Coords.Longitude, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reviews (id, project_id, cycle_id, finding_type, name, address, lat, lng,
			confidence, context_snippet, source_url, reviewed, status, scraped_from,
			created_at, reviewed_at, reviewed_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.ProjectID, item.CycleID, string(item.FindingKind),
		item.Name, item.Address, lat, lng,
		item.Confidence, item.ContextSnippet, item.SourceURL,
		boolToInt(item.Reviewed), string(item.Status), item.ScrapedFrom,
		item.CreatedAt.UTC().Format(time.RFC3339Nano),
		nullableTime(item.ReviewedAt), item.ReviewedBy)
	if err != nil {
		return fmt.Errorf("inserting review: %w", err)
	}
	return nil
}

func (s *SQLite) UpdateReview(ctx context.Context, item *types.ReviewItem) error {
	var lat, lng sql.NullFloat64
	if item.Coords != nil {
		lat = sql.NullFloat64{Float64: item.Coords.Latitude, Valid: true}
		lng = sql.NullFloat64{Float64: item.Coords.Longitude, Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE reviews SET lat = ?, lng = ?, address = ?, reviewed = ?, status = ?,
			reviewed_at = ?, reviewed_by = ? WHERE id = ?`,
		lat, lng, item.Address, boolToInt(item.Reviewed), string(item.Status),
		nullableTime(item.ReviewedAt), item.ReviewedBy, item.ID)
	if err != nil {
		return fmt.Errorf("updating review: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("review %s: %w", item.ID, ErrNotFound)
	}
	return nil
}

func (s *SQLite) ReviewsFor(ctx context.Context, projectID string) ([]types.ReviewItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, cycle_id, finding_type, name, address, lat, lng,
			confidence, context_snippet, source_url, reviewed, status, scraped_from,
			created_at, reviewed_at, reviewed_by
		 FROM reviews WHERE project_id = ? ORDER BY created_at`, projectID)
	if err != nil {
		return nil, fmt.Errorf("querying reviews: %w", err)
	}
	defer rows.Close()

	var out []types.ReviewItem
	for rows.Next() {
		var item types.ReviewItem
		var kind, status, createdAt string
		var lat, lng sql.NullFloat64
		var reviewed int
		var reviewedAt sql.NullString
		if err := rows.Scan(&item.ID, &item.ProjectID, &item.CycleID, &kind,
			&item.Name, &item.Address, &lat, &lng,
			&item.Confidence, &item.ContextSnippet, &item.SourceURL,
			&reviewed, &status, &item.ScrapedFrom,
			&createdAt, &reviewedAt, &item.ReviewedBy); err != nil {
			return nil, fmt.Errorf("scanning review: %w", err)
		}
		item.FindingKind = types.FindingKind(kind)
		item.Status = types.ReviewStatus(status)
		item.Reviewed = reviewed != 0
		if lat.Valid && lng.Valid {
			item.Coords = &types.LatLng{Latitude: lat.Float64, Longitude: lng.Float64}
		}
		item.CreatedAt = parseTime(createdAt)
		if reviewedAt.Valid {
			t := parseTime(reviewedAt.String)
			item.ReviewedAt = &t
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
