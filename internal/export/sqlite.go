package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/jonathan/analytics-portfolio/internal/catalog"
	"github.com/jonathan/analytics-portfolio/internal/types"

	_ "modernc.org/sqlite"
)

// SQLiteSchemaVersion is stored in the meta table.
const SQLiteSchemaVersion = 1

var sqliteSchema = []string{
	`CREATE TABLE projects (
		key TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL,
		objectives TEXT NOT NULL DEFAULT '[]',
		impact TEXT NOT NULL DEFAULT '[]',
		has_diagram INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE project_tags (
		project_key TEXT NOT NULL REFERENCES projects(key),
		tag TEXT NOT NULL,
		PRIMARY KEY (project_key, tag)
	)`,
	`CREATE TABLE project_tools (
		project_key TEXT NOT NULL REFERENCES projects(key),
		tool TEXT NOT NULL,
		category TEXT NOT NULL,
		PRIMARY KEY (project_key, tool)
	)`,
	`CREATE TABLE visuals (
		project_key TEXT NOT NULL REFERENCES projects(key),
		idx INTEGER NOT NULL,
		title TEXT NOT NULL,
		kind TEXT NOT NULL,
		variant TEXT NOT NULL,
		data_path TEXT NOT NULL,
		PRIMARY KEY (project_key, idx)
	)`,
	`CREATE TABLE downloads (
		project_key TEXT NOT NULL REFERENCES projects(key),
		idx INTEGER NOT NULL,
		label TEXT NOT NULL,
		path TEXT NOT NULL,
		PRIMARY KEY (project_key, idx)
	)`,
	`CREATE INDEX idx_project_tags_tag ON project_tags(tag)`,
	`CREATE TABLE meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

// WriteSQLite writes the catalog to a fresh SQLite database at path, replacing any existing file.
func WriteSQLite(ctx context.Context, path string, c *catalog.Catalog) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing database: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range sqliteSchema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	projects := c.Projects()
	for i := range projects {
		if err := insertProject(ctx, tx, i, &projects[i]); err != nil {
			return fmt.Errorf("insert project %s: %w", projects[i].Key, err)
		}
	}

	meta := map[string]string{
		"schema_version": fmt.Sprint(SQLiteSchemaVersion),
		"exported_at":    time.Now().UTC().Format(time.RFC3339),
		"loaded_at":      c.LoadedAt().UTC().Format(time.RFC3339),
		"project_count":  fmt.Sprint(c.Len()),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("insert meta: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertProject(ctx context.Context, tx *sql.Tx, position int, p *types.Project) error {
	objectives, err := jsonList(p.Objectives)
	if err != nil {
		return err
	}
	impact, err := jsonList(p.Impact)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO projects (key, title, summary, position, objectives, impact, has_diagram)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Key, p.Title, p.Summary, position, objectives, impact, p.Diagram.Renderable(),
	); err != nil {
		return err
	}

	for _, tag := range p.Tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO project_tags (project_key, tag) VALUES (?, ?)`, p.Key, tag); err != nil {
			return err
		}
	}
	for _, g := range p.ToolGroups {
		for _, tool := range g.Tools {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO project_tools (project_key, tool, category) VALUES (?, ?, ?)`,
				p.Key, tool, string(g.Category)); err != nil {
				return err
			}
		}
	}
	for i, v := range p.Visuals {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO visuals (project_key, idx, title, kind, variant, data_path) VALUES (?, ?, ?, ?, ?, ?)`,
			p.Key, i, v.DisplayTitle(i), string(v.Kind), string(v.Variant), v.DataPath); err != nil {
			return err
		}
	}
	for i, d := range p.Downloads {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO downloads (project_key, idx, label, path) VALUES (?, ?, ?, ?)`,
			p.Key, i, d.Label, d.Path); err != nil {
			return err
		}
	}
	return nil
}

func jsonList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
