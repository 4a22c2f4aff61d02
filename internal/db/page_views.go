package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// maxFieldLen bounds free-form request headers stored with a view.
const maxFieldLen = 512

// PageView is one rendering of a project detail page.
type PageView struct {
	ID         int64     `json:"id"`
	ProjectKey string    `json:"project_key"`
	RequestID  uuid.UUID `json:"request_id,omitempty"`
	Referrer   string    `json:"referrer,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	ViewedAt   time.Time `json:"viewed_at"`
}

func clampField(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxFieldLen {
		return s[:maxFieldLen]
	}
	return s
}

// RecordView stores a page view. A nil RequestID is stored as NULL.
func (db *DB) RecordView(ctx context.Context, view PageView) error {
	if view.ProjectKey == "" {
		return fmt.Errorf("failed to record view: project key is empty")
	}

	var requestID *uuid.UUID
	if view.RequestID != uuid.Nil {
		requestID = &view.RequestID
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO page_views (project_key, request_id, referrer, user_agent)
		 VALUES ($1, $2, $3, $4)`,
		view.ProjectKey, requestID, clampField(view.Referrer), clampField(view.UserAgent),
	)
	if err != nil {
		return fmt.Errorf("failed to record view for %s: %w", view.ProjectKey, err)
	}
	return nil
}

// ViewCounts returns the number of recorded views per project key.
func (db *DB) ViewCounts(ctx context.Context) (map[string]int64, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT project_key, COUNT(*) FROM page_views GROUP BY project_key`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count views: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("failed to scan view count: %w", err)
		}
		counts[key] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to count views: %w", err)
	}
	return counts, nil
}

// RecentViews returns the latest views of a project, newest first.
func (db *DB) RecentViews(ctx context.Context, projectKey string, limit int) ([]PageView, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, project_key, request_id, referrer, user_agent, viewed_at
		 FROM page_views WHERE project_key = $1
		 ORDER BY viewed_at DESC, id DESC
		 LIMIT $2`,
		projectKey, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list views for %s: %w", projectKey, err)
	}

	views, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (PageView, error) {
		var v PageView
		var requestID *uuid.UUID
		if err := row.Scan(&v.ID, &v.ProjectKey, &requestID, &v.Referrer, &v.UserAgent, &v.ViewedAt); err != nil {
			return v, err
		}
		if requestID != nil {
			v.RequestID = *requestID
		}
		return v, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan views for %s: %w", projectKey, err)
	}
	return views, nil
}
