/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"plantilla/internal/domain"
	applog "plantilla/internal/log"
	"plantilla/internal/palette"
	"plantilla/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// LibraryDirName stores per-workspace index data under the workspace root.
	LibraryDirName  = ".plt"
	LibraryFileName = "library.sqlite"

	// librarySchemaVersion tracks the embedded SQLite schema. Bump it when
	// performing breaking schema changes and add a migration step.
	librarySchemaVersion = 1
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("storage: not found")

// ProjectRecord is one saved client project in the library.
type ProjectRecord struct {
	ID         string
	OwnerID    string
	Name       string
	TemplateID string
	Document   []byte
	Thumbnail  []byte
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Library is the embedded SQLite store for project records, saved palettes,
// and the per-owner active palette selection.
type Library struct {
	db  *sql.DB
	log *slog.Logger
}

// LibraryPath returns the full path to the workspace's library database file.
func LibraryPath(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, LibraryDirName, LibraryFileName)
}

// OpenLibrary ensures the library database exists under <root>/.plt, opens it
// in WAL mode and brings the schema up to date.
func OpenLibrary(workspaceRoot string) (*Library, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "library_open").With(
		slog.String("root", workspaceRoot),
	)
	if strings.TrimSpace(workspaceRoot) == "" {
		return nil, errors.New("workspace root is required")
	}
	if err := os.MkdirAll(filepath.Join(workspaceRoot, LibraryDirName), 0o755); err != nil {
		l.Error("create .plt dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create .plt dir: %w", err)
	}

	path := LibraryPath(workspaceRoot)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}

	if err := ensureLibrarySchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, err
	}

	l.Info("library ready", slog.String("path", path))
	return &Library{db: db, log: applog.WithComponent("storage")}, nil
}

// Close releases the underlying database handle.
func (lib *Library) Close() error { return lib.db.Close() }

func ensureLibrarySchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS projects (
			id          TEXT PRIMARY KEY,
			owner_id    TEXT NOT NULL DEFAULT '',
			name        TEXT NOT NULL,
			template_id TEXT NOT NULL DEFAULT '',
			document    BLOB NOT NULL,
			thumbnail   BLOB,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner_id);`,
		`CREATE TABLE IF NOT EXISTS palettes (
			id         TEXT PRIMARY KEY,
			owner_id   TEXT NOT NULL DEFAULT '',
			name       TEXT NOT NULL,
			colors     TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_palettes_owner ON palettes(owner_id);`,
		`CREATE TABLE IF NOT EXISTS active_palette (
			owner_id   TEXT PRIMARY KEY,
			palette_id TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, librarySchemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// SaveProject inserts or updates a project record.
func (lib *Library) SaveProject(ctx context.Context, p ProjectRecord) error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("project id is required")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	created := now
	if !p.CreatedAt.IsZero() {
		created = p.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err := lib.db.ExecContext(ctx, `
		INSERT INTO projects (id, owner_id, name, template_id, document, thumbnail, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id=excluded.owner_id, name=excluded.name, template_id=excluded.template_id,
			document=excluded.document, thumbnail=excluded.thumbnail, updated_at=excluded.updated_at`,
		p.ID, p.OwnerID, p.Name, p.TemplateID, p.Document, p.Thumbnail, created, now)
	if err != nil {
		return fmt.Errorf("save project %s: %w", p.ID, err)
	}
	return nil
}

// GetProject returns one project record by id.
func (lib *Library) GetProject(ctx context.Context, id string) (ProjectRecord, error) {
	var p ProjectRecord
	var created, updated string
	err := lib.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, template_id, document, thumbnail, created_at, updated_at
		FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.OwnerID, &p.Name, &p.TemplateID, &p.Document, &p.Thumbnail, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return ProjectRecord{}, ErrNotFound
	}
	if err != nil {
		return ProjectRecord{}, fmt.Errorf("get project %s: %w", id, err)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return p, nil
}

// ListProjects returns all project records for an owner, newest first.
// Document and thumbnail blobs are omitted from listings.
func (lib *Library) ListProjects(ctx context.Context, ownerID string) ([]ProjectRecord, error) {
	rows, err := lib.db.QueryContext(ctx, `
		SELECT id, owner_id, name, template_id, created_at, updated_at
		FROM projects WHERE owner_id = ? ORDER BY updated_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []ProjectRecord
	for rows.Next() {
		var p ProjectRecord
		var created, updated string
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.TemplateID, &created, &updated); err != nil {
			return nil, err
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteProject removes a project record.
func (lib *Library) DeleteProject(ctx context.Context, id string) error {
	res, err := lib.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SavePalette inserts or updates a saved palette.
func (lib *Library) SavePalette(ctx context.Context, sp domain.SavedPalette) error {
	if strings.TrimSpace(sp.ID) == "" {
		return errors.New("palette id is required")
	}
	colors, err := json.Marshal(sp.Palette)
	if err != nil {
		return fmt.Errorf("marshal palette: %w", err)
	}
	created := sp.CreatedAt
	if created == "" {
		created = time.Now().UTC().Format(time.RFC3339)
	}
	_, err = lib.db.ExecContext(ctx, `
		INSERT INTO palettes (id, owner_id, name, colors, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id=excluded.owner_id, name=excluded.name, colors=excluded.colors`,
		sp.ID, sp.OwnerID, sp.Name, string(colors), created)
	if err != nil {
		return fmt.Errorf("save palette %s: %w", sp.ID, err)
	}
	return nil
}

// ListPalettes returns an owner's saved palettes, oldest first.
func (lib *Library) ListPalettes(ctx context.Context, ownerID string) ([]domain.SavedPalette, error) {
	rows, err := lib.db.QueryContext(ctx, `
		SELECT id, owner_id, name, colors, created_at
		FROM palettes WHERE owner_id = ? ORDER BY created_at ASC, id ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list palettes: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.SavedPalette
	for rows.Next() {
		var sp domain.SavedPalette
		var colors string
		if err := rows.Scan(&sp.ID, &sp.OwnerID, &sp.Name, &colors, &sp.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(colors), &sp.Palette); err != nil {
			return nil, fmt.Errorf("parse palette %s: %w", sp.ID, err)
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

// DeletePalette removes a saved palette. A dangling active selection is
// cleared so ActivePalette falls back cleanly.
func (lib *Library) DeletePalette(ctx context.Context, id string) error {
	res, err := lib.db.ExecContext(ctx, `DELETE FROM palettes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete palette %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	_, _ = lib.db.ExecContext(ctx, `DELETE FROM active_palette WHERE palette_id = ?`, id)
	return nil
}

// SetActivePalette records the owner's active palette selection.
func (lib *Library) SetActivePalette(ctx context.Context, ownerID, paletteID string) error {
	_, err := lib.db.ExecContext(ctx, `
		INSERT INTO active_palette (owner_id, palette_id) VALUES (?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET palette_id=excluded.palette_id`,
		ownerID, paletteID)
	if err != nil {
		return fmt.Errorf("set active palette: %w", err)
	}
	return nil
}

// ActivePalette resolves the owner's working palette: the recorded selection
// if present, otherwise the first saved palette, otherwise the first built-in.
func (lib *Library) ActivePalette(ctx context.Context, ownerID string) (domain.ColorPalette, error) {
	var activeID string
	err := lib.db.QueryRowContext(ctx,
		`SELECT palette_id FROM active_palette WHERE owner_id = ?`, ownerID).Scan(&activeID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return domain.ColorPalette{}, fmt.Errorf("read active palette: %w", err)
	}
	saved, err := lib.ListPalettes(ctx, ownerID)
	if err != nil {
		return domain.ColorPalette{}, err
	}
	pal, _ := palette.Active(saved, activeID)
	return pal, nil
}
