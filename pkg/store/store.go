// Package store persists named tube scenes in SQLite. The schema is
// embedded and migrated on Open.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chazu/tubejoint/pkg/tube"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

var (
	ErrSceneNotFound = errors.New("scene not found")
	ErrInvalidName   = errors.New("invalid scene name")
)

// SceneInfo summarizes a stored scene.
type SceneInfo struct {
	Name      string
	SavedAt   time.Time
	TubeCount int
}

// Store is a scene database handle.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies pending
// migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// SQLite allows one writer; a single connection also keeps :memory:
	// databases coherent.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("store: migrations source: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("store: sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	// m is not closed: closing it would close db.
	m.Log = migrateLogger{}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("store: migration up failed: %w", err)
	}
	return nil
}

// migrateLogger implements migrate.Logger.
type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	log.Printf("[migrate] "+format, v...)
}

func (migrateLogger) Verbose() bool {
	return false
}

func checkName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("store: %q: %w", name, ErrInvalidName)
	}
	return nil
}

// Save stores tubes under name, replacing any scene already saved there.
func (s *Store) Save(ctx context.Context, name string, tubes []tube.Tube) error {
	if err := checkName(name); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: save %s: %w", name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM scene_tubes WHERE scene = ?`, name); err != nil {
		return fmt.Errorf("store: save %s: %w", name, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO scenes (name, saved_at) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET saved_at = excluded.saved_at`,
		name, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store: save %s: %w", name, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO scene_tubes (
			scene, seq, tube_id, kind, width, height, thickness, length,
			pos_x, pos_y, pos_z, rot_x, rot_y, rot_z
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: save %s: %w", name, err)
	}
	defer stmt.Close()

	for i, t := range tubes {
		c := t.Config
		_, err := stmt.ExecContext(ctx,
			name, i, string(t.ID), c.Kind.String(), c.Width, c.Height, c.Thickness, c.Length,
			t.Position.X, t.Position.Y, t.Position.Z, t.Rotation.X, t.Rotation.Y, t.Rotation.Z)
		if err != nil {
			return fmt.Errorf("store: save %s: tube %s: %w", name, t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: save %s: %w", name, err)
	}
	return nil
}

// Load returns the tubes of a saved scene in their saved order.
func (s *Store) Load(ctx context.Context, name string) ([]tube.Tube, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scenes WHERE name = ?`, name).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("store: load %s: %w", name, err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("store: load %s: %w", name, ErrSceneNotFound)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT tube_id, kind, width, height, thickness, length,
		       pos_x, pos_y, pos_z, rot_x, rot_y, rot_z
		FROM scene_tubes WHERE scene = ? ORDER BY seq`, name)
	if err != nil {
		return nil, fmt.Errorf("store: load %s: %w", name, err)
	}
	defer rows.Close()

	tubes := []tube.Tube{}
	for rows.Next() {
		var (
			id, kind string
			c        tube.Config
			pos, rot v3.Vec
		)
		err := rows.Scan(&id, &kind, &c.Width, &c.Height, &c.Thickness, &c.Length,
			&pos.X, &pos.Y, &pos.Z, &rot.X, &rot.Y, &rot.Z)
		if err != nil {
			return nil, fmt.Errorf("store: load %s: %w", name, err)
		}
		if c.Kind, err = tube.ParseKind(kind); err != nil {
			return nil, fmt.Errorf("store: load %s: %w", name, err)
		}
		tubes = append(tubes, tube.Tube{ID: tube.ID(id), Config: c.Normalized(), Position: pos, Rotation: rot})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: load %s: %w", name, err)
	}
	return tubes, nil
}

// List returns every saved scene ordered by name.
func (s *Store) List(ctx context.Context) ([]SceneInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.name, s.saved_at, COUNT(t.seq)
		FROM scenes s LEFT JOIN scene_tubes t ON t.scene = s.name
		GROUP BY s.name, s.saved_at
		ORDER BY s.name`)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var out []SceneInfo
	for rows.Next() {
		var (
			info    SceneInfo
			savedAt string
		)
		if err := rows.Scan(&info.Name, &savedAt, &info.TubeCount); err != nil {
			return nil, fmt.Errorf("store: list: %w", err)
		}
		if info.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt); err != nil {
			return nil, fmt.Errorf("store: list: %s: %w", info.Name, err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return out, nil
}

// Delete removes a saved scene.
func (s *Store) Delete(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM scene_tubes WHERE scene = ?`, name); err != nil {
		return fmt.Errorf("store: delete %s: %w", name, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM scenes WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("store: delete %s: %w", name, ErrSceneNotFound)
	}
	return tx.Commit()
}
