package database

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"campusfeed/internal/middleware"

	"gorm.io/gorm"
)

// MigrationLog represents a record of an applied migration in the database.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the database table name for MigrationLog.
func (MigrationLog) TableName() string {
	return "migration_logs"
}

const ensureMigrationLogTableSQL = `CREATE TABLE IF NOT EXISTS migration_logs (
	version BIGINT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// MigrationStatus describes one known migration and whether it is applied.
type MigrationStatus struct {
	Migration Migration
	Applied   bool
}

// Runner applies and rolls back a fixed list of migrations.
type Runner struct {
	db         *gorm.DB
	migrations []Migration
}

// NewRunner returns a runner over the given migrations.
func NewRunner(db *gorm.DB, migrations []Migration) *Runner {
	return &Runner{db: db, migrations: migrations}
}

// RunMigrations applies all pending embedded migrations.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	return NewRunner(db, GetMigrations()).Up(ctx)
}

func (r *Runner) ensureLogTable(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Exec(ensureMigrationLogTableSQL).Error; err != nil {
		return fmt.Errorf("failed to ensure migration logs table: %w", err)
	}
	return nil
}

func (r *Runner) applied(ctx context.Context) ([]int, error) {
	var versions []int
	if err := r.db.WithContext(ctx).Model(&MigrationLog{}).Order("version ASC").Pluck("version", &versions).Error; err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	return versions, nil
}

// Up applies every migration that has no log entry, each in its own transaction.
func (r *Runner) Up(ctx context.Context) error {
	if err := r.ensureLogTable(ctx); err != nil {
		return err
	}

	applied, err := r.applied(ctx)
	if err != nil {
		return err
	}
	if err := validateAppliedVersions(applied, r.migrations); err != nil {
		return err
	}

	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	for _, m := range r.migrations {
		if done[m.Version] {
			continue
		}

		middleware.Logger.InfoContext(ctx, "applying migration", slog.Int("version", m.Version), slog.String("name", m.Name))
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(m.UpScript).Error; err != nil {
				return fmt.Errorf("failed to apply migration %d (%s): %w", m.Version, m.Name, err)
			}
			if err := tx.Create(&MigrationLog{Version: m.Version, Name: m.Name}).Error; err != nil {
				return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// Down rolls back the most recently applied migration. It returns false when nothing
// was applied.
func (r *Runner) Down(ctx context.Context) (bool, error) {
	if err := r.ensureLogTable(ctx); err != nil {
		return false, err
	}
	applied, err := r.applied(ctx)
	if err != nil {
		return false, err
	}
	if len(applied) == 0 {
		return false, nil
	}

	version := applied[len(applied)-1]
	var target *Migration
	for i := range r.migrations {
		if r.migrations[i].Version == version {
			target = &r.migrations[i]
		}
	}
	if target == nil {
		return false, fmt.Errorf("migration version %d not found", version)
	}

	middleware.Logger.InfoContext(ctx, "rolling back migration", slog.Int("version", version), slog.String("name", target.Name))
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(target.DownScript).Error; err != nil {
			return fmt.Errorf("failed to run rollback SQL for migration %d (%s): %w", version, target.Name, err)
		}
		return tx.Where("version = ?", version).Delete(&MigrationLog{}).Error
	})
	return err == nil, err
}

// Status lists every known migration with its applied flag.
func (r *Runner) Status(ctx context.Context) ([]MigrationStatus, error) {
	if err := r.ensureLogTable(ctx); err != nil {
		return nil, err
	}
	applied, err := r.applied(ctx)
	if err != nil {
		return nil, err
	}
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	out := make([]MigrationStatus, 0, len(r.migrations))
	for _, m := range r.migrations {
		out = append(out, MigrationStatus{Migration: m, Applied: done[m.Version]})
	}
	return out, nil
}

func validateAppliedVersions(applied []int, registered []Migration) error {
	known := make(map[int]struct{}, len(registered))
	for _, m := range registered {
		known[m.Version] = struct{}{}
	}

	var unknown []int
	for _, version := range applied {
		if _, ok := known[version]; !ok {
			unknown = append(unknown, version)
		}
	}
	if len(unknown) == 0 {
		return nil
	}

	sort.Ints(unknown)
	parts := make([]string, 0, len(unknown))
	for _, version := range unknown {
		parts = append(parts, fmt.Sprintf("%06d", version))
	}
	return fmt.Errorf("migration_logs contains unknown versions not present in code: %s", strings.Join(parts, ", "))
}
