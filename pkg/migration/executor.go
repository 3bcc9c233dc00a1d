package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marshallshelly/pebble-social/pkg/runtime"
)

// DefaultLockID is the advisory lock key held while migrations run.
const DefaultLockID int64 = 1234567890

// Executor executes and tracks database migrations.
type Executor struct {
	pool   *pgxpool.Pool
	lockID int64
	logger *slog.Logger
}

// NewExecutor creates a new migration executor.
func NewExecutor(db *runtime.DB) *Executor {
	return &Executor{
		pool:   db.Pool(),
		lockID: DefaultLockID,
		logger: slog.Default(),
	}
}

// WithLockID sets a custom advisory lock ID.
func (e *Executor) WithLockID(lockID int64) *Executor {
	e.lockID = lockID
	return e
}

// WithLogger sets the logger progress is reported to.
func (e *Executor) WithLogger(logger *slog.Logger) *Executor {
	e.logger = logger
	return e
}

// Initialize creates the schema_migrations table if it doesn't exist.
func (e *Executor) Initialize(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(14) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			applied_at TIMESTAMPTZ,
			error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`

	if _, err := e.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

// withLock runs fn while holding the advisory lock on one pooled
// connection, so concurrent executors wait for each other.
func (e *Executor) withLock(ctx context.Context, fn func() error) error {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", e.lockID); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() {
		if _, err := conn.Exec(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", e.lockID); err != nil {
			e.logger.Warn("failed to release migration lock", "error", err)
		}
	}()

	return fn()
}

// GetAppliedMigrations returns all migrations that have been applied.
func (e *Executor) GetAppliedMigrations(ctx context.Context) ([]MigrationRecord, error) {
	return e.records(ctx, "WHERE status = 'applied'")
}

// GetAllMigrations returns all migration records.
func (e *Executor) GetAllMigrations(ctx context.Context) ([]MigrationRecord, error) {
	return e.records(ctx, "")
}

func (e *Executor) records(ctx context.Context, filter string) ([]MigrationRecord, error) {
	query := "SELECT version, name, status, applied_at, error FROM schema_migrations " + filter + " ORDER BY version ASC"

	rows, err := e.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	var records []MigrationRecord
	for rows.Next() {
		var record MigrationRecord
		if err := rows.Scan(&record.Version, &record.Name, &record.Status, &record.AppliedAt, &record.Error); err != nil {
			return nil, fmt.Errorf("failed to scan migration record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// IsMigrationApplied checks if a specific migration has been applied.
func (e *Executor) IsMigrationApplied(ctx context.Context, version string) (bool, error) {
	var applied bool
	err := e.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1 AND status = 'applied')",
		version,
	).Scan(&applied)
	if err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}
	return applied, nil
}

// Apply runs a migration's up SQL in one transaction. On failure the
// transaction is rolled back and the attempt is recorded as failed.
func (e *Executor) Apply(ctx context.Context, migration Migration, dryRun bool) error {
	applied, err := e.IsMigrationApplied(ctx, migration.Version)
	if err != nil {
		return err
	}
	if applied {
		return fmt.Errorf("migration %s is already applied", migration.Version)
	}

	log := e.logger.With("version", migration.Version, "name", migration.Name)
	if dryRun {
		for _, stmt := range splitSQL(migration.UpSQL) {
			log.Info("dry run", "statement", stmt)
		}
		return nil
	}

	start := time.Now()
	err = pgx.BeginFunc(ctx, e.pool, func(tx pgx.Tx) error {
		for i, stmt := range splitSQL(migration.UpSQL) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return &runtime.MigrationError{
					Version: migration.Version,
					Message: fmt.Sprintf("statement %d failed", i+1),
					Err:     err,
				}
			}
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO schema_migrations (version, name, status, applied_at, error)
			 VALUES ($1, $2, 'applied', NOW(), NULL)
			 ON CONFLICT (version) DO UPDATE SET status = 'applied', applied_at = NOW(), error = NULL`,
			migration.Version, migration.Name,
		)
		return err
	})
	if err != nil {
		e.recordFailure(ctx, migration, err)
		log.Error("migration failed", "error", err)
		return err
	}

	log.Info("migration applied", "duration", time.Since(start))
	return nil
}

func (e *Executor) recordFailure(ctx context.Context, migration Migration, cause error) {
	_, err := e.pool.Exec(context.WithoutCancel(ctx),
		`INSERT INTO schema_migrations (version, name, status, error)
		 VALUES ($1, $2, 'failed', $3)
		 ON CONFLICT (version) DO UPDATE SET status = 'failed', error = $3`,
		migration.Version, migration.Name, cause.Error(),
	)
	if err != nil {
		e.logger.Warn("failed to record migration failure", "version", migration.Version, "error", err)
	}
}

// Rollback runs a migration's down SQL and removes its record.
func (e *Executor) Rollback(ctx context.Context, migration Migration, dryRun bool) error {
	applied, err := e.IsMigrationApplied(ctx, migration.Version)
	if err != nil {
		return err
	}
	if !applied {
		return fmt.Errorf("migration %s is not applied", migration.Version)
	}

	log := e.logger.With("version", migration.Version, "name", migration.Name)
	if dryRun {
		for _, stmt := range splitSQL(migration.DownSQL) {
			log.Info("dry run", "statement", stmt)
		}
		return nil
	}

	err = pgx.BeginFunc(ctx, e.pool, func(tx pgx.Tx) error {
		for i, stmt := range splitSQL(migration.DownSQL) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return &runtime.MigrationError{
					Version: migration.Version,
					Message: fmt.Sprintf("rollback statement %d failed", i+1),
					Err:     err,
				}
			}
		}
		_, err := tx.Exec(ctx, "DELETE FROM schema_migrations WHERE version = $1", migration.Version)
		return err
	})
	if err != nil {
		return err
	}

	log.Info("migration rolled back")
	return nil
}

// ApplyAll applies pending migrations in order and returns how many ran.
// steps limits the count when positive.
func (e *Executor) ApplyAll(ctx context.Context, migrations []Migration, steps int, dryRun bool) (int, error) {
	count := 0
	err := e.withLock(ctx, func() error {
		applied, err := e.GetAppliedMigrations(ctx)
		if err != nil {
			return err
		}

		for _, m := range Pending(migrations, applied) {
			if steps > 0 && count >= steps {
				break
			}
			if err := e.Apply(ctx, m, dryRun); err != nil {
				return fmt.Errorf("failed to apply migration %s: %w", m.Version, err)
			}
			count++
		}
		return nil
	})
	return count, err
}

// RollbackSteps rolls back the last steps applied migrations.
func (e *Executor) RollbackSteps(ctx context.Context, migrations []Migration, steps int, dryRun bool) (int, error) {
	count := 0
	err := e.withLock(ctx, func() error {
		applied, err := e.GetAppliedMigrations(ctx)
		if err != nil {
			return err
		}
		for i := len(applied) - 1; i >= 0 && count < steps; i-- {
			if err := e.rollbackRecord(ctx, applied[i], migrations, dryRun); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

// RollbackTo rolls back every applied migration newer than targetVersion.
func (e *Executor) RollbackTo(ctx context.Context, targetVersion string, migrations []Migration, dryRun bool) (int, error) {
	count := 0
	err := e.withLock(ctx, func() error {
		applied, err := e.GetAppliedMigrations(ctx)
		if err != nil {
			return err
		}
		for i := len(applied) - 1; i >= 0; i-- {
			if applied[i].Version <= targetVersion {
				break
			}
			if err := e.rollbackRecord(ctx, applied[i], migrations, dryRun); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

func (e *Executor) rollbackRecord(ctx context.Context, record MigrationRecord, migrations []Migration, dryRun bool) error {
	for _, m := range migrations {
		if m.Version == record.Version {
			if err := e.Rollback(ctx, m, dryRun); err != nil {
				return fmt.Errorf("failed to rollback migration %s: %w", record.Version, err)
			}
			return nil
		}
	}
	return fmt.Errorf("migration file not found for version %s", record.Version)
}

// GetStatus merges the tracking table with the migrations on disk.
func (e *Executor) GetStatus(ctx context.Context, migrations []Migration) ([]MigrationRecord, error) {
	all, err := e.GetAllMigrations(ctx)
	if err != nil {
		return nil, err
	}
	return mergeStatus(migrations, all), nil
}

func mergeStatus(migrations []Migration, tracked []MigrationRecord) []MigrationRecord {
	byVersion := make(map[string]MigrationRecord, len(tracked))
	for _, r := range tracked {
		byVersion[r.Version] = r
	}

	records := make([]MigrationRecord, 0, len(migrations))
	for _, m := range migrations {
		if r, ok := byVersion[m.Version]; ok {
			records = append(records, r)
			continue
		}
		records = append(records, MigrationRecord{
			Version: m.Version,
			Name:    m.Name,
			Status:  StatusPending,
		})
	}
	return records
}

// Validate checks that every tracked migration still has files on disk.
func (e *Executor) Validate(ctx context.Context, migrations []Migration) error {
	tracked, err := e.GetAllMigrations(ctx)
	if err != nil {
		return err
	}
	return validateTracked(migrations, tracked)
}

func validateTracked(migrations []Migration, tracked []MigrationRecord) error {
	known := make(map[string]bool, len(migrations))
	for _, m := range migrations {
		known[m.Version] = true
	}

	var missing []string
	for _, r := range tracked {
		if !known[r.Version] {
			missing = append(missing, r.Version)
		}
	}
	if len(missing) > 0 {
		return errors.New("missing migration files: " + strings.Join(missing, ", "))
	}
	return nil
}

// splitSQL splits a script on semicolons, dropping comment lines and empty
// statements. Statements must not contain literal semicolons.
func splitSQL(sql string) []string {
	var cleaned []string
	for _, line := range strings.Split(sql, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		cleaned = append(cleaned, line)
	}

	var result []string
	for _, stmt := range strings.Split(strings.Join(cleaned, "\n"), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			result = append(result, stmt)
		}
	}
	return result
}
