package backup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/docker/go-units"

	"github.com/hostdeck/hostdeck/internal/config"
	"github.com/hostdeck/hostdeck/internal/crypto"
	"github.com/hostdeck/hostdeck/internal/database"
)

const dumpTimeout = 30 * time.Minute

// Runner produces database dumps with pg_dump and records the outcome.
// The dump command is injectable for tests.
type Runner struct {
	Dir string

	// DumpCommand builds the dump invocation. Nil means pg_dump.
	DumpCommand func(ctx context.Context, db *database.ManagedDatabase, password, outPath string) *exec.Cmd
}

func NewRunner() *Runner {
	return &Runner{Dir: config.Cfg.BackupDir}
}

func pgDumpCommand(ctx context.Context, db *database.ManagedDatabase, password, outPath string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "pg_dump",
		"--host", db.Host,
		"--port", strconv.Itoa(db.Port),
		"--username", db.Username,
		"--format", "custom",
		"--file", outPath,
		db.Name,
	)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+password)
	return cmd
}

// Backup dumps one managed database to the backup directory and records a
// BackupRecord either way. The record path is empty on failure.
func (r *Runner) Backup(ctx context.Context, db *database.ManagedDatabase) (*database.BackupRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, dumpTimeout)
	defer cancel()

	if err := os.MkdirAll(r.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	password, err := crypto.Decrypt(db.PasswordEncrypted)
	if err != nil {
		return r.record(db, "", 0, fmt.Errorf("decrypt password: %w", err))
	}

	stamp := time.Now().UTC().Format("20060102-150405")
	outPath := filepath.Join(r.Dir, fmt.Sprintf("%s-%s.dump", db.Name, stamp))

	build := r.DumpCommand
	if build == nil {
		build = pgDumpCommand
	}
	cmd := build(ctx, db, password, outPath)

	if out, err := cmd.CombinedOutput(); err != nil {
		os.Remove(outPath)
		return r.record(db, "", 0, fmt.Errorf("pg_dump: %v: %s", err, out))
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return r.record(db, "", 0, fmt.Errorf("stat dump: %w", err))
	}

	log.Printf("Backup of %s complete: %s (%s)", db.Name, outPath, units.HumanSize(float64(info.Size())))
	return r.record(db, outPath, info.Size(), nil)
}

func (r *Runner) record(db *database.ManagedDatabase, path string, size int64, backupErr error) (*database.BackupRecord, error) {
	rec := &database.BackupRecord{
		DatabaseID: db.ID,
		Path:       path,
		SizeBytes:  size,
		Status:     "ok",
	}
	if backupErr != nil {
		rec.Status = "failed"
		rec.Error = backupErr.Error()
		log.Printf("Backup of %s failed: %v", db.Name, backupErr)
	}
	if err := database.CreateBackupRecord(rec); err != nil {
		log.Printf("Record backup for %s: %v", db.Name, err)
	}
	return rec, backupErr
}

// Prune removes dump files older than the configured retention window.
func (r *Runner) Prune() error {
	days := 14
	if v, err := database.GetSetting("backup_retention_days"); err == nil {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}
	cutoff := time.Now().Add(-time.Duration(days) * 24 * time.Hour)

	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read backup dir: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".dump" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(r.Dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	if removed > 0 {
		log.Printf("Pruned %d backup(s) older than %d days", removed, days)
	}
	return nil
}

// RunAll backs up every database flagged for automatic backup, then prunes
// old dumps.
func (r *Runner) RunAll(ctx context.Context) {
	dbs, err := database.ListAutoBackupDatabases()
	if err != nil {
		log.Printf("List databases for backup: %v", err)
		return
	}
	for i := range dbs {
		if _, err := r.Backup(ctx, &dbs[i]); err != nil {
			continue
		}
	}
	if err := r.Prune(); err != nil {
		log.Printf("Prune backups: %v", err)
	}
}
