package backup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/yourusername/lyrics-catalog/internal/logging"
	"github.com/yourusername/lyrics-catalog/internal/metrics"
)

const (
	TriggerDaily     = "daily"
	TriggerMutations = "edit-threshold"
	TriggerManual    = "manual"
)

// DumpFunc writes a database dump for dsn to path.
type DumpFunc func(ctx context.Context, dsn, path string) error

// PGDump shells out to pg_dump.
func PGDump(ctx context.Context, dsn, path string) error {
	cmd := exec.CommandContext(ctx, "pg_dump", dsn, "-f", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("pg_dump failed: %w, output: %s", err, string(output))
	}
	return nil
}

// Info is the metadata written next to every dump.
type Info struct {
	Type      string `json:"backup_type"`
	Timestamp string `json:"timestamp"`
	SizeBytes int64  `json:"size_bytes"`
	Filename  string `json:"filename"`
}

type Manager struct {
	dbDSN          string
	backupDir      string
	editsThreshold int
	daysToKeep     int
	dump           DumpFunc
	now            func() time.Time
	logger         zerolog.Logger

	mu        sync.Mutex // guards mutations and ctx
	mutations int
	ctx       context.Context

	runMu sync.Mutex // serializes dumps
	wg    sync.WaitGroup
}

func NewManager(dbDSN, backupDir string, editsThreshold int) *Manager {
	return &Manager{
		dbDSN:          dbDSN,
		backupDir:      backupDir,
		editsThreshold: editsThreshold,
		daysToKeep:     7,
		dump:           PGDump,
		now:            time.Now,
		logger:         logging.For("backup"),
		ctx:            context.Background(),
	}
}

// WithDumpFunc replaces pg_dump, mainly for tests.
func (m *Manager) WithDumpFunc(fn DumpFunc) *Manager {
	m.dump = fn
	return m
}

// Start runs the daily 2 AM backup until ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	m.ctx = ctx
	m.mu.Unlock()

	m.wg.Add(1)
	go m.scheduleDailyBackup(ctx)
	m.logger.Info().Str("dir", m.backupDir).Int("edit_threshold", m.editsThreshold).Msg("Backup manager started")
}

// Wait blocks until the scheduler and any in-flight backups finish.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) scheduleDailyBackup(ctx context.Context) {
	defer m.wg.Done()
	for {
		now := m.now()
		next := time.Date(now.Year(), now.Month(), now.Day()+1, 2, 0, 0, 0, now.Location())
		wait := next.Sub(now)

		m.logger.Debug().Dur("in", wait).Msg("Next scheduled backup")
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if _, err := m.CreateBackup(ctx, TriggerDaily); err != nil {
			m.logger.Error().Err(err).Msg("Error creating daily backup")
		}
	}
}

// RecordMutation counts one catalog write. Every editsThreshold writes a
// backup is started in the background.
func (m *Manager) RecordMutation() {
	m.mu.Lock()
	m.mutations++
	if m.mutations < m.editsThreshold {
		m.mu.Unlock()
		return
	}
	m.mutations = 0
	ctx := m.ctx
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if _, err := m.CreateBackup(ctx, TriggerMutations); err != nil {
			m.logger.Error().Err(err).Msg("Error creating edit-threshold backup")
		}
	}()
}

// PendingMutations returns the writes counted since the last threshold backup.
func (m *Manager) PendingMutations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutations
}

// CreateBackup dumps the database and writes its metadata file.
func (m *Manager) CreateBackup(ctx context.Context, backupType string) (info Info, err error) {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	defer func() {
		metrics.Backups.WithLabelValues(backupType, metrics.Result(err)).Inc()
	}()

	if err := os.MkdirAll(m.backupDir, 0o755); err != nil {
		return Info{}, fmt.Errorf("error creating backup directory: %w", err)
	}

	timestamp := m.now().Format("2006-01-02_15-04-05")
	filename := fmt.Sprintf("backup_%s_%s.sql", backupType, timestamp)
	filePath := filepath.Join(m.backupDir, filename)

	if err := m.dump(ctx, m.dbDSN, filePath); err != nil {
		return Info{}, err
	}

	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return Info{}, fmt.Errorf("error getting backup file info: %w", err)
	}

	info = Info{
		Type:      backupType,
		Timestamp: timestamp,
		SizeBytes: fileInfo.Size(),
		Filename:  filename,
	}

	metadataJSON, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return Info{}, fmt.Errorf("error creating metadata: %w", err)
	}

	metadataPath := filepath.Join(m.backupDir, fmt.Sprintf("backup_%s_%s.json", backupType, timestamp))
	if err := os.WriteFile(metadataPath, metadataJSON, 0o644); err != nil {
		return Info{}, fmt.Errorf("error writing metadata: %w", err)
	}

	m.logger.Info().
		Str("file", filename).
		Float64("size_mb", float64(fileInfo.Size())/(1024*1024)).
		Msg("Backup created")

	m.cleanOldBackups(m.daysToKeep)
	return info, nil
}

// cleanOldBackups removes backups older than the specified number of days
func (m *Manager) cleanOldBackups(daysToKeep int) {
	files, err := os.ReadDir(m.backupDir)
	if err != nil {
		m.logger.Error().Err(err).Msg("Error reading backup directory")
		return
	}

	cutoff := m.now().AddDate(0, 0, -daysToKeep)
	deleted := 0

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		info, err := file.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(m.backupDir, file.Name())); err != nil {
				m.logger.Warn().Err(err).Str("file", file.Name()).Msg("Error deleting old backup")
			} else {
				deleted++
			}
		}
	}

	if deleted > 0 {
		m.logger.Info().Int("deleted", deleted).Msg("Cleaned up old backup files")
	}
}

// ListBackups returns every backup's metadata, newest first.
func (m *Manager) ListBackups() ([]Info, error) {
	backups := []Info{}

	files, err := os.ReadDir(m.backupDir)
	if os.IsNotExist(err) {
		return backups, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading backup directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(m.backupDir, file.Name()))
		if err != nil {
			continue
		}

		var info Info
		if err := json.Unmarshal(data, &info); err != nil {
			continue
		}
		backups = append(backups, info)
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp > backups[j].Timestamp
	})
	return backups, nil
}
