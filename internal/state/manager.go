package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"vrepo/internal/logging"

	"github.com/goccy/go-yaml"
)

var (
	logger = logging.GetLogger().WithPrefix("state")
)

// Format identifies the encoding of an index file.
type Format int

const (
	// FormatJSON encodes the index as an indented JSON object
	FormatJSON Format = iota
	// FormatYAML encodes the index as a YAML mapping
	FormatYAML
)

// FormatForPath picks the encoding from the file extension; anything that is
// not .yaml or .yml is JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Encode serializes idx in the given format.
func Encode(idx Index, format Format) ([]byte, error) {
	if idx == nil {
		idx = Index{}
	}
	if format == FormatYAML {
		return yaml.Marshal(idx)
	}
	return json.MarshalIndent(idx, "", "  ")
}

// Decode parses data in the given format.
func Decode(data []byte, format Format) (Index, error) {
	idx := Index{}
	var err error
	if format == FormatYAML {
		err = yaml.Unmarshal(data, &idx)
	} else {
		err = json.Unmarshal(data, &idx)
	}
	if err != nil {
		return nil, err
	}
	if idx == nil {
		idx = Index{}
	}
	return idx, nil
}

// Manager handles loading and saving an index file
type Manager struct {
	statePath   string
	backupDir   string
	backupCount int
	format      Format
	mu          sync.RWMutex
}

// NewManager creates a new manager for the given index file path.
// It ensures the index directory exists and is writable.
func NewManager(statePath string) (*Manager, error) {
	logger.Debug("Creating new state manager with path: %s", statePath)

	absPath, err := filepath.Abs(statePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve index path %s: %w", statePath, err)
	}
	logger.Debug("Resolved index path: %s", absPath)

	stateDir := filepath.Dir(absPath)
	logger.Debug("Ensuring index directory exists: %s", stateDir)
	if mkdirErr := os.MkdirAll(stateDir, 0755); mkdirErr != nil {
		return nil, fmt.Errorf("failed to create index directory %s: %w", stateDir, mkdirErr)
	}

	// Verify we have write permissions without truncating existing content
	f, writeErr := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE, 0644)
	if writeErr != nil {
		return nil, fmt.Errorf("failed to create index file %s: %w", absPath, writeErr)
	}
	f.Close()

	backupDir := filepath.Join(stateDir, ".vrepo-backups")

	logger.Debug("State manager initialization complete")
	return &Manager{
		statePath:   absPath,
		backupDir:   backupDir,
		backupCount: 5,
		format:      FormatForPath(absPath),
	}, nil
}

// Path returns the absolute path of the managed index file.
func (sm *Manager) Path() string {
	return sm.statePath
}

// SetBackupCount sets how many backups are kept; zero disables backups.
func (sm *Manager) SetBackupCount(n int) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if n < 0 {
		n = 0
	}
	sm.backupCount = n
}

// LoadIndex loads the index from disk. A missing or empty file yields an
// empty index.
func (sm *Manager) LoadIndex() (Index, error) {
	logger.Debug("Loading index from: %s", sm.statePath)
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	data, err := os.ReadFile(sm.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("No index file at %s, starting empty", sm.statePath)
			return Index{}, nil
		}
		return nil, fmt.Errorf("failed to read index file: %w", err)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		logger.Info("Index file %s is empty, starting empty", sm.statePath)
		return Index{}, nil
	}

	logger.Debug("Parsing existing index file (%d bytes)", len(data))
	idx, err := Decode(data, sm.format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse index file: %w", err)
	}

	logger.Debug("Index loaded successfully (%d entries)", len(idx))
	return idx, nil
}

// SaveIndex saves the index to disk.
// It creates a backup of the previous content before saving.
func (sm *Manager) SaveIndex(idx Index) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	logger.Debug("Saving index to: %s", sm.statePath)

	if sm.backupCount > 0 {
		if backupErr := sm.createBackup(); backupErr != nil {
			logger.Warn("Failed to create backup: %v", backupErr)
		}
	}

	data, marshalErr := Encode(idx, sm.format)
	if marshalErr != nil {
		return fmt.Errorf("failed to marshal index: %w", marshalErr)
	}

	if len(data) == 0 {
		return fmt.Errorf("refusing to write empty index data")
	}

	logger.Trace("Writing %d bytes of index data", len(data))
	tmp := sm.statePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}
	if err := os.Rename(tmp, sm.statePath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace index file: %w", err)
	}

	logger.Debug("Index saved successfully")
	return nil
}

// createBackup creates a timestamped backup of the current index file
func (sm *Manager) createBackup() error {
	data, err := os.ReadFile(sm.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}

	if err := os.MkdirAll(sm.backupDir, 0755); err != nil {
		return fmt.Errorf("failed to create backup directory %s: %w", sm.backupDir, err)
	}

	base := strings.TrimSuffix(filepath.Base(sm.statePath), filepath.Ext(sm.statePath))
	timestamp := time.Now().Format("20060102-150405")
	backupPath := filepath.Join(sm.backupDir,
		fmt.Sprintf("%s-%s%s", base, timestamp, filepath.Ext(sm.statePath)))

	logger.Debug("Creating backup: %s", backupPath)
	if err := os.WriteFile(backupPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}

	return sm.cleanupOldBackups(base + "-")
}

// cleanupOldBackups removes old backup files, keeping only the most recent ones
func (sm *Manager) cleanupOldBackups(prefix string) error {
	entries, err := os.ReadDir(sm.backupDir)
	if err != nil {
		return err
	}

	type backup struct {
		path    string
		modTime time.Time
	}

	backups := make([]backup, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, backup{
			path:    filepath.Join(sm.backupDir, entry.Name()),
			modTime: info.ModTime(),
		})
	}

	// Newest first
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].modTime.After(backups[j].modTime)
	})

	for i := sm.backupCount; i < len(backups); i++ {
		logger.Debug("Removing old backup: %s", backups[i].path)
		if err := os.Remove(backups[i].path); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", backups[i].path, err)
		}
	}

	return nil
}
