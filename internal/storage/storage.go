// Package storage persists draw histories, template registries and the published
// output documents.
//
// Every write goes to a temporary file that is renamed over the target, so a
// failed run never leaves a half-written registry or report behind. Registry
// saves are additionally guarded by a per-game file lock and a version check:
// a registry that changed on disk since it was loaded is never overwritten.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/rewired-gh/vietoracle/internal/logger"
	"github.com/rewired-gh/vietoracle/internal/models"
)

const (
	drawsFile    = "draws.json"
	registryFile = "templates.json"
	lockSuffix   = ".lock"
	tmpSuffix    = ".tmp"

	lockRetryDelay = 50 * time.Millisecond
)

// DrawSource supplies the raw draw history of a game.
type DrawSource interface {
	LoadDraws(ctx context.Context, game models.Game) ([]models.RawDraw, error)
}

// Store is the JSON file store rooted at a data and an output directory.
type Store struct {
	mu sync.RWMutex

	dataDir         string
	outputDir       string
	filePermissions os.FileMode
	dirPermissions  os.FileMode
	lockTimeout     time.Duration
}

// New creates a Store. If dataDir is empty an OS tmp directory is used; an
// empty outputDir defaults to dataDir/output.
func New(dataDir, outputDir string, filePermissions, dirPermissions os.FileMode, lockTimeout time.Duration) *Store {
	if dataDir == "" {
		dataDir = filepath.Join(os.TempDir(), "vietoracle")
	}
	if outputDir == "" {
		outputDir = filepath.Join(dataDir, "output")
	}
	if filePermissions == 0 {
		filePermissions = 0644
	}
	if dirPermissions == 0 {
		dirPermissions = 0755
	}
	return &Store{
		dataDir:         dataDir,
		outputDir:       outputDir,
		filePermissions: filePermissions,
		dirPermissions:  dirPermissions,
		lockTimeout:     lockTimeout,
	}
}

func (s *Store) gameDir(game models.Game) string {
	return filepath.Join(s.dataDir, string(game))
}

// DrawsPath is where the raw history of game lives.
func (s *Store) DrawsPath(game models.Game) string {
	return filepath.Join(s.gameDir(game), drawsFile)
}

// RegistryPath is where the template registry of game lives.
func (s *Store) RegistryPath(game models.Game) string {
	return filepath.Join(s.gameDir(game), registryFile)
}

// OutputPath is where document name of game is published. An empty game
// addresses the output root.
func (s *Store) OutputPath(game models.Game, name string) string {
	if game == "" {
		return filepath.Join(s.outputDir, name)
	}
	return filepath.Join(s.outputDir, string(game), name)
}

// LoadDraws reads the raw history of game. A missing file is an empty history.
func (s *Store) LoadDraws(_ context.Context, game models.Game) ([]models.RawDraw, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []models.RawDraw
	found, err := readJSON(s.DrawsPath(game), &records)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s draws: %w", game, err)
	}
	if !found {
		logger.Warn("No draw history for %s at %s", game, s.DrawsPath(game))
		return []models.RawDraw{}, nil
	}
	return records, nil
}

// SaveDraws replaces the raw history of game.
func (s *Store) SaveDraws(game models.Game, records []models.RawDraw) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if records == nil {
		records = []models.RawDraw{}
	}
	return s.writeJSON(s.DrawsPath(game), records)
}

// RegistryLock is a held cross-process lock on one game's registry.
type RegistryLock struct {
	lock *flock.Flock
}

// Unlock releases the lock.
func (l *RegistryLock) Unlock() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}

// LockRegistry takes the single-writer lock of game's registry, waiting up to
// the configured lock timeout. Failure to acquire it is ErrRegistryConflict.
func (s *Store) LockRegistry(ctx context.Context, game models.Game) (*RegistryLock, error) {
	if err := os.MkdirAll(s.gameDir(game), s.dirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	fl := flock.New(s.RegistryPath(game) + lockSuffix)

	if s.lockTimeout <= 0 {
		ok, err := fl.TryLock()
		if err != nil {
			return nil, fmt.Errorf("failed to lock %s registry: %w", game, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s registry is locked by another run: %w", game, models.ErrRegistryConflict)
		}
		return &RegistryLock{lock: fl}, nil
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	ok, err := fl.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("failed to lock %s registry: %w", game, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s registry still locked after %v: %w", game, s.lockTimeout, models.ErrRegistryConflict)
	}
	return &RegistryLock{lock: fl}, nil
}

// LoadRegistry reads the template registry of game. A missing file is an empty
// registry at version 0.
func (s *Store) LoadRegistry(game models.Game) (models.RegistrySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, err := s.readRegistry(game)
	if err != nil {
		return models.RegistrySnapshot{}, err
	}
	for i := range snap.Templates {
		if err := snap.Templates[i].Validate(); err != nil {
			return models.RegistrySnapshot{}, fmt.Errorf("invalid %s registry: %w", game, err)
		}
	}
	return snap, nil
}

func (s *Store) readRegistry(game models.Game) (models.RegistrySnapshot, error) {
	var snap models.RegistrySnapshot
	found, err := readJSON(s.RegistryPath(game), &snap)
	if err != nil {
		return models.RegistrySnapshot{}, fmt.Errorf("failed to load %s registry: %w", game, err)
	}
	if !found || snap.Templates == nil {
		snap.Templates = []models.TemplateEntry{}
	}
	return snap, nil
}

// SaveRegistry writes snap if the registry on disk is still at snap.Version and
// returns the saved snapshot with its version bumped. Callers must hold the
// registry lock.
func (s *Store) SaveRegistry(game models.Game, snap models.RegistrySnapshot) (models.RegistrySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.readRegistry(game)
	if err != nil {
		return models.RegistrySnapshot{}, err
	}
	if current.Version != snap.Version {
		return models.RegistrySnapshot{}, fmt.Errorf("%s registry moved from version %d to %d: %w",
			game, snap.Version, current.Version, models.ErrRegistryConflict)
	}
	if len(snap.Templates) < len(current.Templates) {
		return models.RegistrySnapshot{}, fmt.Errorf("%s registry would shrink from %d to %d templates: %w",
			game, len(current.Templates), len(snap.Templates), models.ErrRegistryConflict)
	}

	snap.Version++
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now()
	}
	if err := s.writeJSON(s.RegistryPath(game), snap); err != nil {
		return models.RegistrySnapshot{}, err
	}
	logger.Debug("Saved %s registry version %d (%d templates)", game, snap.Version, len(snap.Templates))
	return snap, nil
}

// WriteOutput publishes v as output document name of game.
func (s *Store) WriteOutput(game models.Game, name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(s.OutputPath(game, name), v)
}

// readJSON decodes path into v, reporting whether the file existed. Stale temp
// files from a crashed write are removed first.
func readJSON(path string, v any) (bool, error) {
	if _, err := os.Stat(path + tmpSuffix); err == nil {
		_ = os.Remove(path + tmpSuffix)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read file: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("failed to unmarshal %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

// writeJSON marshals v and atomically replaces path with it.
func (s *Store) writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), s.dirPermissions); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	tempPath := path + tmpSuffix
	if err := os.WriteFile(tempPath, data, s.filePermissions); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
