// Package filenode stores the physical node registry on the local
// filesystem, one JSON file per node. Several processes may share a
// directory; mutations hold an advisory lock on it and every operation
// re-reads the directory first.
package filenode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dagu-org/faultline/internal/cmn/logger"
	"github.com/dagu-org/faultline/internal/cmn/logger/tag"
	"github.com/dagu-org/faultline/internal/core"
	"github.com/dagu-org/faultline/internal/noderegistry"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const (
	nodeFileExtension   = ".json"
	nodeDirPermissions  = 0750
	nodeFilePermissions = 0600
	lockFileName        = ".lock"
	lockRetryDelay      = 50 * time.Millisecond
)

var _ noderegistry.Backend = (*Store)(nil)

// record is the on-disk form of a node.
type record struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Config    string    `json:"config"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store implements noderegistry.Backend on the local filesystem.
// Files are named by record ID; an in-memory index maps names to files.
type Store struct {
	baseDir string
	lock    *flock.Flock

	mu sync.Mutex
	// byName maps node name to file path
	byName map[string]string
}

// New creates a store rooted at baseDir, creating the directory if needed
// and indexing existing node files.
func New(ctx context.Context, baseDir string) (*Store, error) {
	if baseDir == "" {
		return nil, errors.New("filenode: baseDir cannot be empty")
	}
	if err := os.MkdirAll(baseDir, nodeDirPermissions); err != nil {
		return nil, fmt.Errorf("filenode: failed to create directory %s: %w", baseDir, err)
	}

	s := &Store{
		baseDir: baseDir,
		lock:    flock.New(filepath.Join(baseDir, lockFileName)),
		byName:  make(map[string]string),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.rebuildIndex(ctx); err != nil {
		return nil, fmt.Errorf("filenode: failed to build index: %w", err)
	}
	return s, nil
}

// rebuildIndex rescans the directory. The caller holds s.mu.
func (s *Store) rebuildIndex(ctx context.Context) error {
	s.byName = make(map[string]string)
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", s.baseDir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != nodeFileExtension {
			continue
		}
		filePath := filepath.Join(s.baseDir, entry.Name())
		rec, err := readRecord(filePath)
		if err != nil {
			// One bad file must not hide the others.
			logger.Warn(ctx, "Failed to load node file during index rebuild", tag.File(filePath), tag.Error(err))
			continue
		}
		s.byName[rec.Name] = filePath
	}
	return nil
}

// withDirLock runs fn while holding s.mu and the directory lock, on a
// freshly rebuilt index.
func (s *Store) withDirLock(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("filenode: failed to lock %s: %w", s.baseDir, err)
	}
	if !locked {
		return fmt.Errorf("filenode: failed to lock %s", s.baseDir)
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			logger.Warn(ctx, "Failed to unlock node directory", tag.Dir(s.baseDir), tag.Error(err))
		}
	}()

	if err := s.rebuildIndex(ctx); err != nil {
		return fmt.Errorf("filenode: %w", err)
	}
	return fn()
}

// Add stores a new node.
func (s *Store) Add(ctx context.Context, node noderegistry.Node) error {
	var errs core.ValidationErrors
	if strings.TrimSpace(node.Name) == "" {
		errs.Add("name", nil, core.ErrRequired)
	}
	if _, err := noderegistry.DecodeAddress(node.Config); err != nil || node.Config == "" {
		errs.Add("config", node.Config, core.ErrInvalidValue)
	}
	if err := errs.OrNil(); err != nil {
		return err
	}

	return s.withDirLock(ctx, func() error {
		if _, exists := s.byName[node.Name]; exists {
			return &core.ConflictError{Resource: "node", Name: node.Name}
		}

		kind := node.Kind
		if kind == "" {
			kind = noderegistry.KindPhysical
		}
		rec := &record{
			ID:        uuid.New().String(),
			Name:      node.Name,
			Kind:      kind,
			Config:    node.Config,
			CreatedAt: time.Now().UTC(),
		}
		filePath := filepath.Join(s.baseDir, rec.ID+nodeFileExtension)
		if err := writeRecord(filePath, rec); err != nil {
			return err
		}
		s.byName[rec.Name] = filePath
		return nil
	})
}

// List returns every node ordered by name.
func (s *Store) List(ctx context.Context) ([]noderegistry.Node, error) {
	s.mu.Lock()
	if err := s.rebuildIndex(ctx); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("filenode: %w", err)
	}
	paths := make(map[string]string, len(s.byName))
	for name, p := range s.byName {
		paths[name] = p
	}
	s.mu.Unlock()

	nodes := make([]noderegistry.Node, 0, len(paths))
	for _, filePath := range paths {
		rec, err := readRecord(filePath)
		if err != nil {
			// Removed behind our back.
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("filenode: %w", err)
		}
		nodes = append(nodes, noderegistry.Node{Name: rec.Name, Kind: rec.Kind, Config: rec.Config})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	logger.Debug(ctx, "Listed nodes", tag.Count(len(nodes)))
	return nodes, nil
}

// Delete removes the node with the given name.
func (s *Store) Delete(ctx context.Context, name string) error {
	return s.withDirLock(ctx, func() error {
		filePath, exists := s.byName[name]
		if !exists {
			return &core.NotFoundError{Resource: "node", Name: name}
		}
		if err := os.Remove(filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("filenode: failed to delete node file: %w", err)
		}
		delete(s.byName, name)
		return nil
	})
}

func readRecord(filePath string) (*record, error) {
	data, err := os.ReadFile(filePath) //nolint:gosec // filePath is constructed internally
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse node file %s: %w", filePath, err)
	}
	if rec.Name == "" {
		return nil, fmt.Errorf("node file %s has no name", filePath)
	}
	return &rec, nil
}

// writeRecord writes a record to a JSON file atomically.
func writeRecord(filePath string, rec *record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("filenode: failed to marshal node: %w", err)
	}

	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, nodeFilePermissions); err != nil {
		return fmt.Errorf("filenode: failed to write file %s: %w", tempPath, err)
	}
	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("filenode: failed to rename file %s: %w", filePath, err)
	}
	return nil
}
