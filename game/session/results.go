package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/gobblets/game/service"
)

// ErrResultNotFound is returned when no archived result has the given ID
var ErrResultNotFound = errors.New("result not found")

// FileResultStore implements service.ResultStore with one JSON file per
// finished match
type FileResultStore struct {
	resultsDir string
	mu         sync.RWMutex
}

// NewFileResultStore creates a result archive rooted at resultsDir
func NewFileResultStore(resultsDir string) (*FileResultStore, error) {
	// Create results directory if it doesn't exist
	if err := os.MkdirAll(resultsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}

	return &FileResultStore{resultsDir: resultsDir}, nil
}

// SaveResult writes result to its own file
func (s *FileResultStore) SaveResult(result *service.MatchResult) error {
	if result == nil {
		return fmt.Errorf("result cannot be nil")
	}
	if result.ID == "" || strings.ContainsAny(result.ID, "/\\") {
		return fmt.Errorf("invalid result ID %q", result.ID)
	}

	// Marshal to JSON with indentation for readability
	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return writeFileAtomic(s.getFilePath(result.ID), jsonData)
}

// writeFileAtomic writes data next to path and renames it into place, so
// readers never see a partial result
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".result-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write result file: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write result file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write result file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move result file into place: %w", err)
	}
	return nil
}

// LoadResult reads one archived result
func (s *FileResultStore) LoadResult(id string) (*service.MatchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.load(s.getFilePath(id))
}

func (s *FileResultStore) load(filePath string) (*service.MatchResult, error) {
	jsonData, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to read result file: %w", err)
	}

	var result service.MatchResult
	if err := json.Unmarshal(jsonData, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result %s: %w", filepath.Base(filePath), err)
	}

	return &result, nil
}

// ListResults returns every archived result, most recent first
func (s *FileResultStore) ListResults() ([]*service.MatchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.resultsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	results := []*service.MatchResult{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		result, err := s.load(filepath.Join(s.resultsDir, entry.Name()))
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].FinishedAt.After(results[j].FinishedAt)
	})

	return results, nil
}

// Delete removes an archived result
func (s *FileResultStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.getFilePath(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrResultNotFound
		}
		return fmt.Errorf("failed to remove result file: %w", err)
	}

	return nil
}

// getFilePath returns the full file path for a result ID
func (s *FileResultStore) getFilePath(id string) string {
	return filepath.Join(s.resultsDir, fmt.Sprintf("%s.json", id))
}
