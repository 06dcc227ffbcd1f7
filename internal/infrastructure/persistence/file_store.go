package persistence

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/mightyoctopus/worthbrain/internal/domain"
	"github.com/mightyoctopus/worthbrain/internal/domain/entity"
	"github.com/mightyoctopus/worthbrain/pkg/errcodes"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals

// FileStore keeps the opportunity log as a single JSON array on disk.
// Appends rewrite the whole file through a temp file and an atomic
// rename, so concurrent readers only ever see a complete snapshot and
// a crash mid-write leaves the previous snapshot intact.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load returns the recorded opportunities in append order. A missing
// file is an empty log, not an error.
func (s *FileStore) Load(_ context.Context) ([]entity.Opportunity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read()
}

func (s *FileStore) read() ([]entity.Opportunity, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, domain.WrapError(err, errcodes.PersistenceFailure, "read memory file")
	}

	var opportunities []entity.Opportunity
	if err := json.Unmarshal(data, &opportunities); err != nil {
		return nil, domain.WrapError(err, errcodes.PersistenceFailure, "parse memory file")
	}

	return opportunities, nil
}

// Append durably records one opportunity.
func (s *FileStore) Append(_ context.Context, opp entity.Opportunity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	opportunities, err := s.read()
	if err != nil {
		return err
	}

	opportunities = append(opportunities, opp)

	data, err := json.MarshalIndent(opportunities, "", "  ")
	if err != nil {
		return domain.WrapError(err, errcodes.PersistenceFailure, "serialize memory")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".memory-*.json")
	if err != nil {
		return domain.WrapError(err, errcodes.PersistenceFailure, "create temp file")
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return domain.WrapError(err, errcodes.PersistenceFailure, "write temp file")
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return domain.WrapError(err, errcodes.PersistenceFailure, "sync temp file")
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return domain.WrapError(err, errcodes.PersistenceFailure, "close temp file")
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return domain.WrapError(err, errcodes.PersistenceFailure, "replace memory file")
	}

	return nil
}

// URLs returns the set of already-surfaced deal URLs for dedup.
func (s *FileStore) URLs(ctx context.Context) (map[string]struct{}, error) {
	opportunities, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(opportunities))
	for _, opp := range opportunities {
		set[opp.Deal.URL] = struct{}{}
	}

	return set, nil
}
