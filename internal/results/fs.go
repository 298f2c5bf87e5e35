package results

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// fsStore writes snapshots to a local directory. Writes go to a temp file in
// the same directory followed by a rename, so concurrent readers never see a
// truncated snapshot.
type fsStore struct {
	dir string
}

// NewFS creates a filesystem-backed snapshot store rooted at dir, creating
// the directory if needed.
func NewFS(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}
	return &fsStore{dir: dir}, nil
}

func (s *fsStore) path(company, stage string) string {
	return filepath.Join(s.dir, SnapshotName(company, stage))
}

func (s *fsStore) SaveStage(ctx context.Context, company, stage string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s snapshot: %w", stage, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(s.dir, SnapshotName(company, stage)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path(company, stage)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

func (s *fsStore) LoadStage(ctx context.Context, company, stage string, out any) error {
	data, err := os.ReadFile(s.path(company, stage))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s/%s: %w", company, stage, ErrNoSnapshot)
		}
		return fmt.Errorf("read snapshot: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s snapshot: %w", stage, err)
	}
	return nil
}

func (s *fsStore) DeleteStage(ctx context.Context, company, stage string) error {
	if err := os.Remove(s.path(company, stage)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
