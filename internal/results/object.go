package results

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"

	"legalpipe/internal/storage"
)

// objectStore persists snapshots in an S3-compatible bucket under
// results/{company}_{stage}_results.json. Object stores publish a PUT
// atomically, so no temp-and-rename dance is needed.
type objectStore struct {
	st storage.Storage
}

// NewObject creates a snapshot store backed by an object storage client.
func NewObject(st storage.Storage) Store {
	return &objectStore{st: st}
}

func (s *objectStore) key(company, stage string) string {
	return "results/" + SnapshotName(company, stage)
}

func (s *objectStore) SaveStage(ctx context.Context, company, stage string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s snapshot: %w", stage, err)
	}
	data = append(data, '\n')

	_, err = s.st.Put(ctx, s.key(company, stage), bytes.NewReader(data), storage.PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}
	return nil
}

func (s *objectStore) LoadStage(ctx context.Context, company, stage string, out any) error {
	rc, _, err := s.st.Get(ctx, s.key(company, stage))
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return fmt.Errorf("%s/%s: %w", company, stage, ErrNoSnapshot)
		}
		return fmt.Errorf("download snapshot: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s snapshot: %w", stage, err)
	}
	return nil
}

func (s *objectStore) DeleteStage(ctx context.Context, company, stage string) error {
	if err := s.st.Delete(ctx, s.key(company, stage)); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
