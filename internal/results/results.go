// Package results persists per-stage pipeline snapshots. Every stage writes
// its full output as one JSON document named {company}_{stage}_results.json,
// so a failed run leaves the completed stages' snapshots behind for
// inspection. Two backends exist: the local results directory (default) and an
// S3-compatible object store.
package results

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoSnapshot is returned by LoadStage when the stage has no persisted
// snapshot for the company.
var ErrNoSnapshot = errors.New("stage snapshot not found")

// Store persists and retrieves stage snapshots. SaveStage must be atomic:
// readers never observe a partially written snapshot.
type Store interface {
	SaveStage(ctx context.Context, company, stage string, payload any) error
	LoadStage(ctx context.Context, company, stage string, out any) error
	// DeleteStage removes a snapshot; deleting a missing snapshot is a no-op.
	DeleteStage(ctx context.Context, company, stage string) error
}

// SnapshotName returns the canonical snapshot file name for a company/stage.
func SnapshotName(company, stage string) string {
	return fmt.Sprintf("%s_%s_results.json", company, stage)
}
