package runstore

import (
	"context"
	"errors"

	"github.com/BaSui01/agentrun/agent"
)

// ErrNotFound 指定的运行快照不存在
var ErrNotFound = errors.New("runstore: paused run not found")

// Store persists paused run snapshots keyed by run id. Saving an existing id
// overwrites the previous snapshot.
type Store interface {
	// Save 持久化快照
	Save(ctx context.Context, paused *agent.PausedAgentRun) error

	// Load retrieves a snapshot by run id, ErrNotFound when absent.
	Load(ctx context.Context, runID string) (*agent.PausedAgentRun, error)

	// Delete removes a snapshot. Deleting an absent id is not an error.
	Delete(ctx context.Context, runID string) error

	// List returns the stored run ids in unspecified order.
	List(ctx context.Context) ([]string, error)
}
