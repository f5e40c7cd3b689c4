// Package prober measures stream quality statistics. The engine treats a
// probe as a fallible operation with its own timeout; a failed probe never
// aborts an execution.
package prober

import (
	"context"

	"github.com/voyagen/streamplus/internal/models"
)

// Prober probes a stream URL and returns measured statistics.
type Prober interface {
	Probe(ctx context.Context, stream *models.Stream) (*models.StreamStats, error)
}
