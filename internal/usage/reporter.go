package usage

import (
	"context"

	"github.com/google/uuid"
)

// Reporter pushes one metered billing unit per conversion. Implementations
// must be safe to call fire-and-forget: a failed report is logged, never
// propagated, and must not affect the conversion outcome.
type Reporter interface {
	Report(ctx context.Context, userID uuid.UUID)
}
