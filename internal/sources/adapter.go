package sources

import (
	"context"
	"time"

	"github.com/devpulse/devpulse/internal/activity"
)

// Window is the trailing time window every adapter fetches. It is a
// fixed policy constant, not derived from external state.
const Window = 24 * time.Hour

// Adapter is the contract shared by all activity providers. Fetch
// returns normalized activities from the trailing window; provider-side
// failures surface as an error so the caller can skip the source
// without aborting the run. Adapters never panic and always release any
// provider session they acquired, on every exit path.
type Adapter interface {
	// Name returns the unique identifier for this adapter.
	Name() string

	// Fetch retrieves and normalizes recent activity.
	Fetch(ctx context.Context) ([]activity.Activity, error)
}
