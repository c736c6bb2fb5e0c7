// File path: internal/mirror/placeholder.go
package mirror

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PlaceholderPrefix marks replica rows whose authoritative write has not
// completed. The authoritative store's identifier scheme can never produce
// this prefix, so the reconciliation sweep uses it as its sole "needs
// backfill" signal.
const PlaceholderPrefix = "pending-"

// GeneratePlaceholderID returns a fresh placeholder record identifier. The
// identifier is prefix + random UUID from a cryptographic source, with a
// timestamp-plus-random fallback when that source is unavailable.
func GeneratePlaceholderID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fmt.Sprintf("%s%x-%06x", PlaceholderPrefix, time.Now().UnixNano(), rand.Intn(1<<24))
	}
	return PlaceholderPrefix + id.String()
}

// IsPlaceholderID reports whether the record identifier belongs to a row
// not yet confirmed by the authoritative store. The pending/confirmed state
// is derived from the prefix alone; no separate flag is stored.
func IsPlaceholderID(recordID string) bool {
	return strings.HasPrefix(recordID, PlaceholderPrefix)
}
