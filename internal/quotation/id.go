package quotation

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// IDGenerator issues quote ids of the form Q<yyyymmdd_hhmmss>_<seq>_<suffix>.
// The sequence is process-wide so ids created within the same second differ;
// the random suffix separates processes.
type IDGenerator struct {
	mu  sync.Mutex
	seq uint64
}

func (g *IDGenerator) Next(now time.Time) string {
	g.mu.Lock()
	g.seq++
	seq := g.seq
	g.mu.Unlock()

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("Q%s_%d_%s", now.UTC().Format("20060102_150405"), seq, suffix)
}

// ValidID reports whether id has the shape produced by IDGenerator. It is
// used to reject path traversal in document lookups.
func ValidID(id string) bool {
	if len(id) < 18 || len(id) > 64 || id[0] != 'Q' {
		return false
	}
	for _, r := range id[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		default:
			return false
		}
	}
	return true
}
