package app

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// IDGen produces identifiers for rows created by the engine. Catalog rows get
// UUIDs; ledger rows get monotonic ULIDs so lexicographic record-id order
// matches creation order within the process.
type IDGen interface {
	NewID() string
	NewRecordID() (string, error)
}

type generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewIDGen returns the production ID generator.
func NewIDGen() IDGen {
	return &generator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *generator) NewID() string {
	return uuid.NewString()
}

func (g *generator) NewRecordID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), g.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
