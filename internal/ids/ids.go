package ids

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Prefix tags an identifier with the entity it names.
type Prefix string

const (
	PrefixUser    Prefix = "usr"
	PrefixTicket  Prefix = "tck"
	PrefixMessage Prefix = "msg"
	PrefixAILog   Prefix = "ail"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns "<prefix>_<ulid>". IDs created by one process sort in creation order.
func New(prefix Prefix) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return string(prefix) + "_" + ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
