package tracking

import (
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"
)

// Identifier minting for provenance rows. The format is
// PREFIX_<ms-epoch>_<4-digit-random>, kept stable for compatibility with
// existing trails. The random group is drawn from a dedicated source seeded
// from the wall clock at process start, never from the workflow-seeded
// random source, so ids stay distinct across replays with identical seeds.

var (
	idMu   sync.Mutex
	idRand = rand.New(rand.NewSource(time.Now().UnixNano() ^ (int64(os.Getpid()) << 32)))

	// Suffixes issued in the current millisecond. Re-drawing on collision
	// keeps ids unique even under bursty creation within one tick.
	idLastMs int64
	idIssued = make(map[int]struct{})
)

// GenerateUniqueID mints a process-wide unique identifier for the prefix.
func GenerateUniqueID(prefix string) string {
	idMu.Lock()
	defer idMu.Unlock()

	ms := time.Now().UnixMilli()
	if ms != idLastMs {
		idLastMs = ms
		idIssued = make(map[int]struct{})
	}
	if len(idIssued) >= 10000 {
		// Suffix space exhausted for this tick; wait for the next one.
		for ms == idLastMs {
			time.Sleep(time.Millisecond)
			ms = time.Now().UnixMilli()
		}
		idLastMs = ms
		idIssued = make(map[int]struct{})
	}
	n := idRand.Intn(10000)
	for {
		if _, taken := idIssued[n]; !taken {
			break
		}
		n = idRand.Intn(10000)
	}
	idIssued[n] = struct{}{}

	return fmt.Sprintf("%s_%d_%04d", prefix, ms, n)
}
