package ledger

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/boardtrack/pkg/types"
)

// IndexEntry locates a serial within a loaded ledger.
type IndexEntry struct {
	RowIndex            int  // position in the rows passed to BuildIndex
	WasPreviouslyFailed bool // current result is Fail, so only Fixed is allowed
}

// SerialIndex maps serials to their rows for scanner-driven lookup.
type SerialIndex struct {
	entries map[string]IndexEntry
}

// NormalizeSerial trims surrounding whitespace, which scanners often add.
// Case is significant.
func NormalizeSerial(s string) string {
	return strings.TrimSpace(s)
}

// BuildIndex indexes rows by serial. If a serial repeats, the first row
// wins.
func BuildIndex(rows []types.LedgerRow) *SerialIndex {
	ix := &SerialIndex{entries: make(map[string]IndexEntry, len(rows))}
	for i, r := range rows {
		key := NormalizeSerial(r.Serial)
		if key == "" {
			continue
		}
		if _, ok := ix.entries[key]; ok {
			continue
		}
		ix.entries[key] = IndexEntry{
			RowIndex:            i,
			WasPreviouslyFailed: r.Outcome().Kind() == types.OutcomeFail,
		}
	}
	return ix
}

// Lookup finds serial, ignoring surrounding whitespace.
func (ix *SerialIndex) Lookup(serial string) (IndexEntry, error) {
	e, ok := ix.entries[NormalizeSerial(serial)]
	if !ok {
		return IndexEntry{}, fmt.Errorf("%w: %q", types.ErrSerialNotFound, serial)
	}
	return e, nil
}

// Len returns the number of indexed serials.
func (ix *SerialIndex) Len() int { return len(ix.entries) }
