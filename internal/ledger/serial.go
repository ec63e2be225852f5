package ledger

import (
	"fmt"

	"github.com/samber/lo"
)

// MaxSequence is the largest sequence number that fits in five digits.
const MaxSequence = 99999

// GenerateSerials returns count serials {prefix}{n:05d} for n starting at
// start. The numeric part is taken modulo 100000 so it never widens.
func GenerateSerials(prefix string, start, count int) []string {
	if count <= 0 {
		return nil
	}
	return lo.Map(lo.RangeFrom(start, count), func(n, _ int) string {
		return fmt.Sprintf("%s%05d", prefix, n%(MaxSequence+1))
	})
}
