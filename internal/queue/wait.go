package queue

import (
	"fmt"
	"math"
	"time"
)

// DefaultAvgWaitPerItem is the assumed handling time per queued item used
// for the wait estimate shown to callers.
const DefaultAvgWaitPerItem = 60 * time.Second

// EstimateWait renders a coarse display estimate for the given queue
// position. It is not a contract the queue keeps accurate; the floor of one
// minute keeps position 0 from reading as "no wait".
func EstimateWait(position int, avgPerItem time.Duration) string {
	if avgPerItem <= 0 {
		avgPerItem = DefaultAvgWaitPerItem
	}
	mins := int(math.Ceil(float64(position) * avgPerItem.Seconds() / 60))
	if mins < 1 {
		mins = 1
	}
	return fmt.Sprintf("~%d min", mins)
}
