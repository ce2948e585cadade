package period_test

import (
	"fmt"
	"time"

	"github.com/wonny/ship2profile/pkg/period"
)

// Example shows the trailing-window starts used for a May 2024 run
func Example() {
	ref := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for _, n := range []int{1, 3, 6, 9, 12} {
		fmt.Println(n, period.MonthOffset(ref, -n))
	}
	// Output:
	// 1 202404
	// 3 202402
	// 6 202311
	// 9 202308
	// 12 202305
}
