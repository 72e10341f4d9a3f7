package constants_test

import (
	"fmt"
	"time"

	"github.com/agentstation/listingmap/pkg/constants"
)

// Example_backoff shows the resubscribe delay sequence.
func Example_backoff() {
	wait := constants.RetryBackoff
	for i := 0; i < 7; i++ {
		fmt.Print(wait, " ")
		wait *= 2
		if wait > constants.MaxRetryBackoff {
			wait = constants.MaxRetryBackoff
		}
	}
	fmt.Println()
	// Output:
	// 1s 2s 4s 8s 16s 30s 30s
}

// Example_defaults shows the fallback camera position.
func Example_defaults() {
	fmt.Printf("%.4f,%.4f zoom %.0f\n", constants.DefaultLatitude, constants.DefaultLongitude, constants.DefaultZoom)
	fmt.Println(constants.GeocodeCacheTTL > time.Hour)
	// Output:
	// -6.7924,39.2083 zoom 14
	// true
}
