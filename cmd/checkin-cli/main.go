// checkin-cli submits a check-in transcript to digital-twin-api and prints the care summary.
//
// Usage:
//
//	checkin-cli --session s1 --transcript "Felt dizzy this morning" --bp 150/95 --hr 88
//	checkin-cli --session s1 --file transcript.txt --followup sleep="about 5 hours"
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
