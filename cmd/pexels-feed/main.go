// Command pexels-feed browses the Pexels curated listing and searches from
// the terminal, with a status server exposing health, metrics and the feed
// state.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
