// Command discoverctl runs the discovery engine offline against a catalog
// file and prints JSON. It is meant for tuning thresholds and inspecting
// catalogs without starting the server.
package main

import (
	"os"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("discoverctl")
		os.Exit(1)
	}
}
