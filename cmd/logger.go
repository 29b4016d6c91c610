package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
)

// newLogger creates a logger writing to stderr, keeping stdout free for
// results and envelopes.
// If verbose is true, the logger is set to DebugLevel, otherwise InfoLevel.
func newLogger(verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}
