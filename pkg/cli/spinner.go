package cli

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
)

// startSpinner shows progress on stderr while the language model works.
// The returned func stops it.
func startSpinner(message string) func() {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message
	s.Start()
	return s.Stop
}
