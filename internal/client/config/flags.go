package config

import (
	"flag"
	"os"
	"time"

	"github.com/pairwave/mediaflow/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the media backend
//	-i int      status poll interval in seconds
//	-n int      maximum status poll attempts
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-i", "-n"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.BackendBaseURL, "a", cfg.BackendBaseURL, "base URL of the media backend")
	pollInterval := fs.Int("i", int(cfg.PollInterval.Seconds()), "status poll interval (in seconds)")
	fs.IntVar(&cfg.MaxPollAttempts, "n", cfg.MaxPollAttempts, "maximum status poll attempts")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.PollInterval = time.Duration(*pollInterval) * time.Second
}
