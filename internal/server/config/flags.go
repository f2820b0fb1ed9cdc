package config

import (
	"flag"
	"os"

	"github.com/pairwave/mediaflow/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   bind address for the HTTP API
//	-d string   PostgreSQL DSN (empty selects the in-memory store)
//	-k string   JWT signing secret
//	-b string   object storage bucket
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-k", "-b"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.EndpointAddr, "a", cfg.EndpointAddr, "address and port to listen on")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.SecretKey, "k", cfg.SecretKey, "JWT signing secret")
	fs.StringVar(&cfg.S3Bucket, "b", cfg.S3Bucket, "object storage bucket")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
