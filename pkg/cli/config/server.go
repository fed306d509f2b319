package config

import (
	"time"

	"github.com/urfave/cli/v3"
)

// Server holds server configuration
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
	MaxConcurrent   int
}

// Flags returns CLI flags for server configuration
func (c *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Server address",
			Value:       "localhost:8080",
			Destination: &c.Addr,
			Sources:     cli.EnvVars("BUMPRISK_ADDR"),
		},
		&cli.DurationFlag{
			Name:        "shutdown-timeout",
			Usage:       "Grace period for in-flight requests and background assessments on shutdown",
			Value:       30 * time.Second,
			Destination: &c.ShutdownTimeout,
			Sources:     cli.EnvVars("BUMPRISK_SHUTDOWN_TIMEOUT"),
		},
		&cli.IntFlag{
			Name:        "max-concurrent-assessments",
			Usage:       "Upper bound of pull request assessments running at once (0 for unbounded)",
			Value:       4,
			Destination: &c.MaxConcurrent,
			Sources:     cli.EnvVars("BUMPRISK_MAX_CONCURRENT_ASSESSMENTS"),
		},
	}
}
