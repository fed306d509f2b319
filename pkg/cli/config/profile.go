package config

import (
	"os"

	"github.com/m-mizutani/bumprisk/pkg/domain/model"
	"github.com/m-mizutani/bumprisk/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// ProfileData is the TOML profile. Every field is optional.
//
//	[agent]
//	max_turns = 15
//	max_parse_errors = 3
//
//	[retrieval]
//	k = 5
//
//	[tickets]
//	patterns = ["[A-Z][A-Z0-9]+-[0-9]+"]
//	# keys that are never tickets; replaces the built-in list (UTF, SHA, JDK, CVE, ...)
//	ignore = ["UTF", "SHA", "JDK"]
type ProfileData struct {
	Agent struct {
		MaxTurns       int `toml:"max_turns"`
		MaxParseErrors int `toml:"max_parse_errors"`
	} `toml:"agent"`
	Retrieval struct {
		K int `toml:"k"`
	} `toml:"retrieval"`
	Tickets struct {
		Patterns []string `toml:"patterns"`
		Ignore   []string `toml:"ignore"`
	} `toml:"tickets"`
}

// Profile locates the optional profile file
type Profile struct {
	Path string
}

// Flags returns CLI flags for profile configuration
func (c *Profile) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "profile",
			Usage:       "Path to a TOML profile with agent limits, retrieval k and ticket patterns",
			Destination: &c.Path,
			Sources:     cli.EnvVars("BUMPRISK_PROFILE"),
		},
	}
}

// Load reads the profile. An unset path yields an empty profile.
func (c *Profile) Load() (*ProfileData, error) {
	data := &ProfileData{}
	if c.Path == "" {
		return data, nil
	}

	raw, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read profile", goerr.V("path", c.Path))
	}
	if err := toml.Unmarshal(raw, data); err != nil {
		return nil, goerr.Wrap(err, "failed to parse profile", goerr.V("path", c.Path))
	}

	if data.Agent.MaxTurns < 0 || data.Agent.MaxParseErrors < 0 || data.Retrieval.K < 0 {
		return nil, goerr.New("profile values must not be negative", goerr.V("path", c.Path))
	}
	return data, nil
}

// Limits returns the agent caps. Zero values fall back to the agent defaults.
func (p *ProfileData) Limits() usecase.AgentLimits {
	return usecase.AgentLimits{
		MaxTurns:       p.Agent.MaxTurns,
		MaxParseErrors: p.Agent.MaxParseErrors,
	}
}

// SearchK returns the number of chunks returned by retrieval tools
func (p *ProfileData) SearchK() int {
	if p.Retrieval.K > 0 {
		return p.Retrieval.K
	}
	return usecase.DefaultSearchK
}

// TicketMatcher compiles the ticket patterns, or the default pattern when none are set.
// tickets.ignore, when present, replaces the default ignored keys; an empty list ignores nothing.
func (p *ProfileData) TicketMatcher() (*model.TicketMatcher, error) {
	m, err := model.NewTicketMatcher(p.Tickets.Patterns...)
	if err != nil {
		return nil, err
	}
	if p.Tickets.Ignore != nil {
		m.Ignore(p.Tickets.Ignore...)
	}
	return m, nil
}
