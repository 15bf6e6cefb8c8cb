package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Build-time defaults, injected via -ldflags "-X .../internal/config.builtinToken=...".
// They play the role the deploy pipeline's placeholder substitution played for
// the original static build: secrets are baked in at release time and
// overridable through the environment.
var (
	builtinToken = "{{GITHUB_TOKEN}}"
	builtinOwner = "{{DATA_REPO_OWNER}}"
)

// minTokenLength is the shortest credential the release check accepts.
// Anything shorter is assumed to be a surviving placeholder or a typo.
const minTokenLength = 20

// Config holds runtime configuration for the quiz runner. Values are read
// from EXAMDECK_-prefixed environment variables, falling back to build-time
// defaults for the token and owner.
type Config struct {
	// GitHubToken authenticates calls to the data repository.
	GitHubToken string `envconfig:"GITHUB_TOKEN"`

	// DataOwner is the account owning the data repository.
	DataOwner string `envconfig:"DATA_OWNER"`

	// DataRepo is the repository used as the document store.
	DataRepo string `envconfig:"DATA_REPO" default:"quiz-data"`

	// DataBranch is the branch documents are read from and written to.
	DataBranch string `envconfig:"DATA_BRANCH" default:"main"`

	// QuestionFile overrides the candidate-path search for the question bank.
	QuestionFile string `envconfig:"QUESTIONS"`

	// DBPath overrides the local mirror database location.
	DBPath string `envconfig:"DB"`

	// LogFile receives structured logs from the TUI. Empty disables logging.
	LogFile string `envconfig:"LOG"`
}

// Load reads configuration from the environment and applies build-time
// defaults for values the environment leaves empty.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("examdeck", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if cfg.GitHubToken == "" && !isPlaceholder(builtinToken) {
		cfg.GitHubToken = builtinToken
	}
	if cfg.DataOwner == "" && !isPlaceholder(builtinOwner) {
		cfg.DataOwner = builtinOwner
	}

	return &cfg, nil
}

// Validate checks that the remote-store credentials are usable. The quiz
// still runs without them (offline fallbacks take over), so callers decide
// whether a failure is fatal.
func (c *Config) Validate() error {
	if c.GitHubToken == "" {
		return fmt.Errorf("no GitHub token configured (set EXAMDECK_GITHUB_TOKEN)")
	}
	if isPlaceholder(c.GitHubToken) {
		return fmt.Errorf("GitHub token is an unsubstituted placeholder")
	}
	if len(c.GitHubToken) < minTokenLength {
		return fmt.Errorf("GitHub token is too short (%d chars, want at least %d)", len(c.GitHubToken), minTokenLength)
	}
	if c.DataOwner == "" {
		return fmt.Errorf("no data repository owner configured (set EXAMDECK_DATA_OWNER)")
	}
	if isPlaceholder(c.DataOwner) {
		return fmt.Errorf("data repository owner is an unsubstituted placeholder")
	}
	return nil
}

// RemoteConfigured reports whether enough configuration exists to talk to
// the remote document store at all.
func (c *Config) RemoteConfigured() bool {
	return c.Validate() == nil
}

func isPlaceholder(v string) bool {
	return strings.HasPrefix(v, "{{") && strings.HasSuffix(v, "}}")
}
