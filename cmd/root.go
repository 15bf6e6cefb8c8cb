package cmd

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/examdeck/examdeck/internal/app"
	"github.com/examdeck/examdeck/internal/config"
	"github.com/examdeck/examdeck/internal/docstore"
	"github.com/examdeck/examdeck/internal/license"
	"github.com/examdeck/examdeck/internal/localstore"
	"github.com/examdeck/examdeck/internal/progress"
	"github.com/examdeck/examdeck/internal/questionbank"
)

var rootCmd = &cobra.Command{
	Use:   "examdeck",
	Short: "License-gated exam trainer",
	Long:  "Examdeck is a terminal exam trainer whose license and progress state lives in a GitHub data repository.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite mirror database (overrides EXAMDECK_DB env var)")

	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

func runApp(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	local, err := openLocal(cmd, cfg)
	if err != nil {
		return err
	}
	defer local.Close()

	docs := newDocs(cfg, log)
	if docs == nil {
		log.Warn("remote store not configured, running on local fallbacks",
			"reason", cfg.Validate())
	}

	seed := uint64(time.Now().UnixNano())
	deps := app.Deps{
		LoadBank: func() (*questionbank.Bank, error) {
			return questionbank.Load(questionCandidates(cfg), log)
		},
		Validator: license.NewValidator(docs, local, log),
		Store:     progress.NewStore(docs, local, log),
		Rand:      rand.New(rand.NewPCG(seed, seed)),
		Log:       log,
	}
	return app.Run(deps)
}

// newLogger builds the TUI logger. Terminal output belongs to Bubble
// Tea, so logs go to a file or nowhere.
func newLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	if cfg.LogFile == "" {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	log := slog.New(slog.NewTextHandler(f, nil))
	return log, func() { f.Close() }, nil
}

// stderrLogger is for non-TUI commands.
func stderrLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// openLocal resolves the mirror path (flag > env > XDG default) and
// opens the store.
func openLocal(cmd *cobra.Command, cfg *config.Config) (*localstore.Store, error) {
	path := cfg.DBPath
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		path = p
	}
	if path == "" {
		var err error
		path, err = localstore.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve mirror path: %w", err)
		}
	}
	if err := localstore.EnsureDir(path); err != nil {
		return nil, fmt.Errorf("create mirror directory: %w", err)
	}
	st, err := localstore.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mirror: %w", err)
	}
	return st, nil
}

// newDocs returns a document-store client, or nil when the remote is
// not configured. Callers treat nil as "offline fallbacks only."
func newDocs(cfg *config.Config, log *slog.Logger) docstore.Client {
	if !cfg.RemoteConfigured() {
		return nil
	}
	return docstore.NewGitHub(cfg.DataOwner, cfg.DataRepo, cfg.DataBranch, cfg.GitHubToken,
		docstore.WithLogger(log))
}

func questionCandidates(cfg *config.Config) []string {
	if cfg.QuestionFile != "" {
		return []string{cfg.QuestionFile}
	}
	return questionbank.DefaultCandidatePaths
}
