package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/examdeck/examdeck/internal/config"
	"github.com/examdeck/examdeck/internal/docstore"
	"github.com/examdeck/examdeck/internal/license"
	"github.com/examdeck/examdeck/internal/questionbank"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and remote-store reachability",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		ok := true

		if err := cfg.Validate(); err != nil {
			ok = false
			fmt.Printf("✗ configuration: %v\n", err)
		} else {
			fmt.Printf("✓ configuration: token set, data repo %s/%s@%s\n",
				cfg.DataOwner, cfg.DataRepo, cfg.DataBranch)
		}

		if cfg.RemoteConfigured() {
			docs := newDocs(cfg, stderrLogger())
			_, err := docs.Read(cmd.Context(), license.DatabasePath)
			switch {
			case err == nil:
				fmt.Println("✓ remote store: license database reachable")
			case errors.Is(err, docstore.ErrNotFound):
				fmt.Println("✓ remote store: reachable (no license database yet, run 'examdeck keys add')")
			default:
				ok = false
				fmt.Printf("✗ remote store: %v\n", err)
			}
		} else {
			fmt.Println("– remote store: skipped (not configured; offline fallbacks will be used)")
		}

		if _, err := questionbank.Load(questionCandidates(cfg), stderrLogger()); err != nil {
			ok = false
			fmt.Printf("✗ question set: %v\n", err)
		} else {
			fmt.Println("✓ question set: loaded")
		}

		if !ok {
			return fmt.Errorf("problems found")
		}
		return nil
	},
}
