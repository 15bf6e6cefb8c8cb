package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/examdeck/examdeck/internal/config"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear local data (cached validation, progress mirror, offline key usage)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		local, err := openLocal(cmd, cfg)
		if err != nil {
			return err
		}
		defer local.Close()

		if err := local.Reset(cmd.Context()); err != nil {
			return fmt.Errorf("reset local data: %w", err)
		}
		fmt.Println("Local data cleared. Remote progress and licenses are untouched.")
		return nil
	},
}
