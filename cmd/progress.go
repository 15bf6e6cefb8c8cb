package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/examdeck/examdeck/internal/config"
	"github.com/examdeck/examdeck/internal/progress"
	"github.com/examdeck/examdeck/internal/questionbank"
)

var progressCmd = &cobra.Command{
	Use:   "progress <license-key>",
	Short: "Print the saved progress for a license key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		log := stderrLogger()

		local, err := openLocal(cmd, cfg)
		if err != nil {
			return err
		}
		defer local.Close()

		store := progress.NewStore(newDocs(cfg, log), local, log)
		rec, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("load progress: %w", err)
		}

		fmt.Printf("license:  %s\n", rec.LicenseKey)
		fmt.Printf("position: section %d, question %d\n", rec.Section, rec.Index+1)
		if !rec.LastSaved.IsZero() {
			fmt.Printf("saved:    %s\n", rec.LastSaved.Format("2006-01-02 15:04:05 MST"))
		}
		fmt.Println()
		for _, sec := range questionbank.DefaultSections() {
			status := rec.Status[sec.ID-1]
			line := fmt.Sprintf("%-12s %s", sec.Name, status)
			if status == progress.StatusCompleted {
				line += fmt.Sprintf(" (%d/%d)", rec.Scores[sec.ID-1], sec.Count)
			}
			fmt.Println(line)
		}
		fmt.Printf("\ntotal score: %d\n", rec.Total())
		return nil
	},
}
