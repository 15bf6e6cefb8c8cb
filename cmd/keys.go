package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/examdeck/examdeck/internal/config"
	"github.com/examdeck/examdeck/internal/docstore"
	"github.com/examdeck/examdeck/internal/license"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage license keys in the remote database",
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List issued license keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		docs, err := requireDocs()
		if err != nil {
			return err
		}

		db, _, err := fetchLicenseDatabase(cmd.Context(), docs)
		if err != nil {
			return err
		}

		fmt.Printf("admin key: %s\n\n", db.AdminKey)
		for _, rec := range db.Keys {
			status := "unused"
			if rec.Used {
				status = "used"
				if rec.UsedAt != nil {
					status += " " + rec.UsedAt.Format(time.RFC3339)
				}
			}
			fmt.Printf("%-24s  %-32s  created %s\n", rec.Key, status, rec.CreatedAt.Format(time.RFC3339))
		}
		fmt.Printf("\n%d keys total\n", len(db.Keys))
		return nil
	},
}

var keysAddCmd = &cobra.Command{
	Use:   "add [count]",
	Short: "Generate new license keys",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		count := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("count must be a positive integer, got %q", args[0])
			}
			count = n
		}

		docs, err := requireDocs()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		db, created, err := fetchLicenseDatabase(ctx, docs)
		if err != nil {
			return err
		}
		if created {
			fmt.Printf("no license database yet, creating one (admin key: %s)\n", db.AdminKey)
		}

		now := time.Now().UTC()
		fresh := make([]string, 0, count)
		for i := 0; i < count; i++ {
			key := generateKey(len(db.Keys) + i + 1)
			db.Keys = append(db.Keys, license.Record{Key: key, CreatedAt: now})
			fresh = append(fresh, key)
		}

		data, err := json.MarshalIndent(db, "", "  ")
		if err != nil {
			return fmt.Errorf("encode database: %w", err)
		}
		message := fmt.Sprintf("Add %d license keys", count)
		if err := docs.Write(ctx, license.DatabasePath, data, message); err != nil {
			return fmt.Errorf("write database: %w", err)
		}

		for _, key := range fresh {
			fmt.Println(key)
		}
		return nil
	},
}

func init() {
	keysCmd.AddCommand(keysListCmd)
	keysCmd.AddCommand(keysAddCmd)
}

// requireDocs builds a document-store client or fails with the config
// problem. Key management has no offline fallback.
func requireDocs() (docstore.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("remote store not configured: %w", err)
	}
	return newDocs(cfg, stderrLogger()), nil
}

// fetchLicenseDatabase reads the shared key document, minting a fresh
// one (with a new admin key) when none exists yet. created reports
// whether the database had to be minted.
func fetchLicenseDatabase(ctx context.Context, docs docstore.Client) (*license.Database, bool, error) {
	d, err := docs.Read(ctx, license.DatabasePath)
	if errors.Is(err, docstore.ErrNotFound) {
		return &license.Database{AdminKey: generateAdminKey()}, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read database: %w", err)
	}

	var db license.Database
	if err := json.Unmarshal(d.Content, &db); err != nil {
		return nil, false, fmt.Errorf("decode database: %w", err)
	}
	return &db, false, nil
}

// generateKey produces keys in the same shape the original batch used:
// a running number plus a short random suffix.
func generateKey(n int) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:5]
	return fmt.Sprintf("LICENSE-%03d-%s", n, suffix)
}

func generateAdminKey() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:10]
	return "MASTER-ADMIN-" + suffix
}
