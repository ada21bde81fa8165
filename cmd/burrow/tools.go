package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/critterhaus/burrow/internal/backup"
	"github.com/critterhaus/burrow/internal/config"
	"github.com/critterhaus/burrow/internal/connectivity"
	"github.com/critterhaus/burrow/internal/engine"
	"github.com/critterhaus/burrow/internal/remote"
	"github.com/critterhaus/burrow/internal/store"
	"github.com/critterhaus/burrow/internal/worker"
)

// Offline operator tools. Each command opens the store directly and runs
// against the same database the agent uses. Run them while the agent is
// stopped, or accept WAL-level contention.

func init() {
	rootCmd.AddCommand(exportCmd, importCmd, syncCmd, pruneCmd, backupCmd)
}

// openEngine wires a full engine from config for one-shot commands. The
// connectivity observer is manual and starts online: a one-shot sync
// should try the network rather than wait for a probe.
func openEngine() (*engine.Engine, store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}

	remoteClient := remote.NewHTTPClient(cfg.Remote.BaseURL, cfg.Remote.APIKey,
		time.Duration(cfg.Remote.Timeout))

	conn := connectivity.NewManual(true)
	broadcaster := worker.NewBroadcaster(db, conn, cfg.Sync.MaxRetries)
	coordinator := worker.NewSyncCoordinator(db, remoteClient, conn, broadcaster,
		time.Duration(cfg.Sync.Interval), cfg.Sync.BatchSize, cfg.Sync.MaxRetries)

	uploader, err := backup.NewUploader(cfg.Backup)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	return engine.New(db, coordinator, broadcaster, uploader), db, nil
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a full data snapshot to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, db, err := openEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		data, err := eng.ExportAllData(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), data)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Apply a data snapshot from a file or stdin",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = cmd.InOrStdin()
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return err
		}

		eng, db, err := openEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := eng.ImportData(cmd.Context(), string(data)); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "snapshot imported")
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Drain the pending sync queue once",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, db, err := openEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		result := eng.ForceSync(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "synced=%d failed=%d\n",
			result.SyncedCount, result.FailedCount)
		for _, msg := range result.Errors {
			fmt.Fprintln(cmd.ErrOrStderr(), msg)
		}
		if !result.Success {
			return fmt.Errorf("sync incomplete: %d items failed", result.FailedCount)
		}
		return nil
	},
}

var pruneDays int

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete history records older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, db, err := openEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		days := pruneDays
		if days <= 0 {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			days = cfg.Sync.RetentionDays
		}

		deleted, err := eng.ClearOldData(cmd.Context(), days)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d records\n", deleted)
		return nil
	},
}

var backupDevice string

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export all data and upload the snapshot to backup storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, db, err := openEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		key, err := eng.Backup(cmd.Context(), backupDevice)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s\n", key)
		return nil
	},
}

func init() {
	pruneCmd.Flags().IntVar(&pruneDays, "days", 0, "retention window in days (default: configured value)")
	backupCmd.Flags().StringVar(&backupDevice, "device", "default", "device id used in the backup object key")
}
