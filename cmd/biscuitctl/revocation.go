package main

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/biscuit-auth/biscuit/revocation"
)

var revocationCmd = &cobra.Command{
	Use:   "revocation",
	Short: "Inspect and update a revocation store",
}

var revocationFlags struct {
	store string
	id    string

	repo   string
	branch string
	file   string
}

var revocationCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether a unique revocation id is revoked",
	RunE:  runRevocationCheck,
}

var revocationAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a unique revocation id to a SQLite revocation store",
	RunE:  runRevocationAdd,
}

var revocationRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove a unique revocation id from a SQLite revocation store",
	RunE:  runRevocationRemove,
}

var revocationSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull a revocation list from a git repository once and report the result",
	Long: `sync clones (or pulls) the configured git repository and prints the
number of revoked ids found in the configured file. It does not install
any long-running watcher; pair it with cron or a process supervisor for
recurring syncs, or use the revocation/schedule package directly from a
long-running verifier process.`,
	RunE: runRevocationSync,
}

func init() {
	rootCmd.AddCommand(revocationCmd)
	revocationCmd.AddCommand(revocationCheckCmd, revocationAddCmd, revocationRemoveCmd, revocationSyncCmd)

	revocationCmd.PersistentFlags().StringVar(&revocationFlags.store, "store", "", "SQLite revocation store path")
	revocationCmd.PersistentFlags().StringVar(&revocationFlags.id, "id", "", "hex-encoded unique revocation id")

	revocationSyncCmd.Flags().StringVar(&revocationFlags.repo, "repo", "", "git repository URL")
	revocationSyncCmd.Flags().StringVar(&revocationFlags.branch, "branch", "main", "git branch")
	revocationSyncCmd.Flags().StringVar(&revocationFlags.file, "file", "", "revocation list file path within the repository")
}

func openSQLiteStore() (*revocation.SQLiteStore, error) {
	if revocationFlags.store == "" {
		return nil, fmt.Errorf("--store is required")
	}
	return revocation.NewSQLiteStore(revocationFlags.store)
}

func decodeID() ([]byte, error) {
	if revocationFlags.id == "" {
		return nil, fmt.Errorf("--id is required")
	}
	return hex.DecodeString(revocationFlags.id)
}

func runRevocationCheck(cmd *cobra.Command, args []string) error {
	store, err := openSQLiteStore()
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := decodeID()
	if err != nil {
		return fmt.Errorf("invalid --id: %w", err)
	}

	revoked, err := store.IsRevoked(cmd.Context(), id)
	if err != nil {
		return err
	}
	if revoked {
		fmt.Println("revoked")
	} else {
		fmt.Println("not revoked")
	}
	return nil
}

func runRevocationAdd(cmd *cobra.Command, args []string) error {
	store, err := openSQLiteStore()
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := decodeID()
	if err != nil {
		return fmt.Errorf("invalid --id: %w", err)
	}

	if err := store.Revoke(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

func runRevocationRemove(cmd *cobra.Command, args []string) error {
	store, err := openSQLiteStore()
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := decodeID()
	if err != nil {
		return fmt.Errorf("invalid --id: %w", err)
	}

	if err := store.Unrevoke(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

func runRevocationSync(cmd *cobra.Command, args []string) error {
	if revocationFlags.repo == "" || revocationFlags.file == "" {
		return fmt.Errorf("--repo and --file are required")
	}

	store := revocation.NewMemoryStore()
	syncer, err := newGitSyncer(store)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := syncer.SyncOnce(ctx); err != nil {
		return err
	}

	fmt.Printf("synced %d revoked ids from %s\n", len(store.Snapshot()), revocationFlags.repo)
	return nil
}
