package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/biscuit-auth/biscuit/cliutil"
	"github.com/biscuit-auth/biscuit/config"
	"github.com/biscuit-auth/biscuit/revocation"
	"github.com/biscuit-auth/biscuit/revocation/schedule"
	"github.com/biscuit-auth/biscuit/revocation/watch"
)

// serveFlags holds the flags for the long-running revocation-sync daemon.
// --watch-file or --repo selects which refresh mechanism keeps the
// in-memory revocation list current; when both are set, --watch-file is
// used and the git settings are ignored. Any flag left unset falls
// back to the matching field of --config's revocation section.
var serveFlags struct {
	watchFile string
	cronSpec  string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a long-lived revocation sync daemon",
	Long: `serve keeps an in-memory revocation list current for embedding
into a verifier process, either by watching a flat file for changes
(--watch-file) or by pulling a git repository on a cron schedule
(--repo/--branch/--file/--cron). Flags take precedence; any left unset are
read from the revocation.watch / revocation.git_sync sections of
--config, if present. It runs until interrupted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveFlags.watchFile, "watch-file", "", "revocation list file to watch for changes")
	serveCmd.Flags().StringVar(&revocationFlags.repo, "repo", "", "git repository URL to sync from")
	serveCmd.Flags().StringVar(&revocationFlags.branch, "branch", "", "git branch to track")
	serveCmd.Flags().StringVar(&revocationFlags.file, "file", "", "revocation list file path within the repository")
	serveCmd.Flags().StringVar(&serveFlags.cronSpec, "cron", "", "cron schedule for git-backed sync")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cliutil.SetupSignalHandler(cmd.Context())

	logger := rootLogger()
	store := revocation.NewMemoryStore()
	metrics := revocation.NewMetrics(nil)

	cfg, err := loadConfigIfPresent(cfgFile)
	if err != nil {
		return err
	}
	applyServeConfigDefaults(cfg)

	switch {
	case serveFlags.watchFile != "":
		watchCfg := watch.DefaultConfig()
		watchCfg.Path = serveFlags.watchFile
		watcher, err := watch.New(watchCfg, store, metrics, logger)
		if err != nil {
			return err
		}
		logger.Info("serving revocation list from file watch", "path", serveFlags.watchFile)
		return watcher.Run(ctx)

	case revocationFlags.repo != "":
		if revocationFlags.file == "" {
			return fmt.Errorf("--file (or revocation.git_sync.file_path in --config) is required with --repo")
		}
		syncer, err := newGitSyncer(store)
		if err != nil {
			return err
		}
		sched, err := schedule.New(syncer, serveFlags.cronSpec, logger)
		if err != nil {
			return err
		}
		if err := sched.Start(ctx); err != nil {
			return err
		}
		logger.Info("serving revocation list from git sync", "repository", revocationFlags.repo, "cron", serveFlags.cronSpec)
		<-ctx.Done()
		sched.Stop()
		return nil

	default:
		return fmt.Errorf("one of --watch-file or --repo is required (directly or via --config)")
	}
}

// applyServeConfigDefaults fills any serve flag left at its zero value from
// cfg.Revocation.Watch / cfg.Revocation.GitSync, letting an operator drive
// serve entirely from --config instead of repeating flags. A nil cfg (no
// config file present) leaves every flag, and the hardcoded fallbacks
// below, to decide the defaults.
func applyServeConfigDefaults(cfg *config.Config) {
	if cfg != nil {
		if serveFlags.watchFile == "" && cfg.Revocation.Watch != nil {
			serveFlags.watchFile = cfg.Revocation.Watch.Path
		}
		if gs := cfg.Revocation.GitSync; gs != nil {
			if revocationFlags.repo == "" {
				revocationFlags.repo = gs.Repository
			}
			if revocationFlags.branch == "" {
				revocationFlags.branch = gs.Branch
			}
			if revocationFlags.file == "" {
				revocationFlags.file = gs.FilePath
			}
			if serveFlags.cronSpec == "" {
				serveFlags.cronSpec = gs.CronSchedule
			}
		}
	}

	if revocationFlags.branch == "" {
		revocationFlags.branch = "main"
	}
	if serveFlags.cronSpec == "" {
		serveFlags.cronSpec = "*/5 * * * *"
	}
}
