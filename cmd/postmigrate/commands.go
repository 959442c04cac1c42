package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ifuryst/postmigrate/internal/config"
	"github.com/ifuryst/postmigrate/internal/models"
	"github.com/ifuryst/postmigrate/internal/service"
	"github.com/ifuryst/postmigrate/internal/service/artifact"
	"github.com/ifuryst/postmigrate/internal/service/feed"
	"github.com/ifuryst/postmigrate/internal/service/loader"
	"github.com/ifuryst/postmigrate/internal/service/normalizer"
	"github.com/ifuryst/postmigrate/internal/service/policy"
	"github.com/ifuryst/postmigrate/internal/service/store"
	"github.com/ifuryst/postmigrate/pkg/command"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Convert the legacy feed into the canonical post artifact",
	Args:  cobra.NoArgs,
	RunE:  runNormalize,
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Write the post artifact to the destination store",
	Long:  `Writes the post artifact to the destination store without touching the access policy.`,
	Args:  cobra.NoArgs,
	RunE:  runLoad,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Relax the access policy, load the artifact and restore the policy",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func runNormalize(cmd *cobra.Command, _ []string) error {
	cfg, appLogger, err := setup()
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	entries, err := feed.ReadFile(cfg.Feed.Path)
	if err != nil {
		return withHint(cmd, err)
	}
	appLogger.Info("Legacy feed read", zap.String("path", cfg.Feed.Path), zap.Int("entries", len(entries)))

	result := normalizer.NewNormalizer(appLogger).Normalize(entries)

	batch := models.NewMigrationBatch(cfg.Feed.Path, result.Posts, time.Now().UTC())
	if err := artifact.Save(cfg.Artifact.Path, batch); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Normalized %d of %d entries into %s\n", len(result.Posts), len(entries), cfg.Artifact.Path)
	if len(result.Dropped) > 0 {
		fmt.Fprintf(out, "Dropped %d entries:\n", len(result.Dropped))
		for _, d := range result.Dropped {
			fmt.Fprintf(out, "  #%d: %s\n", d.Position, d.Reason)
		}
	}
	return nil
}

func runLoad(cmd *cobra.Command, _ []string) error {
	cfg, appLogger, err := setup()
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	ctx, cancel := signalContext()
	defer cancel()

	load, closeStore, err := prepareLoad(ctx, cfg, appLogger)
	if err != nil {
		return withHint(cmd, err)
	}
	defer closeStore()

	result, err := load(ctx)
	printTally(cmd, result)
	if err != nil {
		return withHint(cmd, err)
	}
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, appLogger, err := setup()
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	ctx, cancel := signalContext()
	defer cancel()

	load, closeStore, err := prepareLoad(ctx, cfg, appLogger)
	if err != nil {
		return withHint(cmd, err)
	}
	defer closeStore()

	deployer := policy.NewCommandDeployer(command.NewRunner(cfg.Deploy, appLogger))
	saga := policy.NewSaga(policy.Paths{
		Live:       cfg.Policy.LivePath,
		Backup:     cfg.Policy.BackupPath,
		Permissive: cfg.Policy.PermissivePath,
	}, deployer, appLogger)

	report, err := saga.Run(ctx, load)
	printTally(cmd, report.LoadResult)
	printRestore(cmd, report, deployer)
	if err != nil {
		return withHint(cmd, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Migration completed")
	return nil
}

// prepareLoad reads the artifact and opens the store. The artifact is read
// first so a missing file fails before any connection or policy change.
func prepareLoad(ctx context.Context, cfg *config.Config, appLogger *zap.Logger) (policy.LoadFunc, func(), error) {
	batch, err := artifact.Load(cfg.Artifact.Path)
	if err != nil {
		return nil, nil, err
	}

	delay, err := cfg.Loader.PacingDelay()
	if err != nil {
		return nil, nil, err
	}

	writer, err := store.NewWriter(ctx, cfg.Store, appLogger)
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() {
		if err := writer.Close(); err != nil {
			appLogger.Error("Failed to close store", zap.Error(err))
		}
	}

	l := loader.NewLoader(loader.Config{
		Collection:       cfg.Loader.Collection,
		FailureThreshold: cfg.Loader.FailureThreshold,
		TitleWidth:       cfg.Loader.TitleWidth,
	}, writer, loader.NewPacer(delay), appLogger)

	load := func(ctx context.Context) (*models.LoadResult, error) {
		return l.Load(ctx, batch.Posts)
	}
	return load, closeStore, nil
}

func printTally(cmd *cobra.Command, result *models.LoadResult) {
	if result == nil {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Succeeded: %d\n", result.Succeeded)
	fmt.Fprintf(out, "Failed:    %d\n", result.Failed)
	fmt.Fprintf(out, "Total:     %d\n", result.Total)
	fmt.Fprintf(out, "Success rate: %.1f%%\n", result.SuccessRate())
	if result.Aborted {
		fmt.Fprintf(out, "Aborted after %d of %d records\n", result.Attempted(), result.Total)
	}
	for _, f := range result.Failures {
		fmt.Fprintf(out, "  failed %s (%s): %s\n", f.Post.ID, f.Post.Title, f.Reason)
	}
}

func printRestore(cmd *cobra.Command, report *policy.Report, deployer *policy.CommandDeployer) {
	out := cmd.ErrOrStderr()
	restore := report.Restore
	if !restore.Attempted {
		return
	}
	if restore.DeployErr != nil {
		fmt.Fprintf(out, "WARNING: the restored access policy could not be deployed: %v\n", restore.DeployErr)
	}
	if restore.RemovedRelaxed {
		fmt.Fprintln(out, "WARNING: there was no original access policy; the relaxed policy file was removed")
	}
	if restore.Residual {
		fmt.Fprintf(out, "WARNING: remote access rules may still be permissive. Redeploy manually with `%s`\n", deployer.String())
	}
}

func withHint(cmd *cobra.Command, err error) error {
	if hint := service.Hint(err); hint != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Hint: %s\n", hint)
	}
	return err
}
