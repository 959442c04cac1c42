package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ifuryst/postmigrate/internal/models"
	"github.com/ifuryst/postmigrate/internal/service"
)

// Stage is a point the saga has reached.
type Stage string

const (
	StageBackedUp         Stage = "backed_up"
	StageRelaxed          Stage = "relaxed_deployed"
	StageLoading          Stage = "loading"
	StageRestored         Stage = "restored_deployed"
	StageRestoreAttempted Stage = "restore_attempted"
	StageDone             Stage = "done"
)

// restoreTimeout bounds the compensating deploy, which runs even after the
// caller's context has been cancelled.
const restoreTimeout = 2 * time.Minute

type Paths struct {
	Live       string
	Backup     string
	Permissive string
}

// LoadFunc is the work that needs the relaxed policy.
type LoadFunc func(ctx context.Context) (*models.LoadResult, error)

// RestoreOutcome describes the compensating action. Its failures are recorded
// here rather than replacing the saga's verdict.
type RestoreOutcome struct {
	Attempted     bool
	LocalRestored bool
	// RemovedRelaxed is set when there was no original policy and the relaxed
	// copy was deleted instead of restored.
	RemovedRelaxed bool
	DeployErr      error
	// Residual means the remote enforcement layer may still be relaxed.
	Residual bool
}

type Report struct {
	Success    bool
	BackedUp   bool
	Relaxed    bool
	Stages     []Stage
	LoadResult *models.LoadResult
	LoadErr    error
	Restore    RestoreOutcome
}

func (r *Report) enter(stage Stage) {
	r.Stages = append(r.Stages, stage)
}

// Saga relaxes the destination's write policy for the duration of a load and
// always puts the original back.
type Saga struct {
	paths    Paths
	deployer Deployer
	logger   *zap.Logger
}

func NewSaga(paths Paths, deployer Deployer, logger *zap.Logger) *Saga {
	return &Saga{
		paths:    paths,
		deployer: deployer,
		logger:   logger,
	}
}

// Run executes backup -> relax -> deploy -> load -> restore -> deploy. Once
// the backup step has run, restoration happens on every exit path, panics
// included. Success means load returned without error; partial record
// failures inside the LoadResult still count as success.
func (s *Saga) Run(ctx context.Context, load LoadFunc) (report *Report, err error) {
	report = &Report{}

	ok, err := fileExists(s.paths.Permissive)
	if err != nil {
		return report, err
	}
	if !ok {
		return report, service.PreconditionError{Resource: "permissive policy template", Path: s.paths.Permissive}
	}

	// A backup only survives a run that was interrupted or whose restore
	// deploy failed. The live file may then be the relaxed policy, so
	// backing it up again would destroy the only copy of the original.
	stale, err := fileExists(s.paths.Backup)
	if err != nil {
		return report, err
	}
	if stale {
		s.logger.Error("Leftover access policy backup found, refusing to start",
			zap.String("backup", s.paths.Backup),
			zap.String("remediation", fmt.Sprintf("copy %s over %s, redeploy it and delete the backup",
				s.paths.Backup, s.paths.Live)))
		return report, service.PreconditionError{
			Resource: "access policy backup",
			Path:     s.paths.Backup,
			Problem:  "left over from an earlier run",
		}
	}

	guard, err := s.acquire(report)
	if err != nil {
		return report, err
	}

	completed := false
	defer func() {
		if !completed && err == nil {
			// unwinding from a panic
			err = errors.New("load did not complete")
		}
		if restoreErr := guard.release(ctx, completed); restoreErr != nil {
			err = errors.Join(err, restoreErr)
		}
		report.enter(StageDone)
		report.Success = err == nil
		s.logOutcome(report, err)
	}()

	if err := guard.relax(ctx); err != nil {
		return report, err
	}

	report.enter(StageLoading)
	s.logger.Info("Running load under relaxed policy")
	report.LoadResult, report.LoadErr = load(ctx)
	if report.LoadErr != nil {
		return report, fmt.Errorf("load failed: %w", report.LoadErr)
	}

	completed = true
	return report, nil
}

// acquire copies the live policy to the backup location. A missing live
// policy means there is nothing to protect.
func (s *Saga) acquire(report *Report) (*policyGuard, error) {
	guard := &policyGuard{saga: s, report: report}

	exists, err := fileExists(s.paths.Live)
	if err != nil {
		return nil, err
	}

	if !exists {
		s.logger.Warn("No live access policy found, skipping backup", zap.String("path", s.paths.Live))
		return guard, nil
	}

	if err := copyFile(s.paths.Live, s.paths.Backup); err != nil {
		return nil, fmt.Errorf("failed to back up access policy: %w", err)
	}

	guard.backedUp = true
	report.BackedUp = true
	report.enter(StageBackedUp)
	s.logger.Info("Access policy backed up",
		zap.String("live", s.paths.Live),
		zap.String("backup", s.paths.Backup))

	return guard, nil
}

func (s *Saga) logOutcome(report *Report, err error) {
	if err != nil {
		s.logger.Error("Migration saga failed",
			zap.Error(err),
			zap.Bool("residual_risk", report.Restore.Residual))
		return
	}
	s.logger.Info("Migration saga completed", zap.Bool("residual_risk", report.Restore.Residual))
}

func (s *Saga) remediation() string {
	if str, ok := s.deployer.(fmt.Stringer); ok {
		return fmt.Sprintf("verify %s holds the original policy and run `%s` manually", s.paths.Live, str.String())
	}
	return fmt.Sprintf("verify %s holds the original policy and redeploy it manually", s.paths.Live)
}

// policyGuard owns the relaxed state; release undoes whatever relax did.
type policyGuard struct {
	saga     *Saga
	report   *Report
	backedUp bool
	touched  bool
	released bool
}

func (g *policyGuard) relax(ctx context.Context) error {
	s := g.saga

	// Marked before the copy so a failure halfway still gets compensated.
	g.touched = true
	if err := copyFile(s.paths.Permissive, s.paths.Live); err != nil {
		return fmt.Errorf("failed to install permissive policy: %w", err)
	}

	s.logger.Warn("Permissive access policy installed, deploying",
		zap.String("live", s.paths.Live))

	if err := s.deployer.Deploy(ctx); err != nil {
		return fmt.Errorf("failed to deploy permissive policy: %w", err)
	}

	g.report.Relaxed = true
	g.report.enter(StageRelaxed)
	return nil
}

// release runs the compensating action. Only a failure to restore the local
// file is returned; a failed redeploy is recorded as residual risk.
func (g *policyGuard) release(ctx context.Context, completed bool) error {
	if g.released {
		return nil
	}
	g.released = true

	s := g.saga
	outcome := &g.report.Restore

	if !g.touched {
		if g.backedUp {
			// Live policy was never changed
			if err := removeFile(s.paths.Backup); err != nil {
				s.logger.Warn("Failed to remove unused policy backup", zap.Error(err))
			}
		}
		return nil
	}

	outcome.Attempted = true
	if !completed {
		g.report.enter(StageRestoreAttempted)
	}

	if !g.backedUp {
		if err := removeFile(s.paths.Live); err != nil {
			return fmt.Errorf("failed to remove relaxed policy: %w", err)
		}
		outcome.RemovedRelaxed = true
		outcome.Residual = true
		s.logger.Error("There was no original access policy to restore; the relaxed policy file was removed "+
			"but the deployed rules may still be permissive",
			zap.String("live", s.paths.Live),
			zap.String("remediation", s.remediation()))
		return nil
	}

	exists, err := fileExists(s.paths.Backup)
	if err != nil {
		return fmt.Errorf("failed to restore access policy: %w", err)
	}
	if !exists {
		outcome.Residual = true
		return service.PreconditionError{Resource: "access policy backup", Path: s.paths.Backup}
	}

	if err := copyFile(s.paths.Backup, s.paths.Live); err != nil {
		outcome.Residual = true
		return fmt.Errorf("failed to restore access policy: %w", err)
	}
	outcome.LocalRestored = true
	s.logger.Info("Original access policy restored locally", zap.String("live", s.paths.Live))

	// The caller's context may already be cancelled; the restore deploy must
	// still go out.
	deployCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), restoreTimeout)
	defer cancel()

	if err := s.deployer.Deploy(deployCtx); err != nil {
		outcome.DeployErr = err
		outcome.Residual = true
		s.logger.Error("Failed to deploy restored access policy; remote rules may still be permissive",
			zap.Error(err),
			zap.String("remediation", s.remediation()))
		return nil
	}

	if completed {
		g.report.enter(StageRestored)
	}
	if err := removeFile(s.paths.Backup); err != nil {
		s.logger.Warn("Failed to remove policy backup", zap.Error(err))
	}
	s.logger.Info("Original access policy deployed")
	return nil
}
