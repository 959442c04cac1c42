package policy

import (
	"context"
	"fmt"

	"github.com/ifuryst/postmigrate/pkg/command"
)

// Deployer publishes the live policy file to the destination store.
type Deployer interface {
	Deploy(ctx context.Context) error
}

// CommandDeployer deploys by running an external command, e.g.
// `firebase deploy --only firestore:rules`.
type CommandDeployer struct {
	runner *command.Runner
}

func NewCommandDeployer(runner *command.Runner) *CommandDeployer {
	return &CommandDeployer{runner: runner}
}

func (d *CommandDeployer) Deploy(ctx context.Context) error {
	if _, err := d.runner.Run(ctx); err != nil {
		return fmt.Errorf("failed to deploy access policy: %w", err)
	}
	return nil
}

func (d *CommandDeployer) String() string {
	return d.runner.String()
}
