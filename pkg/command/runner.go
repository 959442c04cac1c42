package command

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Runner executes one external command, e.g. the CLI that publishes access
// rules to the destination store.
type Runner struct {
	logger *zap.Logger
	name   string
	args   []string
	dir    string
	env    []string
}

// Config describes the command a Runner executes.
type Config struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Dir     string   `yaml:"dir"`
	Env     []string `yaml:"env"`
}

func NewRunner(config Config, logger *zap.Logger) *Runner {
	return &Runner{
		logger: logger,
		name:   config.Command,
		args:   config.Args,
		dir:    config.Dir,
		env:    config.Env,
	}
}

// Run blocks until the command exits. A non-zero exit is an error carrying the
// combined output.
func (r *Runner) Run(ctx context.Context) (string, error) {
	if r.name == "" {
		return "", fmt.Errorf("no command configured")
	}

	cmd := exec.CommandContext(ctx, r.name, r.args...)
	cmd.Dir = r.dir
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}

	r.logger.Info("Running command",
		zap.String("command", r.String()),
		zap.String("dir", r.dir))

	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("command %q failed: %s, output: %s", r.String(), err, strings.TrimSpace(string(output)))
	}

	r.logger.Debug("Command finished",
		zap.String("command", r.String()),
		zap.String("output", string(output)))

	return string(output), nil
}

// String returns the command line as it would be typed.
func (r *Runner) String() string {
	return strings.TrimSpace(r.name + " " + strings.Join(r.args, " "))
}
