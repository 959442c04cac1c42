package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ifuryst/postmigrate/internal/models"
	"github.com/ifuryst/postmigrate/internal/service"
	"github.com/ifuryst/postmigrate/internal/service/artifact"
	"github.com/ifuryst/postmigrate/internal/service/policy"
	"github.com/ifuryst/postmigrate/pkg/command"
)

var fixedTime = time.Date(2024, 3, 19, 10, 0, 0, 0, time.UTC)

func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeConfig(t *testing.T, dir, feedPath string) string {
	t.Helper()

	body := "logger:\n" +
		"  level: error\n" +
		"feed:\n" +
		"  path: " + feedPath + "\n" +
		"artifact:\n" +
		"  path: " + filepath.Join(dir, "out", "posts.json") + "\n" +
		"store:\n" +
		"  type: firestore\n"

	path := filepath.Join(dir, "postmigrate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestNormalize_MissingFeed(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, filepath.Join(dir, "missing.xml"))

	_, stderr, err := executeCommand(t, "normalize", "-c", cfg)

	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrPrecondition)
	assert.Contains(t, stderr, "Hint: A required file is missing")
}

func TestNormalize_WritesArtifactAndReportsDrops(t *testing.T) {
	dir := t.TempDir()
	feedPath := filepath.Join(dir, "feed.json")
	require.NoError(t, os.WriteFile(feedPath, []byte(`[{"title":"a"}, "oops", {"title":"c"}]`), 0644))
	cfg := writeConfig(t, dir, feedPath)

	stdout, _, err := executeCommand(t, "normalize", "-c", cfg)

	require.NoError(t, err)
	assert.Contains(t, stdout, "Normalized 2 of 3 entries")
	assert.Contains(t, stdout, "Dropped 1 entries")
	assert.Contains(t, stdout, "#2:")

	batch, err := artifact.Load(filepath.Join(dir, "out", "posts.json"))
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Count)
}

func TestNormalize_RejectsArguments(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, filepath.Join(dir, "missing.xml"))

	_, _, err := executeCommand(t, "normalize", "extra", "-c", cfg)
	require.Error(t, err)
	assert.False(t, errors.Is(err, service.ErrPrecondition))
}

func TestLoad_MissingArtifact(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, filepath.Join(dir, "missing.xml"))

	_, stderr, err := executeCommand(t, "load", "-c", cfg)

	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrPrecondition)
	assert.Contains(t, stderr, "Hint:")
}

func TestLoad_UnsupportedStore(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, filepath.Join(dir, "missing.xml"))
	batch := models.NewMigrationBatch("feed.json", []models.CanonicalPost{{ID: "1", Title: "a"}}, fixedTime)
	require.NoError(t, artifact.Save(filepath.Join(dir, "out", "posts.json"), batch))

	_, stderr, err := executeCommand(t, "load", "-c", cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store type: firestore")
	assert.NotContains(t, stderr, "Hint:")
}

func TestWithHint_SystemicFailure(t *testing.T) {
	var stderr bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetErr(&stderr)

	err := service.SystemicFailureError{Failures: 6, Attempted: 6, LastErr: errors.New("PERMISSION_DENIED")}
	returned := withHint(cmd, err)

	assert.Equal(t, err, returned)
	assert.Contains(t, stderr.String(), "Hint: The destination rejected every write")
}

func TestPrintTally(t *testing.T) {
	var stdout bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&stdout)

	printTally(cmd, &models.LoadResult{
		Failed:   6,
		Total:    10,
		Aborted:  true,
		Failures: []models.RecordFailure{{Post: models.CanonicalPost{ID: "1", Title: "Festa"}, Reason: "denied"}},
	})

	out := stdout.String()
	assert.Contains(t, out, "Failed:    6")
	assert.Contains(t, out, "Total:     10")
	assert.Contains(t, out, "Success rate: 0.0%")
	assert.Contains(t, out, "Aborted after 6 of 10 records")
	assert.Contains(t, out, "failed 1 (Festa): denied")

	stdout.Reset()
	printTally(cmd, nil)
	assert.Empty(t, stdout.String())
}

func TestPrintRestore_ResidualRisk(t *testing.T) {
	var stderr bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetErr(&stderr)

	deployer := policy.NewCommandDeployer(command.NewRunner(command.Config{
		Command: "firebase",
		Args:    []string{"deploy", "--only", "firestore:rules"},
	}, zap.NewNop()))

	report := &policy.Report{Restore: policy.RestoreOutcome{
		Attempted:     true,
		LocalRestored: true,
		DeployErr:     errors.New("quota exceeded"),
		Residual:      true,
	}}
	printRestore(cmd, report, deployer)

	out := stderr.String()
	assert.Contains(t, out, "could not be deployed: quota exceeded")
	assert.Contains(t, out, "remote access rules may still be permissive")
	assert.Contains(t, out, "`firebase deploy --only firestore:rules`")

	stderr.Reset()
	printRestore(cmd, &policy.Report{Restore: policy.RestoreOutcome{Attempted: true, LocalRestored: true}}, deployer)
	assert.Empty(t, stderr.String())
}
