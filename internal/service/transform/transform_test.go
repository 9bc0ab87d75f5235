package transform

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duck-elt/internal/domain"
	"duck-elt/internal/testutil"
)

var testOptions = Options{
	Executable:  "dbt",
	ProjectDir:  "./dbt",
	ProfilesDir: ".",
}

func TestTransformer_Command(t *testing.T) {
	logger, _ := testutil.CaptureLogger()
	tr := NewTransformer(testOptions, &testutil.MockCommandRunner{}, logger)

	assert.Equal(t, domain.Command{
		Name: "dbt",
		Args: []string{"run", "--no-use-colors"},
		Dir:  "./dbt",
		Env:  []string{"DBT_PROFILES_DIR=."},
	}, tr.Command())
}

func TestTransformer_Success(t *testing.T) {
	logger, logs := testutil.CaptureLogger()
	runner := &testutil.MockCommandRunner{
		RunFn: func(context.Context, domain.Command) (domain.CommandResult, error) {
			return domain.CommandResult{Stdout: "Completed successfully\nDone. PASS=2 WARN=0 ERROR=0"}, nil
		},
	}

	res, err := NewTransformer(testOptions, runner, logger).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "DBT models run successfully", res.Message)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Stdout, "PASS=2")
	require.Len(t, runner.Commands, 1, "dbt runs exactly once")
	assert.Contains(t, logs.String(), "PASS=2")
}

func TestTransformer_FailureCarriesOutput(t *testing.T) {
	logger, logs := testutil.CaptureLogger()
	runner := &testutil.MockCommandRunner{
		RunFn: func(context.Context, domain.Command) (domain.CommandResult, error) {
			return domain.CommandResult{
				ExitCode: 1,
				Stdout:   "Database Error in model customer_orders",
				Stderr:   "Catalog Error: Table with name orders does not exist!",
			}, errors.New("exit status 1")
		},
	}

	res, err := NewTransformer(testOptions, runner, logger).Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)

	var rerr *domain.RunnerError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 1, rerr.ExitCode)
	assert.Contains(t, rerr.Stdout, "customer_orders")
	assert.Contains(t, rerr.Stderr, "Catalog Error")
	assert.Len(t, runner.Commands, 1, "no retry after failure")

	out := logs.String()
	assert.Contains(t, out, "error running dbt models")
	assert.Contains(t, out, "Database Error in model customer_orders")
	assert.Contains(t, out, "Catalog Error")
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunner_CapturesOutputAndExitCode(t *testing.T) {
	requireShell(t)

	res, err := ExecRunner{}.Run(context.Background(), domain.Command{
		Name: "sh",
		Args: []string{"-c", "echo to-stdout; echo to-stderr 1>&2; exit 3"},
	})
	require.Error(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "to-stdout\n", res.Stdout)
	assert.Equal(t, "to-stderr\n", res.Stderr)
}

func TestExecRunner_DirAndEnv(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dbt_project.yml"), []byte("name: shop\n"), 0o644))

	res, err := ExecRunner{}.Run(context.Background(), domain.Command{
		Name: "sh",
		Args: []string{"-c", `cat dbt_project.yml; echo "profiles=$DBT_PROFILES_DIR"`},
		Dir:  dir,
		Env:  []string{"DBT_PROFILES_DIR=."},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "name: shop\nprofiles=.\n", res.Stdout)
}

func TestExecRunner_MissingExecutable(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), domain.Command{Name: "definitely-not-dbt-xyz"})
	require.Error(t, err)
}
