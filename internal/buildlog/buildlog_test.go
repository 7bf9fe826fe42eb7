package buildlog

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// saveAndRestoreState mirrors the teacher's debug package test helper: save
// the package-level mutable state and return a cleanup to restore it, since
// SetOutput/SetVerbose are process-global.
func saveAndRestoreState() func() {
	originalOutput := output
	originalVerbose := verbose
	return func() {
		output = originalOutput
		verbose = originalVerbose
	}
}

func TestLogfGatedOnEnabled(t *testing.T) {
	defer saveAndRestoreState()()
	os.Unsetenv("RKBUILD_DEBUG")

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Logf("GRAPH", "node %s stale", "texture:foo")
	require.Empty(t, buf.String())

	SetVerbose(true)
	Logf("GRAPH", "node %s stale", "texture:foo")
	require.Equal(t, "[GRAPH] node texture:foo stale\n", buf.String())
}

func TestEnabledRespectsEnvVar(t *testing.T) {
	defer saveAndRestoreState()()
	SetVerbose(false)

	os.Unsetenv("RKBUILD_DEBUG")
	require.False(t, Enabled())

	os.Setenv("RKBUILD_DEBUG", "1")
	defer os.Unsetenv("RKBUILD_DEBUG")
	require.True(t, Enabled())
}

func TestFaultLogsUnconditionally(t *testing.T) {
	defer saveAndRestoreState()()
	SetVerbose(false)

	var buf bytes.Buffer
	SetOutput(&buf)

	Fault("cache save failed: %v", os.ErrNotExist)
	require.Equal(t, "[FAULT] cache save failed: file does not exist\n", buf.String())
}

func TestCategoryHelpersPrefixTheirOwnTag(t *testing.T) {
	defer saveAndRestoreState()()
	SetVerbose(true)

	var buf bytes.Buffer
	SetOutput(&buf)

	Facade("initialized at %s", "/data")
	require.Equal(t, "[FACADE] initialized at /data\n", buf.String())
}

func TestInitLogFileWritesUnderGivenDir(t *testing.T) {
	defer saveAndRestoreState()()
	dir := t.TempDir()

	path, err := InitLogFile(dir)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.NoError(t, Close())
}
