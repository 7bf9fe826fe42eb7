//go:build leaktests
// +build leaktests

package rkwatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestStopLeavesNoGoroutines mirrors the teacher's build-tagged leak tests
// (internal/indexing/leak_test.go): Start spins up processEvents, and Stop
// must tear it down completely, not just stop delivering events.
func TestStopLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	calls := 0
	w, err := New(10*time.Millisecond, func() { calls++ })
	require.NoError(t, err)
	require.NoError(t, w.Start(root))
	require.NoError(t, w.Stop())
}
