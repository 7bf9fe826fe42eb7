package bpath

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsOrdinaryPaths(t *testing.T) {
	ok := []string{
		"shaders/basic.rpl",
		"a/b/c.txt",
		"data_2/file-name.v1.dat",
		"weird but ok (name)#1.txt",
	}
	for _, p := range ok {
		n, err := NormalizeAndValidate(p, Options{})
		require.NoErrorf(t, err, "expected %q to validate", p)
		require.Equal(t, p, n)
	}
}

func TestValidateRejectsBackslash(t *testing.T) {
	// A backslash survives in the input but Normalize turns it into '/'
	// before validation runs, so run Validate directly on an un-normalized
	// string to exercise the rejection path documented in spec.md §8
	// Invariant 5.
	err := Validate(`a\b`, Options{})
	require.Error(t, err)
}

func TestValidateRejectsReservedNames(t *testing.T) {
	for _, p := range []string{"con", "con.txt", "a/prn/b.txt", "com1.dat", "lpt9"} {
		_, err := NormalizeAndValidate(p, Options{})
		require.Errorf(t, err, "expected %q to be rejected", p)
	}
}

func TestValidateRejectsTrailingSpaceOrDot(t *testing.T) {
	for _, p := range []string{"file.txt ", "file.txt.", "dir /x.txt"} {
		_, err := NormalizeAndValidate(p, Options{})
		require.Errorf(t, err, "expected %q to be rejected", p)
	}
}

func TestValidateRejectsEmptyComponentAndDotDot(t *testing.T) {
	for _, p := range []string{"a//b.txt", "a/../b.txt", "../escape.txt"} {
		_, err := NormalizeAndValidate(p, Options{})
		require.Errorf(t, err, "expected %q to be rejected", p)
	}
}

func TestValidateAllowsParentRewindWhenOptedIn(t *testing.T) {
	n, err := NormalizeAndValidate("a/../b.txt", Options{AllowParentRewind: true})
	require.NoError(t, err)
	require.Equal(t, "a/../b.txt", n)
}

func TestValidateRejectsDisallowedCharacters(t *testing.T) {
	for _, p := range []string{"file$.txt", "file:name.txt", "file*.txt", "UPPER.TXT"} {
		// UPPER.TXT is lowercased by Normalize before validation, so run it
		// through the combined helper to exercise the real call path.
		_, err := NormalizeAndValidate(p, Options{})
		if p == "UPPER.TXT" {
			require.NoError(t, err)
			continue
		}
		require.Errorf(t, err, "expected %q to be rejected", p)
	}
}

func TestFixBrokenPathCollapsesSpaceArtifact(t *testing.T) {
	require.Equal(t, "a/b/c.txt", FixBrokenPath(`a\ b/c.txt`))
}
