package version

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func stampBuild(t *testing.T) {
	t.Helper()
	originalVersion := Version
	originalCommit := Commit
	originalDate := Date
	t.Cleanup(func() {
		Version = originalVersion
		Commit = originalCommit
		Date = originalDate
	})

	Version = "1.2.3"
	Commit = "abc123"
	Date = "2026-02-18"
}

func TestStringIncludesBuildMetadata(t *testing.T) {
	stampBuild(t)

	got := String()
	require.Contains(t, got, "ringbell 1.2.3")
	require.Contains(t, got, "commit=abc123")
	require.Contains(t, got, "date=2026-02-18")
	require.Contains(t, got, "go=")
}

func TestVersionCommandPrintsString(t *testing.T) {
	stampBuild(t)

	root := &cobra.Command{Use: "ringbell"}
	AttachCobraVersionCommand(root)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	require.Equal(t, String()+"\n", out.String())
}
