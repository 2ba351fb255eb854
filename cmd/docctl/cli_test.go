package main

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCmd() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{}
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetContext(context.Background())
	return cmd, &out, &errOut
}

func TestVersionLatest(t *testing.T) {
	cmd, out, errOut := newTestCmd()

	require.NoError(t, runVersionLatest(cmd, []string{"1.9", "1.10", "abc", "1.2"}))
	assert.Equal(t, "1.10\n", out.String())
	assert.Contains(t, errOut.String(), "abc")
}

func TestVersionNext(t *testing.T) {
	cmd, out, _ := newTestCmd()

	require.NoError(t, runVersionNext(cmd, []string{"2.9"}))
	assert.Equal(t, "major: 3.0\nminor: 2.10\n", out.String())

	cmd, _, _ = newTestCmd()
	assert.Error(t, runVersionNext(cmd, []string{"two.nine"}))
}

func TestMigrate(t *testing.T) {
	logger = zap.NewNop()
	sqlitePath = filepath.Join(t.TempDir(), "docctl.db")
	defer func() { sqlitePath = "" }()

	cmd, out, _ := newTestCmd()
	require.NoError(t, runMigrate(cmd, nil))
	require.NoError(t, runMigrate(cmd, nil), "migrate is idempotent")
	assert.Contains(t, out.String(), "schema ready")

	db, err := sql.Open("sqlite", sqlitePath)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name IN ('issue_table', 'doc_control_maintable', 'bulletin')`).Scan(&n))
	assert.Equal(t, 3, n)
}
