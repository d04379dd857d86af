package beecmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestExecuteUsage(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantErr  string
	}{
		{"help", []string{"--help"}, ExitOK, ""},
		{"short help", []string{"-h"}, ExitOK, ""},
		{"unknown flag", []string{"--bogus"}, ExitUsage, "unknown flag"},
		{"unexpected argument", []string{"extra"}, ExitUsage, "unknown command"},
		{"bad backend", []string{"--store", "bogus", "-e"}, ExitUsage, "invalid configuration"},
		{"bad lease mode", []string{"--store", "memory", "--lease-mode", "strict", "-e"}, ExitUsage, "lease mode"},
		{"bad workers", []string{"simulate", "--store", "memory", "--workers", "0"}, ExitUsage, "--workers"},
		{"bad flag type", []string{"--db", "zero"}, ExitUsage, "invalid argument"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := execute(t, tt.args...)
			require.Equal(t, tt.wantCode, code, stderr)
			if tt.wantCode == ExitOK {
				require.Contains(t, stdout, "Usage:")
				return
			}
			require.Contains(t, stderr, tt.wantErr)
			require.Contains(t, stderr, "Usage:")
		})
	}
}

func TestErrorsReportDrainsQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	_, err := mr.Push("err_msgs", "ABCDE", "X1Y2Z")
	require.NoError(t, err)

	code, stdout, stderr := execute(t, "--addr", mr.Addr(), "--errors")
	require.Equal(t, ExitOK, code, stderr)
	require.Equal(t, "['ABCDE', 'X1Y2Z']\n", stdout)
	require.False(t, mr.Exists("err_msgs"))

	code, stdout, _ = execute(t, "--addr", mr.Addr(), "-e")
	require.Equal(t, ExitOK, code)
	require.Equal(t, "[]\n", stdout)
}

func TestErrorsReportHonoursPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	_, err := mr.Push("hive1:err_msgs", "QQQQQ")
	require.NoError(t, err)
	t.Setenv("BEE_KEY_PREFIX", "hive1:")

	code, stdout, stderr := execute(t, "--addr", mr.Addr(), "-e")
	require.Equal(t, ExitOK, code, stderr)
	require.Equal(t, "['QQQQQ']\n", stdout)
}

func TestStoreUnreachableExitsOne(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	code, stdout, stderr := execute(t, "--addr", addr, "-e")
	require.Equal(t, ExitError, code)
	require.Empty(t, stdout)
	require.True(t, strings.HasPrefix(stderr, "bee: "), stderr)
	require.NotContains(t, stderr, "Usage:")
}

func TestStatusCommand(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("writer", "42_ABCDE"))
	_, err := mr.Push("bee_msgs", "AAAAA", "BBBBB")
	require.NoError(t, err)

	code, stdout, stderr := execute(t, "status", "--addr", mr.Addr())
	require.Equal(t, ExitOK, code, stderr)
	require.Equal(t, "writer:  42_ABCDE\npending: 2\nerrors:  0\n", stdout)
}

func TestSimulateCommand(t *testing.T) {
	t.Setenv("BEE_WRITE_DELAY_MS", "5")
	t.Setenv("BEE_READ_DELAY_MS", "5")

	code, stdout, stderr := execute(t, "simulate", "--store", "memory", "--workers", "3", "--duration", "200ms", "--log-level", "error")
	require.Equal(t, ExitOK, code, stderr)
	require.Contains(t, stdout, "run:     ")
	require.Contains(t, stdout, "writer:  (none)", "the writer releases its lease on shutdown")
}
