package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/tau/internal/testutil"
)

func TestRun(t *testing.T) {
	t.Parallel()

	input := t.TempDir()
	testutil.CreateFiles(t, input, map[string][]byte{"a.txt": []byte("AB")})
	missing := filepath.Join(t.TempDir(), "missing")

	tests := []struct {
		name      string
		args      func(out string) []string
		wantCode  int
		wantOut   bool
		wantInErr string
	}{
		{
			name:     "directory",
			args:     func(out string) []string { return []string{input, out} },
			wantCode: exitOK,
			wantOut:  true,
		},
		{
			name:     "atomic",
			args:     func(out string) []string { return []string{"-atomic", input, out} },
			wantCode: exitOK,
			wantOut:  true,
		},
		{
			name:      "missing input",
			args:      func(out string) []string { return []string{missing, out} },
			wantCode:  exitError,
			wantInErr: "error: tau: input missing: " + missing,
		},
		{
			name:      "no arguments",
			args:      func(string) []string { return nil },
			wantCode:  exitUsage,
			wantInErr: "usage: tau",
		},
		{
			name:      "one argument",
			args:      func(string) []string { return []string{input} },
			wantCode:  exitUsage,
			wantInErr: "usage: tau",
		},
		{
			name:     "three arguments",
			args:     func(out string) []string { return []string{input, out, out} },
			wantCode: exitUsage,
		},
		{
			name:     "unknown flag",
			args:     func(out string) []string { return []string{"-nope", input, out} },
			wantCode: exitUsage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out := filepath.Join(t.TempDir(), "out.tar.xz")
			var stderr bytes.Buffer
			code := run(context.Background(), tt.args(out), &stderr)

			assert.Equal(t, tt.wantCode, code, stderr.String())
			if tt.wantInErr != "" {
				assert.Contains(t, stderr.String(), tt.wantInErr)
			}
			_, statErr := os.Stat(out)
			if !tt.wantOut {
				assert.True(t, os.IsNotExist(statErr), "no output expected")
				return
			}
			require.NoError(t, statErr)
			archive, err := os.ReadFile(out)
			require.NoError(t, err)
			records := testutil.ParseRecords(t, testutil.DecodeXZ(t, archive))
			assert.Equal(t, []testutil.Record{{Path: "a.txt", Payload: []byte("AB")}}, records)
		})
	}
}

func TestRun_SingleLineDiagnostic(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	code := run(context.Background(), []string{filepath.Join(t.TempDir(), "nope"), filepath.Join(t.TempDir(), "out")}, &stderr)

	assert.Equal(t, exitError, code)
	assert.Equal(t, 1, bytes.Count(stderr.Bytes(), []byte("\n")))
}

func TestRun_MaxFiles(t *testing.T) {
	t.Parallel()

	input := t.TempDir()
	testutil.CreateFiles(t, input, map[string][]byte{"a": nil, "b": nil})
	out := filepath.Join(t.TempDir(), "out.tar.xz")

	var stderr bytes.Buffer
	code := run(context.Background(), []string{"-max-files", "1", input, out}, &stderr)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr.String(), "traversal failure")
}

func TestRun_Help(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	assert.Equal(t, exitOK, run(context.Background(), []string{"-h"}, &stderr))
	assert.Contains(t, stderr.String(), "usage: tau")
}

func TestRun_FailureAfterProgressIsOneLine(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}

	input := t.TempDir()
	testutil.CreateFiles(t, input, map[string][]byte{"a": []byte("a"), "b": []byte("b")})
	require.NoError(t, os.Chmod(filepath.Join(input, "b"), 0o000))
	out := filepath.Join(t.TempDir(), "out.tar.xz")

	var stderr bytes.Buffer
	code := run(context.Background(), []string{input, out}, &stderr)

	assert.Equal(t, exitError, code)
	assert.Equal(t, 1, bytes.Count(stderr.Bytes(), []byte("\n")), stderr.String())
	assert.True(t, bytes.HasPrefix(stderr.Bytes(), []byte("error: tau: open failure")), stderr.String())
}

func TestErrorLabel_NotATerminal(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	assert.Equal(t, "error:", errorLabel(&buf))
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newLogger(&buf, false)
	logger.Info("quiet")
	logger.Warn("loud")
	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")

	buf.Reset()
	newLogger(&buf, true).Debug("chatty")
	assert.Contains(t, buf.String(), "chatty")
}
