package corrector

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gcode-corrector/pkg/errors"
)

func TestSplitJoinLines(t *testing.T) {
	cases := []string{
		"",
		"\n",
		"G1 X1",
		"G1 X1\n",
		"G1 X1\r\nG1 X2\r\n",
		"G1 X1\r\nG1 X2",
		"a\n\n\nb\n",
		"mixed\r\nendings\n",
	}
	for _, in := range cases {
		lines, nl := SplitLines([]byte(in))
		assert.Equal(t, in, string(JoinLines(lines, nl)), "%q", in)
	}

	lines, nl := SplitLines([]byte("a\r\nb\r\n"))
	assert.Equal(t, []string{"a\r", "b\r"}, lines)
	assert.True(t, nl)
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "/tmp/part_corrected.gcode", OutputPath("/tmp/part.gcode"))
	assert.Equal(t, "part_corrected", OutputPath("part"))
}

func TestCorrectFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "part.gcode")
	in := strings.Join([]string{"G1 X10 Y0 E1", "G1 X10 Y10 E2", "G1 X0 Y10 E3"}, "\r\n") + "\r\n"
	require.NoError(t, os.WriteFile(src, []byte(in), 0o640))

	c, err := New(exampleOptions())
	require.NoError(t, err)

	dst := OutputPath(src)
	res, err := c.CorrectFile(context.Background(), src, dst, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Stats.Corrected)

	out, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(out), "\r\n"))
	assert.NotContains(t, strings.ReplaceAll(string(out), "\r\n", ""), "\n", "every line keeps CRLF")
	assert.Contains(t, string(out), "G92 E2.0000000\r\n")

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temporary files left behind")
}

func TestCorrectFileInPlace(t *testing.T) {
	src := filepath.Join(t.TempDir(), "part.gcode")
	require.NoError(t, os.WriteFile(src, []byte("G1 X10 Y0 E1\nG1 X10 Y10 E2"), 0o644))

	c, err := New(exampleOptions())
	require.NoError(t, err)
	_, err = c.CorrectFile(context.Background(), src, src, nil)
	require.NoError(t, err)

	out, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.False(t, strings.HasSuffix(string(out), "\n"), "no final newline added")
	assert.Contains(t, string(out), "G92")
}

func TestCorrectFileReadError(t *testing.T) {
	c, err := New(DefaultOptions())
	require.NoError(t, err)
	dir := t.TempDir()

	_, err = c.CorrectFile(context.Background(), filepath.Join(dir, "missing.gcode"), filepath.Join(dir, "out.gcode"), nil)
	assert.True(t, errors.Is(err, errors.ErrIORead))

	_, err = c.CorrectFile(context.Background(), dir, filepath.Join(dir, "out.gcode"), nil)
	assert.True(t, errors.Is(err, errors.ErrIORead))
}

func TestCorrectFileWriteErrorLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "part.gcode")
	require.NoError(t, os.WriteFile(src, []byte("G1 X10 E1\n"), 0o644))

	c, err := New(DefaultOptions())
	require.NoError(t, err)
	dst := filepath.Join(dir, "missing-dir", "out.gcode")
	_, err = c.CorrectFile(context.Background(), src, dst, nil)
	assert.True(t, errors.Is(err, errors.ErrIOWrite))
	_, statErr := os.Stat(dst)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCorrectFileCanceledKeepsDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "part.gcode")
	dst := filepath.Join(dir, "out.gcode")
	require.NoError(t, os.WriteFile(src, []byte("G1 X10 E1\n"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("previous"), 0o644))

	c, err := New(DefaultOptions())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.CorrectFile(ctx, src, dst, nil)
	assert.True(t, errors.Is(err, errors.ErrRunCanceled))

	he, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, src, he.File)

	out, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(out))
}

func TestWriteFileAtomicReplaces(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.gcode")
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0o644))
	require.NoError(t, WriteFileAtomic(context.Background(), dst, []byte("new"), 0o600))
	out, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "new", string(out))
}
