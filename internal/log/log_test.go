package log

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLoggerBeforeInit(t *testing.T) {
	l := GetLogger()
	require.NotNil(t, l)
	assert.True(t, l.IsInfoEnabled())
	assert.False(t, l.IsDebugEnabled())
}

func TestPatternFormatter(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithOutput(&LoggerConfig{
		Level:   "debug",
		Pattern: "[%level] %field: %msg\n",
	}, &buf)
	require.NoError(t, err)

	l.WithFields(map[string]interface{}{"port": 7, "kind": "udp"}).Debugf("reply %d bytes", 42)

	assert.Equal(t, "[debug] kind=udp,port=7: reply 42 bytes\n", buf.String())
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithOutput(&LoggerConfig{Level: "warn", Pattern: "%msg\n"}, &buf)
	require.NoError(t, err)

	l.Info("hidden")
	l.Trace("hidden")
	l.WithError(errors.New("boom")).Warn("shown")

	assert.Equal(t, "shown\n", buf.String())
	assert.False(t, l.IsTraceEnabled())
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&LoggerConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestBuildOutput(t *testing.T) {
	var stdout bytes.Buffer

	t.Run("DefaultsToStdout", func(t *testing.T) {
		out, err := buildOutput(nil, &stdout)
		require.NoError(t, err)
		assert.Equal(t, 1, out.Len())
	})

	t.Run("FileAppender", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "losenet.log")
		out, err := buildOutput([]AppenderConfig{
			{Type: AppenderStdout},
			{Type: AppenderFile, Options: map[string]interface{}{
				"filename":    path,
				"max_size":    1,
				"max_backups": 2,
			}},
		}, &stdout)
		require.NoError(t, err)
		assert.Equal(t, 2, out.Len())

		l, err := NewWithOutput(&LoggerConfig{Pattern: "%msg\n"}, out)
		require.NoError(t, err)
		l.Info("to file")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "to file\n", string(data))
	})

	t.Run("FileAppenderRequiresFilename", func(t *testing.T) {
		_, err := buildOutput([]AppenderConfig{{Type: AppenderFile}}, &stdout)
		assert.Error(t, err)
	})

	t.Run("UnknownType", func(t *testing.T) {
		_, err := buildOutput([]AppenderConfig{{Type: "kafka"}}, &stdout)
		assert.ErrorContains(t, err, "kafka")
	})
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }

func TestMultiWriterKeepsWritingAfterError(t *testing.T) {
	var buf bytes.Buffer
	m := NewMultiWriter().Add(failingWriter{}).Add(&buf)

	n, err := m.Write([]byte("frame"))
	assert.Error(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "frame", buf.String())
}
