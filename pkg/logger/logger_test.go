package logger

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestLogger_LevelFiltering(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer
	l := New()
	l.entry.SetOutput(&buf)

	l.Debug("hidden %d", 1)
	req.Empty(buf.String())

	req.NoError(l.SetLevel("debug"))
	l.Debug("room %s created", "a")
	req.Contains(buf.String(), "room a created")
}

func TestLogger_UnknownLevelKeepsCurrent(t *testing.T) {
	l := New()

	require.Error(t, l.SetLevel("chatty"))
	require.Equal(t, logrus.InfoLevel, l.entry.GetLevel())
}
