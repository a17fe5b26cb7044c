package provdlog

import (
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func fire(t *testing.T, l *ProvdLog, message string) {
	t.Helper()

	require.NoError(t, l.Fire(&logrus.Entry{
		Time:    time.Now(),
		Level:   logrus.InfoLevel,
		Message: message,
	}))
}

func TestKeepsEntries(t *testing.T) {
	l := New()

	require.Empty(t, l.Entries())

	fire(t, l, "first")
	fire(t, l, "second")

	entries := l.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, "first", entries[0].Message)
	require.Equal(t, "second", entries[1].Message)
	require.Equal(t, "info", entries[0].Level)
}

func TestTrimsToCapacity(t *testing.T) {
	l := New()

	for i := 0; i < capacity+10; i++ {
		fire(t, l, fmt.Sprintf("entry %d", i))
	}

	entries := l.Entries()
	require.Len(t, entries, capacity)

	// the oldest entries fell off
	require.Equal(t, "entry 10", entries[0].Message)
	require.Equal(t, fmt.Sprintf("entry %d", capacity+9), entries[len(entries)-1].Message)
}

func TestHookSubscribesToAllLevels(t *testing.T) {
	l := New()

	require.Equal(t, logrus.AllLevels, l.Levels())
}
