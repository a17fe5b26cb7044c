package provdlog

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// capacity bounds the kept history; older entries fall off.
const capacity = 200

type Entry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// ProvdLog is a logrus hook keeping the most recent log entries in memory
// so the command surface can expose them.
type ProvdLog struct {
	mtx     sync.Mutex
	entries []Entry
}

// Compile time check for interface compatibility
var _ logrus.Hook = (*ProvdLog)(nil)

func New() *ProvdLog {
	return &ProvdLog{}
}

func (l *ProvdLog) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (l *ProvdLog) Fire(entry *logrus.Entry) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	l.entries = append(l.entries, Entry{
		Time:    entry.Time,
		Level:   entry.Level.String(),
		Message: entry.Message,
	})

	if len(l.entries) > capacity {
		l.entries = l.entries[len(l.entries)-capacity:]
	}

	return nil
}

// Entries returns a copy of the kept history, oldest first.
func (l *ProvdLog) Entries() []Entry {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	entries := make([]Entry, len(l.entries))
	copy(entries, l.entries)

	return entries
}
