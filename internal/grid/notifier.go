package grid

import (
	"context"
	"log/slog"
)

// Notice is a user-facing message, the headless stand-in for a toast.
type Notice struct {
	Level    slog.Level
	Code     ErrorCode
	Message  string
	RecordID string
	ColumnID string
}

// Notifier delivers notices to the user.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notice) {
	f(n)
}

// LogNotifier writes notices through slog.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify implements Notifier.
func (l LogNotifier) Notify(n Notice) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"code", string(n.Code)}
	if n.RecordID != "" {
		attrs = append(attrs, "record", n.RecordID)
	}
	if n.ColumnID != "" {
		attrs = append(attrs, "column", n.ColumnID)
	}
	logger.Log(context.Background(), n.Level, n.Message, attrs...)
}

// noticeFor builds an error notice from a grid error.
func noticeFor(err error) Notice {
	n := Notice{Level: slog.LevelError, Code: CodeOf(err), Message: err.Error()}
	if ge, ok := err.(*GridError); ok {
		n.Message = ge.Message
		n.RecordID = ge.RecordID
		n.ColumnID = ge.ColumnID
	}
	return n
}
