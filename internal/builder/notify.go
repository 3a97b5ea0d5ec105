package builder

import (
	"context"

	"github.com/dagu-org/faultline/internal/cmn/logger"
	"github.com/dagu-org/faultline/internal/cmn/logger/tag"
)

// Level is the severity of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a one-shot message on the user-visible channel.
type Notification struct {
	Level   Level
	Message string
	Err     error
}

// Notifier receives notifications. Field validation errors never reach it.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}

// LogNotifier writes notifications to the context logger.
type LogNotifier struct{}

// Notify implements Notifier.
func (LogNotifier) Notify(ctx context.Context, n Notification) {
	switch n.Level {
	case LevelError:
		logger.Error(ctx, n.Message, tag.Error(n.Err))
	case LevelWarning:
		if n.Err != nil {
			logger.Warn(ctx, n.Message, tag.Error(n.Err))
			return
		}
		logger.Warn(ctx, n.Message)
	default:
		logger.Info(ctx, n.Message)
	}
}

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, Notification) {}
