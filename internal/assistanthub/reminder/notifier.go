package reminder

import (
	"context"
	"log"
)

// Notifier delivers a fired reminder over one channel.
type Notifier interface {
	Notify(ctx context.Context, r Reminder) error
}

type NotifierFunc func(ctx context.Context, r Reminder) error

func (f NotifierFunc) Notify(ctx context.Context, r Reminder) error { return f(ctx, r) }

// Channel names a notifier for logs.
type Channel struct {
	Name     string
	Notifier Notifier
}

// MultiNotifier fans a reminder out to every channel. Channel failures are
// logged and never returned.
type MultiNotifier struct {
	LogPrefix string
	Channels  []Channel
}

func (m MultiNotifier) Notify(ctx context.Context, r Reminder) error {
	for _, ch := range m.Channels {
		if ch.Notifier == nil {
			continue
		}
		if err := ch.Notifier.Notify(ctx, r); err != nil {
			log.Printf("%s reminder channel failed: channel=%s id=%s err=%v", m.LogPrefix, ch.Name, r.ID, err)
		}
	}
	return nil
}

// LogNotifier writes fired reminders to the process log.
type LogNotifier struct {
	LogPrefix string
}

func (l LogNotifier) Notify(_ context.Context, r Reminder) error {
	log.Printf("%s reminder fired: id=%s session=%s task=%q", l.LogPrefix, r.ID, r.SessionID, r.Task)
	return nil
}
