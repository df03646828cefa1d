package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"assistanthub/internal/assistanthub/reminder"
	"assistanthub/internal/assistanthub/router"
)

// ChatCmd runs a terminal conversation.
// Usage: assistanthub chat --bot vertex --name Ana
type ChatCmd struct {
	Bot  string `short:"b" long:"bot" description:"bot profile" default:"astra"`
	Name string `short:"n" long:"name" description:"your display name"`

	root *Options
}

func (c *ChatCmd) Execute(_ []string) error {
	cfg, err := c.root.load()
	if err != nil {
		return err
	}
	out := &lockedWriter{w: c.root.stdout}
	comps, err := Build(cfg, BuildOptions{Channels: []reminder.Channel{
		{Name: "terminal", Notifier: terminalNotifier(out)},
	}})
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Chat(ctx, comps, c.Bot, c.Name, c.root.stdin, out)
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func terminalNotifier(out io.Writer) reminder.Notifier {
	return reminder.NotifierFunc(func(_ context.Context, r reminder.Reminder) error {
		_, err := fmt.Fprintf(out, "\n[reminder] %s\n", r.Task)
		return err
	})
}

// Chat reads one message per line from in until EOF or /quit.
// /reset clears the conversation and /transcript prints it.
func Chat(ctx context.Context, c *Components, bot, name string, in io.Reader, out io.Writer) error {
	p, ok := router.LookupProfile(bot)
	if !ok {
		return fmt.Errorf("unknown bot %q", bot)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- c.Scheduler.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	sess := c.Sessions.Create(p.Name, name, "")
	c.Router.Start(sess)
	fmt.Fprintf(out, "%s: %s\n", p.DisplayName, p.Greeting)

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			c.Router.Reset(sess)
			fmt.Fprintf(out, "%s: %s\n", p.DisplayName, p.Greeting)
			continue
		case "/transcript":
			fmt.Fprintln(out, sess.Log.Render(p.DisplayName))
			continue
		}
		reply := c.Router.Handle(ctx, sess, line)
		fmt.Fprintf(out, "%s: %s\n", p.DisplayName, reply)
		if ctx.Err() != nil {
			return nil
		}
	}
	return sc.Err()
}
