package app

import (
	"fmt"
	"io"
	"os"

	"github.com/jessevdk/go-flags"

	"assistanthub/internal/assistanthub/config"
)

// version is set with -ldflags "-X assistanthub/internal/assistanthub/app.version=...".
var version = "dev"

func Version() string { return version }

// Options is the root command. The struct tags are interpreted by
// github.com/jessevdk/go-flags.
type Options struct {
	Config  string      `short:"f" long:"config" description:"config YAML path"`
	Serve   *ServeCmd   `command:"serve" description:"Start the HTTP API and the reminder scheduler"`
	Chat    *ChatCmd    `command:"chat" description:"Chat with a bot on the terminal"`
	Version *VersionCmd `command:"version" description:"Print the version"`

	stdin  io.Reader
	stdout io.Writer
}

func newOptions(stdin io.Reader, stdout io.Writer) *Options {
	o := &Options{stdin: stdin, stdout: stdout}
	o.Serve = &ServeCmd{root: o}
	o.Chat = &ChatCmd{root: o}
	o.Version = &VersionCmd{root: o}
	return o
}

func (o *Options) load() (*config.Config, error) {
	return config.Load(o.Config)
}

type VersionCmd struct {
	root *Options
}

func (v *VersionCmd) Execute(_ []string) error {
	_, err := fmt.Fprintln(v.root.stdout, Version())
	return err
}

// Run parses args and executes the selected command.
func Run(args []string) error {
	return run(args, os.Stdin, os.Stdout)
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	parser := flags.NewParser(newOptions(stdin, stdout), flags.HelpFlag|flags.PassDoubleDash)
	_, err := parser.ParseArgs(args)
	return err
}
