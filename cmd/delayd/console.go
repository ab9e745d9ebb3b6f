package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kode4food/delay"
	"github.com/kode4food/delay/command"
)

// console is the host for the interactive runner. It plays both the single
// actor typing at the terminal and the host principal. Fired payloads that
// start with the command's own name are executed through the front end, so
// delays can chain; anything else is echoed
type console struct {
	out        io.Writer
	frontend   *command.Frontend
	actor      string
	permission int
}

var (
	_ delay.Dispatcher    = (*console)(nil)
	_ delay.ActorResolver = (*console)(nil)
)

func newConsole(out io.Writer, actor string, permission int) *console {
	return &console{
		out:        out,
		actor:      actor,
		permission: permission,
	}
}

// Execute runs a line typed by the console actor
func (c *console) Execute(line string) error {
	return c.frontend.Execute(c.invoker(delay.Actor(c.actor), false), line)
}

// Suggest completes a line typed by the console actor
func (c *console) Suggest(line string) []string {
	return c.frontend.Suggest(c.invoker(delay.Actor(c.actor), false), line)
}

func (c *console) Dispatch(_ context.Context, ev delay.Event) error {
	if c.isCommand(ev.Command) {
		return c.frontend.Execute(c.invoker(ev.Source, ev.Silent), ev.Command)
	}
	if !ev.Silent {
		_, err := fmt.Fprintf(c.out, "[%s] %s\n", ev.Source, ev.Command)
		return err
	}
	return nil
}

func (c *console) ResolveActor(ref string) bool {
	return ref == c.actor
}

func (c *console) invoker(src delay.Source, silent bool) *command.Invoker {
	inv := &command.Invoker{
		Source:     src,
		Permission: c.permission,
	}
	if !silent {
		inv.Feedback = command.FeedbackFunc(c.print)
	}
	return inv
}

func (c *console) print(text string) {
	_, _ = fmt.Fprintln(c.out, text)
}

func (c *console) isCommand(line string) bool {
	line = strings.TrimPrefix(strings.TrimLeft(line, " "), "/")
	name, _, _ := strings.Cut(line, " ")
	return name == c.frontend.Name()
}
