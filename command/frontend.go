package command

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kode4food/delay"
)

type (
	// Frontend executes command lines against an Engine. Like the Engine it
	// drives, it is used only from the host's tick thread
	Frontend struct {
		engine delay.Engine
		clock  delay.Clock
		log    *zap.Logger
		config delay.CommandConfig
	}

	// Invoker is the principal running a command line, along with the
	// channel its feedback goes to
	Invoker struct {
		Feedback   Feedback
		Source     delay.Source
		Permission int
	}

	// Feedback receives the status text produced by a command
	Feedback interface {
		SendFeedback(text string)
	}

	// FeedbackFunc adapts a function to the Feedback interface
	FeedbackFunc func(text string)
)

// ErrPermissionDenied is returned when the invoker's permission level is
// below the configured level
var ErrPermissionDenied = errors.New("permission denied")

// NewFrontend creates a Frontend. The Clock supplies the current tick that
// delays and remaining times are measured from
func NewFrontend(
	engine delay.Engine, clock delay.Clock, config delay.CommandConfig,
	log *zap.Logger,
) *Frontend {
	if log == nil {
		log = zap.NewNop()
	}
	return &Frontend{
		engine: engine,
		clock:  clock,
		log:    log,
		config: config,
	}
}

// Name returns the root literal the Frontend answers to
func (f *Frontend) Name() string {
	return f.config.Name
}

// Grammar returns the grammar available to the invoker
func (f *Frontend) Grammar(inv *Invoker) Grammar {
	return Grammar{
		Root:        f.config.Name,
		AllowSource: !inv.Source.IsHost(),
	}
}

// Permitted reports whether the invoker may use the command at all
func (f *Frontend) Permitted(inv *Invoker) bool {
	return inv.Permission >= f.config.PermissionLevel
}

// Execute parses and runs one command line. Only a permission failure or a
// *SyntaxError is returned; whether a set or remove took effect is reported
// solely through the invoker's feedback
func (f *Frontend) Execute(inv *Invoker, line string) error {
	if !f.Permitted(inv) {
		return ErrPermissionDenied
	}
	in, err := f.Grammar(inv).Parse(line)
	if err != nil {
		return err
	}
	f.Run(inv, in)
	return nil
}

// Run performs a parsed Invocation
func (f *Frontend) Run(inv *Invoker, in *Invocation) {
	switch in.Kind {
	case KindSet:
		f.set(inv, in)
	case KindList:
		f.list(inv)
	case KindRemove:
		f.remove(inv, in.ID)
	}
}

func (f *Frontend) set(inv *Invoker, in *Invocation) {
	opts := ResolveOptions(in.Bag)
	in.Bag.Clear()

	src := inv.Source
	if opts.Source == SourceServer {
		src = delay.Host()
	}
	ev := delay.Event{
		ID:       in.ID,
		Tick:     f.clock.Now() + delay.Tick(in.Delay),
		Command:  in.Command,
		Priority: opts.Priority,
		Silent:   opts.Silent,
		Source:   src,
	}

	if !f.engine.Add(ev) {
		inv.send(fmt.Sprintf(
			"Command with identifier %s already scheduled", ev.ID,
		))
		return
	}
	f.log.Debug("Scheduled command",
		zap.String("id", ev.ID),
		zap.Int64("tick", int64(ev.Tick)),
		zap.Int("priority", ev.Priority),
		zap.Bool("silent", ev.Silent),
		zap.Stringer("source", ev.Source),
	)
	inv.send(fmt.Sprintf(
		`Scheduled command "%s" with identifier %s`, ev.Command, ev.ID,
	))
}

func (f *Frontend) list(inv *Invoker) {
	evs := f.engine.List()
	now := f.clock.Now()
	for i := len(evs) - 1; i >= 0; i-- {
		ev := evs[i]
		inv.send(fmt.Sprintf("%s | %d | %s", ev.ID, ev.Tick-now, ev.Command))
	}
}

func (f *Frontend) remove(inv *Invoker, id string) {
	if !f.engine.Remove(id) {
		inv.send(fmt.Sprintf(`No scheduled command with identifier "%s"`, id))
		return
	}
	inv.send("Removed scheduled command with identifier " + id)
}

func (inv *Invoker) send(text string) {
	if inv.Feedback != nil {
		inv.Feedback.SendFeedback(text)
	}
}

// SendFeedback calls fn
func (fn FeedbackFunc) SendFeedback(text string) {
	fn(text)
}
