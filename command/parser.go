package command

type (
	// Grammar parses one command line. AllowSource enables the "as"
	// modifier, which only makes sense when an actor is invoking
	Grammar struct {
		Root        string
		AllowSource bool
	}

	// Invocation is the parsed form of one command line: the modifiers
	// gathered in its Bag followed by exactly one terminal clause
	Invocation struct {
		Bag     *Bag
		ID      string
		Command string
		Delay   int64
		Kind    Kind
	}

	// Kind identifies an Invocation's terminal clause
	Kind uint8
)

const (
	KindSet Kind = iota
	KindList
	KindRemove
)

// Grammar literals
const (
	LiteralAs       = "as"
	LiteralPriority = "priority"
	LiteralSilent   = "silent"
	LiteralSet      = "set"
	LiteralList     = "list"
	LiteralRemove   = "remove"
)

// MinDelay is the smallest delay, in ticks, that set accepts
const MinDelay = 1

const commandPrefix = '/'

// Parse reads the root literal, any number of modifiers in any order, and a
// terminal clause. A repeated modifier replaces the earlier value
func (g Grammar) Parse(line string) (*Invocation, error) {
	r := NewReader(line)
	r.SkipWhitespace()
	if r.CanRead() && r.Peek() == commandPrefix {
		r.cursor++
	}

	start := r.Cursor()
	if root := r.Word(); root != g.Root {
		return nil, r.errorAt(start, "unknown command")
	}

	inv := &Invocation{Bag: NewBag()}
	for {
		if err := r.Separator(); err != nil {
			return nil, err
		}
		start = r.Cursor()
		switch lit := r.Word(); lit {
		case LiteralAs:
			if !g.AllowSource {
				return nil, r.errorAt(start, "unknown argument")
			}
			if err := readModifier(r, inv.Bag, OptSource, r.String); err != nil {
				return nil, err
			}
		case LiteralPriority:
			if err := readModifier(r, inv.Bag, OptPriority, r.Int); err != nil {
				return nil, err
			}
		case LiteralSilent:
			if err := readModifier(r, inv.Bag, OptSilent, r.Bool); err != nil {
				return nil, err
			}
		case LiteralSet:
			return terminal(inv, parseSet(r, inv))
		case LiteralList:
			inv.Kind = KindList
			return terminal(inv, r.End())
		case LiteralRemove:
			return terminal(inv, parseRemove(r, inv))
		default:
			return nil, r.errorAt(start, "unknown argument")
		}
	}
}

func readModifier[T any](
	r *Reader, b *Bag, name string, read func() (T, error),
) error {
	if err := r.Separator(); err != nil {
		return err
	}
	v, err := read()
	if err != nil {
		return err
	}
	b.Set(name, v)
	return nil
}

func terminal(inv *Invocation, err error) (*Invocation, error) {
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func parseSet(r *Reader, inv *Invocation) error {
	inv.Kind = KindSet
	if err := r.Separator(); err != nil {
		return err
	}
	id, err := r.RequiredWord("identifier")
	if err != nil {
		return err
	}
	if err := r.Separator(); err != nil {
		return err
	}
	start := r.Cursor()
	d, err := r.Long()
	if err != nil {
		return err
	}
	if d < MinDelay {
		return r.errorAt(start,
			"delay must not be less than %d, found %d", MinDelay, d)
	}
	if err := r.Space(); err != nil {
		return err
	}
	inv.ID = id
	inv.Delay = d
	inv.Command = r.Remaining()
	return nil
}

func parseRemove(r *Reader, inv *Invocation) error {
	inv.Kind = KindRemove
	if err := r.Separator(); err != nil {
		return err
	}
	id, err := r.RequiredWord("identifier")
	if err != nil {
		return err
	}
	inv.ID = id
	return r.End()
}

func (k Kind) String() string {
	switch k {
	case KindList:
		return LiteralList
	case KindRemove:
		return LiteralRemove
	default:
		return LiteralSet
	}
}
