package command

import (
	"slices"
	"strings"
)

var (
	sourceValues = []string{sourceSelf, sourceServer}
	boolValues   = []string{"true", "false"}
)

// Suggest returns completions for the last, partially typed word of line.
// Identifiers offered after "remove" come from the live pending set
func (f *Frontend) Suggest(inv *Invoker, line string) []string {
	if !f.Permitted(inv) {
		return nil
	}
	line = strings.TrimLeft(line, " ")
	line = strings.TrimPrefix(line, string(commandPrefix))

	cut := strings.LastIndexByte(line, argSeparator)
	prefix := line[cut+1:]
	if cut < 0 {
		return matching([]string{f.config.Name}, prefix)
	}

	words := strings.Fields(line[:cut])
	if len(words) == 0 || words[0] != f.config.Name {
		return nil
	}
	g := f.Grammar(inv)
	for i := 1; ; i++ {
		if i == len(words) {
			return matching(g.literals(), prefix)
		}
		switch words[i] {
		case LiteralAs:
			if !g.AllowSource {
				return nil
			}
			fallthrough
		case LiteralPriority, LiteralSilent:
			if i+1 < len(words) {
				i++
				continue
			}
			return matching(modifierValues(words[i]), prefix)
		case LiteralRemove:
			if i+1 == len(words) {
				return matching(f.pendingIDs(), prefix)
			}
			return nil
		default:
			return nil
		}
	}
}

func (g Grammar) literals() []string {
	res := []string{LiteralPriority, LiteralSilent, LiteralSet, LiteralList,
		LiteralRemove}
	if g.AllowSource {
		res = append(res, LiteralAs)
	}
	return res
}

func (f *Frontend) pendingIDs() []string {
	evs := f.engine.List()
	res := make([]string, len(evs))
	for i, ev := range evs {
		res[i] = ev.ID
	}
	return res
}

func modifierValues(lit string) []string {
	switch lit {
	case LiteralAs:
		return sourceValues
	case LiteralSilent:
		return boolValues
	default:
		return nil
	}
}

func matching(candidates []string, prefix string) []string {
	var res []string
	for _, c := range candidates {
		if strings.HasPrefix(c, prefix) {
			res = append(res, c)
		}
	}
	slices.Sort(res)
	return res
}
