package container

import (
	"maps"
	"slices"
)

// aliasTable keeps alias edges flattened: every key maps straight to a token
// that is not itself an alias.
//
// raw holds the edges as registered so the flattened view can be rebuilt when
// an alias key is taken over by a concrete provider. order records the
// insertion order of keys; flattening visits them in that order, which
// decides the cycle path that gets reported.
type aliasTable struct {
	targets map[Token]Token
	raw     map[Token]Token
	order   []Token
}

func newAliasTable() *aliasTable {
	return &aliasTable{
		targets: make(map[Token]Token),
		raw:     make(map[Token]Token),
	}
}

func (a *aliasTable) len() int { return len(a.targets) }

// resolve returns the final target of t, or t itself.
func (a *aliasTable) resolve(t Token) Token {
	if target, ok := a.targets[t]; ok {
		return target
	}
	return t
}

func (a *aliasTable) lookup(t Token) (Token, bool) {
	target, ok := a.targets[t]
	return target, ok
}

// put records a raw edge. Call flatten before reading the table again. A
// re-registered key keeps its original position.
func (a *aliasTable) put(alias, target Token) {
	if _, ok := a.raw[alias]; !ok {
		a.order = append(a.order, alias)
	}
	a.raw[alias] = target
}

// link adds one edge and keeps the table flattened. On a cycle the table is
// left as it was.
func (a *aliasTable) link(alias, target Token) error {
	if _, exists := a.raw[alias]; exists {
		return a.relink(alias, target)
	}

	resolved := a.resolve(target)
	if resolved == alias {
		path := []Token{alias}
		if target != alias {
			path = append(path, target)
		}
		return errCyclicAlias(append(path, alias))
	}

	// Nothing was flattened through a new key, so only entries ending on it
	// need to move.
	for k, t := range a.targets {
		if t == alias {
			a.targets[k] = resolved
		}
	}
	a.put(alias, target)
	a.targets[alias] = resolved
	return nil
}

// relink replaces the edge of an existing key. Other keys may have been
// flattened through the old edge, so the table is rebuilt from the raw edges.
func (a *aliasTable) relink(alias, target Token) error {
	raw, order := maps.Clone(a.raw), slices.Clone(a.order)
	a.put(alias, target)
	if err := a.flatten(); err != nil {
		a.raw, a.order = raw, order
		_ = a.flatten()
		return err
	}
	return nil
}

// remove drops alias as a key. It reports whether alias was a key, in which
// case keys flattened through it are stale until the next flatten.
func (a *aliasTable) remove(alias Token) bool {
	if _, ok := a.raw[alias]; !ok {
		return false
	}
	a.drop(alias)
	return true
}

// flatten compresses every alias chain onto its terminal token in a single
// pass over the keys in insertion order.
//
// Each alias has exactly one outgoing edge, so a walk from any key either
// reaches a terminal or re-enters its own path. Every node on a completed
// walk is rewritten to the terminal and never visited again; a later walk
// that reaches a rewritten node adopts its terminal directly.
//
// The pass starts from the raw edges, so a re-registered key also moves every
// alias that was flattened through it. Edges on a detected cycle are dropped
// so the table stays consistent; the first cycle found is returned.
func (a *aliasTable) flatten() error {
	clear(a.targets)
	for k, t := range a.raw {
		a.targets[k] = t
	}

	var first error
	visited := make(map[Token]bool, len(a.targets))

	for _, start := range slices.Clone(a.order) {
		if visited[start] {
			continue
		}
		target, ok := a.targets[start]
		if !ok {
			continue
		}
		if start == target {
			if first == nil {
				first = errCyclicAlias([]Token{start, start})
			}
			a.drop(start)
			visited[start] = true
			continue
		}
		if _, chained := a.targets[target]; !chained {
			visited[start] = true
			continue
		}

		var stack []Token
		onPath := make(map[Token]int)
		cursor := start
		for {
			onPath[cursor] = len(stack)
			stack = append(stack, cursor)

			next, chained := a.targets[target]
			if !chained {
				break
			}
			if visited[target] {
				target = next
				break
			}
			if i, seen := onPath[target]; seen {
				cycle := append(slices.Clone(stack[i:]), target)
				if first == nil {
					first = errCyclicAlias(cycle)
				}
				for _, t := range stack[i:] {
					a.drop(t)
					visited[t] = true
				}
				stack = stack[:i]
				break
			}
			cursor, target = target, next
		}

		for _, t := range stack {
			a.targets[t] = target
			visited[t] = true
		}
	}
	return first
}

// drop removes a key and its raw edge.
func (a *aliasTable) drop(alias Token) {
	delete(a.targets, alias)
	delete(a.raw, alias)
	a.order = slices.DeleteFunc(a.order, func(t Token) bool { return t == alias })
}

// snapshot returns the flattened edges in insertion order.
func (a *aliasTable) snapshot() [][2]Token {
	out := make([][2]Token, 0, len(a.order))
	for _, k := range a.order {
		out = append(out, [2]Token{k, a.targets[k]})
	}
	return out
}
