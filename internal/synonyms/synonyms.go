// Package synonyms implements the group-token substitution table the TEXT
// Term evaluator consults: a user token belonging to a synonym group is
// rewritten to a single internal group token shared by every member, so
// matching any member's posting list is a lookup of one term instead of a
// union over the whole group.
package synonyms

import "sync"

// Table maps surface tokens to an internal synonym group token.
type Table struct {
	mu     sync.RWMutex
	groups map[string]string // token -> group token
}

// New builds an empty synonym table.
func New() *Table {
	return &Table{groups: make(map[string]string)}
}

// AddGroup registers tokens as mutual synonyms under a group token derived
// from the first token supplied. Calling AddGroup again with an overlapping
// token set merges the new tokens into the existing group.
func (t *Table) AddGroup(tokens ...string) {
	if len(tokens) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	groupToken := tokens[0]
	for _, tok := range tokens {
		if g, ok := t.groups[tok]; ok {
			groupToken = g
			break
		}
	}
	for _, tok := range tokens {
		t.groups[tok] = groupToken
	}
}

// Resolve returns the group token for term, and whether term belongs to any
// group. The evaluator substitutes the group token for term on a hit and
// disables whitespace stripping for the remainder of that lookup.
func (t *Table) Resolve(term string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	g, ok := t.groups[term]
	return g, ok
}
