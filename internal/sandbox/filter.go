package sandbox

import (
	"fmt"
	"strings"
)

// DefaultDenylist is the set of identifiers rejected by default. It targets
// dynamic evaluation, filesystem access, process control, and scope
// introspection — the escape hatches out of the restricted worker
// environment.
var DefaultDenylist = []string{
	"eval", "exec", "__import__", "open",
	"getattr", "setattr", "delattr", "compile",
	"globals", "locals", "vars",
	"system", "popen", "spawn", "fork", "kill",
}

// Filter is a static pre-check of submitted source against a denylist of
// dangerous identifiers. It is deliberately coarse: a plain substring scan
// with no parsing. A denylisted word inside a comment or string literal is
// still rejected, and semantically equivalent code reached through
// indirection is not caught. It is defense-in-depth in front of the worker
// isolation, not a security boundary on its own.
type Filter struct {
	denylist []string
}

// NewFilter creates a Filter with the given denylist. Passing nil uses
// DefaultDenylist.
func NewFilter(denylist []string) *Filter {
	if denylist == nil {
		denylist = DefaultDenylist
	}
	return &Filter{denylist: denylist}
}

// Check scans source and returns a non-nil error naming the first denylisted
// token found, or nil if the source is clean. Pure function of the source
// and the configured denylist.
func (f *Filter) Check(source string) error {
	for _, token := range f.denylist {
		if strings.Contains(source, token) {
			return fmt.Errorf("forbidden identifier: %s", token)
		}
	}
	return nil
}
