// Package scope tracks the dotted scope path open at a point in one
// document's declaration stream.
package scope

import (
	"errors"
	"strings"
)

// ErrNoOpenScope is returned when a container is opened before any module.
var ErrNoOpenScope = errors.New("no open scope")

// Stack is the scope state of a single document. Modules replace the path,
// containers extend it, and nothing ever pops it. The zero value has no scope
// open. A Stack must not be shared between documents.
type Stack struct {
	path string
	open bool
}

// Current returns the open scope path, or false if no module has been opened.
func (s *Stack) Current() (string, bool) {
	return s.path, s.open
}

// OpenModule replaces the current scope with path.
func (s *Stack) OpenModule(path string) {
	s.path = strings.TrimSpace(path)
	s.open = true
}

// OpenContainer nests name under the current scope.
func (s *Stack) OpenContainer(name string) error {
	if !s.open {
		return ErrNoOpenScope
	}
	s.path += "." + name
	return nil
}

// Qualify joins name onto the current scope, or returns it unchanged when no
// scope is open.
func (s *Stack) Qualify(name string) string {
	if !s.open {
		return name
	}
	return s.path + "." + name
}
