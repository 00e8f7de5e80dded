package ir

import (
	"fmt"
	"sort"
)

// Stack is one independently deployable unit of declared resources.
type Stack struct {
	Name     string
	Template *Template

	dependsOn map[string]bool
}

func newStack(name string) *Stack {
	return &Stack{
		Name:      name,
		Template:  NewTemplate(),
		dependsOn: make(map[string]bool),
	}
}

// AddDependency records that this stack must be deployed after other.
// Re-adding an existing edge is harmless.
func (s *Stack) AddDependency(other *Stack) {
	if other == nil || other.Name == s.Name {
		return
	}
	s.dependsOn[other.Name] = true
}

// Dependencies returns the names of stacks this stack depends on, sorted.
func (s *Stack) Dependencies() []string {
	deps := make([]string, 0, len(s.dependsOn))
	for name := range s.dependsOn {
		deps = append(deps, name)
	}
	sort.Strings(deps)
	return deps
}

// Addr returns the address of a declaration within this stack (stack.id).
func (s *Stack) Addr(id string) string {
	return fmt.Sprintf("%s.%s", s.Name, id)
}
