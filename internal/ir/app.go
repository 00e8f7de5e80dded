package ir

// Mode is the ambient session mode for one declaration pass.
type Mode string

const (
	ModeDeploy Mode = "deploy"
	ModeDev    Mode = "dev"
	ModeRemove Mode = "remove"
)

// App is the root of the deployment graph: an ordered set of stacks plus
// the ambient session mode for the current pass.
type App struct {
	Name string
	Mode Mode

	// DebugIncreaseTimeout forces dev-mode bridge functions to the maximum
	// allowed timeout so a paused debugger does not hit the declared limit.
	DebugIncreaseTimeout bool

	stacks map[string]*Stack
	order  []string
}

func NewApp(name string, mode Mode) *App {
	return &App{
		Name:   name,
		Mode:   mode,
		stacks: make(map[string]*Stack),
	}
}

// Stack returns the named stack, creating it on first use.
func (a *App) Stack(name string) *Stack {
	if s, ok := a.stacks[name]; ok {
		return s
	}
	s := newStack(name)
	a.stacks[name] = s
	a.order = append(a.order, name)
	return s
}

// LookupStack returns the named stack without creating it.
func (a *App) LookupStack(name string) (*Stack, bool) {
	s, ok := a.stacks[name]
	return s, ok
}

// Stacks returns all stacks in declaration order.
func (a *App) Stacks() []*Stack {
	out := make([]*Stack, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, a.stacks[name])
	}
	return out
}
