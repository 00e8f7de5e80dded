package ir

// Config is the evaluated app definition: the input to one declaration pass.
type Config struct {
	Name   string         `pkl:"name"`
	Stacks []*StackConfig `pkl:"stacks"`
}

type StackConfig struct {
	Name string `pkl:"name"`

	// Defaults apply to every function in the stack, outermost first; the
	// function's own spec is merged last and wins ties.
	Defaults  []*FunctionSpec          `pkl:"defaults"`
	Functions map[string]*FunctionSpec `pkl:"functions"`
	Layers    map[string]*LayerConfig  `pkl:"layers"`
}

// LayerConfig declares a packaged dependency layer owned by a stack.
type LayerConfig struct {
	Path               string   `pkl:"path"` // directory packaged into the layer
	Description        string   `pkl:"description"`
	CompatibleRuntimes []string `pkl:"compatibleRuntimes"`
}
