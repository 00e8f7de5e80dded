package ir

// FunctionSpec is the declarative description of one compute function.
// A spec is assembled once per declaration by merging inherited defaults,
// then treated as read-only by everything downstream.
type FunctionSpec struct {
	Handler      string            `pkl:"handler"`
	Runtime      string            `pkl:"runtime"`
	MemorySize   int               `pkl:"memorySize"` // MB
	Timeout      int               `pkl:"timeout"`    // seconds
	DiskSize     int               `pkl:"diskSize"`   // MB of ephemeral storage
	Architecture string            `pkl:"architecture"`
	Tracing      string            `pkl:"tracing"`
	Environment  map[string]string `pkl:"environment"`
	Bind         []string          `pkl:"bind"`
	Permissions  *Permissions      `pkl:"permissions"`
	Layers       []string          `pkl:"layers"`
	URL          *URLConfig        `pkl:"url"`
	Hooks        *BuildHooks       `pkl:"hooks"`
	LiveDev      *bool             `pkl:"liveDev"` // opt-out of the dev-mode bridge
}

// Permissions is either the universal grant or an explicit list, never both.
type Permissions struct {
	All    bool     `pkl:"all"`
	Grants []string `pkl:"grants"`
}

// AllPermissions returns the universal permission grant.
func AllPermissions() *Permissions {
	return &Permissions{All: true}
}

// GrantList returns an explicit permission list.
func GrantList(grants ...string) *Permissions {
	return &Permissions{Grants: grants}
}

// URLConfig enables a function URL with optional CORS.
type URLConfig struct {
	AuthType string      `pkl:"authType"`
	CORS     *CORSConfig `pkl:"cors"`
}

type CORSConfig struct {
	AllowOrigins []string `pkl:"allowOrigins"`
	AllowMethods []string `pkl:"allowMethods"`
	AllowHeaders []string `pkl:"allowHeaders"`
}

// BuildHooks run around the bundling step for one function.
type BuildHooks struct {
	Before []string `pkl:"before"`
	After  []string `pkl:"after"`
}
