// Package build produces deployable artifacts for declared functions.
// Builders run during the drain phase, long after the declaration pass
// has emitted placeholder template nodes.
package build

import (
	"context"
	"fmt"
	"strings"
)

// Kind is the session kind a build runs under.
type Kind string

const (
	KindDeploy Kind = "deploy"
	KindDev    Kind = "dev"
)

// Result is the successful outcome of one bundling run.
type Result struct {
	Out     string // path of the bundled zip, or image reference when Image is set
	Handler string // resolved entry point within the bundle
	Image   bool   // artifact is a container image, not a zip
}

// Error carries every message from a failed bundling run so the drain
// phase can surface them verbatim, attributed to the declaration.
type Error struct {
	Addr     string
	Messages []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("build failed for %s:\n%s", e.Addr, strings.Join(e.Messages, "\n"))
}

// Builder produces the artifact for one declaration.
type Builder interface {
	Build(ctx context.Context, addr string, kind Kind) (*Result, error)
}

// Toolchain routes each declaration to the bundler for its runtime:
// container runtimes go through the image builder, everything else is
// bundled locally into a zip.
type Toolchain struct {
	Local *LocalBuilder
	Image *ImageBuilder
}

func (t *Toolchain) Build(ctx context.Context, addr string, kind Kind) (*Result, error) {
	spec, ok := t.Local.Registry.Lookup(addr)
	if !ok {
		return nil, &Error{Addr: addr, Messages: []string{"function was never registered"}}
	}
	if IsContainerRuntime(spec.Runtime) {
		if t.Image == nil {
			return nil, &Error{Addr: addr, Messages: []string{
				fmt.Sprintf("runtime %q requires a container image builder", spec.Runtime),
			}}
		}
		return t.Image.Build(ctx, addr, kind)
	}
	return t.Local.Build(ctx, addr, kind)
}

// IsContainerRuntime reports whether a runtime is packaged as an image.
func IsContainerRuntime(runtime string) bool {
	return runtime == "container" || strings.HasPrefix(runtime, "container.")
}
