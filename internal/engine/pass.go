package engine

import (
	"github.com/stackfn-io/stackfn/internal/ir"
	"github.com/stackfn-io/stackfn/internal/registry"
	"github.com/stackfn-io/stackfn/internal/xref"
)

// Pass owns the mutable structures scoped to one declaration pass: the
// deferred task queue, the function registry and the cross-stack resolver
// memo. A fresh Pass is created at pass start and discarded at pass end;
// nothing here is a package-level singleton, so stale tasks from a
// previous pass can never leak into the next drain.
type Pass struct {
	App      *ir.App
	Tasks    *Queue
	Registry *registry.Registry
	Resolver *xref.Resolver
}

func NewPass(app *ir.App) *Pass {
	return &Pass{
		App:      app,
		Tasks:    NewQueue(),
		Registry: registry.New(),
		Resolver: xref.NewResolver(app),
	}
}
