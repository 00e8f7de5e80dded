// Package props merges function specifications against inherited defaults.
package props

import (
	"github.com/stackfn-io/stackfn/internal/ir"
)

// Merge combines a base spec with an override. Scalars prefer the override
// when set; environment is shallow-merged with override keys winning;
// layers and bind concatenate base-first; a universal permission grant on
// either side short-circuits list concatenation.
//
// Merge is pure: inputs are never mutated. Note that the permission
// sentinel makes the operation non-associative; callers compose defaults
// through Apply, which fixes the fold order.
func Merge(base, override *ir.FunctionSpec) *ir.FunctionSpec {
	if base == nil {
		base = &ir.FunctionSpec{}
	}
	if override == nil {
		override = &ir.FunctionSpec{}
	}

	out := &ir.FunctionSpec{
		Handler:      pickString(base.Handler, override.Handler),
		Runtime:      pickString(base.Runtime, override.Runtime),
		MemorySize:   pickInt(base.MemorySize, override.MemorySize),
		Timeout:      pickInt(base.Timeout, override.Timeout),
		DiskSize:     pickInt(base.DiskSize, override.DiskSize),
		Architecture: pickString(base.Architecture, override.Architecture),
		Tracing:      pickString(base.Tracing, override.Tracing),
		Environment:  mergeEnvironment(base.Environment, override.Environment),
		Bind:         concat(base.Bind, override.Bind),
		Permissions:  mergePermissions(base.Permissions, override.Permissions),
		Layers:       concat(base.Layers, override.Layers),
	}

	out.URL = base.URL
	if override.URL != nil {
		out.URL = override.URL
	}
	out.Hooks = base.Hooks
	if override.Hooks != nil {
		out.Hooks = override.Hooks
	}
	out.LiveDev = base.LiveDev
	if override.LiveDev != nil {
		out.LiveDev = override.LiveDev
	}

	return out
}

// Apply folds defaults in increasing priority (outermost first) and merges
// the declaration's own spec last, so the most specific value wins ties.
func Apply(spec *ir.FunctionSpec, defaults ...*ir.FunctionSpec) *ir.FunctionSpec {
	var merged *ir.FunctionSpec
	for _, d := range defaults {
		merged = Merge(merged, d)
	}
	return Merge(merged, spec)
}

func pickString(base, override string) string {
	if override != "" {
		return override
	}
	return base
}

func pickInt(base, override int) int {
	if override != 0 {
		return override
	}
	return base
}

// mergeEnvironment shallow-merges two maps. When both sides are absent the
// result stays absent rather than becoming an empty map, so later defaults
// are not clobbered by a present-but-empty field.
func mergeEnvironment(base, override map[string]string) map[string]string {
	if base == nil && override == nil {
		return nil
	}
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// concat appends override entries after base entries, preserving order.
// Both empty yields nil, not an empty slice.
func concat(base, override []string) []string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make([]string, 0, len(base)+len(override))
	out = append(out, base...)
	out = append(out, override...)
	return out
}

// mergePermissions propagates the universal grant from either side;
// otherwise grant lists concatenate base-first with the empty-omission
// rule. The override's sentinel is checked first.
func mergePermissions(base, override *ir.Permissions) *ir.Permissions {
	if override != nil && override.All {
		return ir.AllPermissions()
	}
	if base != nil && base.All {
		return ir.AllPermissions()
	}
	var grants []string
	if base != nil {
		grants = append(grants, base.Grants...)
	}
	if override != nil {
		grants = append(grants, override.Grants...)
	}
	if len(grants) == 0 {
		return nil
	}
	return &ir.Permissions{Grants: grants}
}
