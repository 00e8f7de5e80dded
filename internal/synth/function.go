// Package synth turns function declarations into stack template nodes.
//
// Every declaration emits its node synchronously, before any artifact
// exists. In deploy mode a deferred task is registered that builds the
// real artifact and patches the node in place during the drain; dev and
// remove modes never build at all.
package synth

import (
	"context"
	"fmt"

	"github.com/stackfn-io/stackfn/internal/artifact"
	"github.com/stackfn-io/stackfn/internal/build"
	"github.com/stackfn-io/stackfn/internal/engine"
	"github.com/stackfn-io/stackfn/internal/ir"
	"github.com/stackfn-io/stackfn/internal/logging"
	"github.com/stackfn-io/stackfn/internal/props"
)

const (
	// Inert placeholder written into every node before its build runs.
	placeholderKey     = "placeholder/bootstrap.zip"
	placeholderHandler = "index.placeholder"

	// The dev-mode bridge ships a fixed local bundle with a fixed entry
	// point; the declared runtime is replaced for wire compatibility.
	bridgeBundle  = "bridge/bundle.zip"
	bridgeHandler = "bridge.handler"
	bridgeRuntime = "nodejs20.x"

	// Broad messaging-transport grant the bridge needs to relay invocations.
	bridgeGrant = "iot:*"

	maxTimeoutSeconds   = 900
	defaultRuntime      = "nodejs20.x"
	functionNodeType    = "aws.lambda.Function"
	layerNodeType       = "aws.lambda.LayerVersion"
	functionURLNodeType = "aws.lambda.FunctionUrl"
)

// Uploader stores a bundled artifact and returns its location.
type Uploader interface {
	Upload(ctx context.Context, path string) (*artifact.Location, error)
}

// Synthesizer drives one declaration pass: it owns the pass context plus
// the build toolchain and artifact store collaborators.
type Synthesizer struct {
	Pass      *engine.Pass
	Builder   build.Builder
	Artifacts Uploader
}

// Function declares one function in a stack. It merges inherited
// defaults, registers the resolved spec, resolves layer references and
// emits the template node for the ambient session mode. Configuration
// errors surface here, synchronously; build failures only at drain time.
func (s *Synthesizer) Function(stack *ir.Stack, id string, spec *ir.FunctionSpec, defaults ...*ir.FunctionSpec) (*ir.Node, error) {
	addr := stack.Addr(id)
	merged := props.Apply(spec, defaults...)
	if merged.Runtime == "" {
		merged.Runtime = defaultRuntime
	}
	if merged.Handler == "" {
		return nil, fmt.Errorf("function %s: handler is required", addr)
	}

	s.Pass.Registry.Register(addr, merged)

	// Layers resolve in every mode so dependent template references stay
	// valid even when no build will ever run.
	resolvedLayers := make([]string, 0, len(merged.Layers))
	for _, layer := range merged.Layers {
		ref, err := s.Pass.Resolver.Resolve(stack, layer)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", addr, err)
		}
		resolvedLayers = append(resolvedLayers, ref)
	}

	node := &ir.Node{
		LogicalID:  id,
		Type:       functionNodeType,
		Properties: s.baseProperties(merged, resolvedLayers),
	}

	mode := s.Pass.App.Mode
	switch {
	case mode == ir.ModeDev && (merged.LiveDev == nil || *merged.LiveDev):
		s.applyBridge(node, merged)
	case mode == ir.ModeRemove:
		applyPlaceholder(node, merged)
	default:
		applyPlaceholder(node, merged)
		if err := s.deferBuild(stack, id, addr, merged); err != nil {
			return nil, err
		}
	}

	if err := stack.Template.Add(node); err != nil {
		return nil, fmt.Errorf("function %s: %w", addr, err)
	}

	if merged.URL != nil {
		if err := addFunctionURL(stack, id, merged.URL); err != nil {
			return nil, fmt.Errorf("function %s: %w", addr, err)
		}
	}

	logging.Debug("declared function", "address", addr, "mode", string(mode), "runtime", merged.Runtime)
	return node, nil
}

// baseProperties renders every declared attribute that builds never touch.
func (s *Synthesizer) baseProperties(spec *ir.FunctionSpec, layers []string) map[string]any {
	p := make(map[string]any)
	if spec.MemorySize > 0 {
		p["memorySize"] = spec.MemorySize
	}
	if spec.Timeout > 0 {
		p["timeout"] = spec.Timeout
	}
	if spec.DiskSize > 0 {
		p["diskSize"] = spec.DiskSize
	}
	if spec.Architecture != "" {
		p["architecture"] = spec.Architecture
	}
	if spec.Tracing != "" {
		p["tracing"] = spec.Tracing
	}
	if spec.Environment != nil {
		env := make(map[string]string, len(spec.Environment))
		for k, v := range spec.Environment {
			env[k] = v
		}
		p["environment"] = env
	}
	if len(spec.Bind) > 0 {
		p["bind"] = append([]string(nil), spec.Bind...)
	}
	if spec.Permissions != nil {
		p["permissions"] = renderPermissions(spec.Permissions)
	}
	if len(layers) > 0 {
		p["layers"] = layers
	}
	return p
}

// applyPlaceholder writes the inert code and handler used by both
// skip-build and pre-patch deferred-build nodes.
func applyPlaceholder(node *ir.Node, spec *ir.FunctionSpec) {
	node.Properties["runtime"] = spec.Runtime
	node.Properties["handler"] = placeholderHandler
	node.Properties["code"] = map[string]any{"key": placeholderKey}
}

// applyBridge replaces the declared artifact with the local dev bridge.
// Only wire-level fields change; memory, environment and the rest of the
// declaration stay as the user wrote them.
func (s *Synthesizer) applyBridge(node *ir.Node, spec *ir.FunctionSpec) {
	node.Properties["runtime"] = bridgeRuntime
	node.Properties["handler"] = bridgeHandler
	node.Properties["code"] = map[string]any{"local": bridgeBundle}
	node.Properties["retryAttempts"] = 0
	if s.Pass.App.DebugIncreaseTimeout {
		node.Properties["timeout"] = maxTimeoutSeconds
	}

	// The bridge relays invocations over the messaging transport.
	switch perms := node.Properties["permissions"].(type) {
	case nil:
		node.Properties["permissions"] = []string{bridgeGrant}
	case []string:
		node.Properties["permissions"] = append(perms, bridgeGrant)
	}
}

// deferBuild registers the asynchronous obligation that patches the
// placeholder node once the real artifact exists. The task re-locates the
// node by identity instead of holding it across the suspension.
func (s *Synthesizer) deferBuild(stack *ir.Stack, id, addr string, spec *ir.FunctionSpec) error {
	handler := spec.Handler
	return s.Pass.Tasks.Register(addr, func(ctx context.Context) error {
		res, err := s.Builder.Build(ctx, addr, build.KindDeploy)
		if err != nil {
			return fmt.Errorf("handler %q: %w", handler, err)
		}

		node := stack.Template.Get(id)
		if node == nil {
			return fmt.Errorf("handler %q: template node %s vanished before patch", handler, addr)
		}

		if res.Image {
			// Container runtimes layer a runtime override on top of the
			// generic patch.
			node.Properties["packageType"] = "Image"
			node.Properties["code"] = map[string]any{"imageUri": res.Out}
			delete(node.Properties, "handler")
			delete(node.Properties, "runtime")
			return nil
		}

		loc, err := s.Artifacts.Upload(ctx, res.Out)
		if err != nil {
			return fmt.Errorf("handler %q: %w", handler, err)
		}

		node.Properties["runtime"] = spec.Runtime
		node.Properties["handler"] = res.Handler
		code := map[string]any{"bucket": loc.Bucket, "key": loc.Key}
		if loc.Version != "" {
			code["version"] = loc.Version
		}
		node.Properties["code"] = code
		return nil
	})
}

func renderPermissions(p *ir.Permissions) any {
	if p.All {
		return "*"
	}
	return append([]string(nil), p.Grants...)
}

func addFunctionURL(stack *ir.Stack, id string, cfg *ir.URLConfig) error {
	p := map[string]any{
		"function": id,
		"authType": cfg.AuthType,
	}
	if cfg.CORS != nil {
		p["cors"] = map[string]any{
			"allowOrigins": cfg.CORS.AllowOrigins,
			"allowMethods": cfg.CORS.AllowMethods,
			"allowHeaders": cfg.CORS.AllowHeaders,
		}
	}
	return stack.Template.Add(&ir.Node{
		LogicalID:  id + "Url",
		Type:       functionURLNodeType,
		Properties: p,
	})
}
