package synth

import (
	"context"
	"sort"

	"github.com/stackfn-io/stackfn/internal/ir"
	"github.com/stackfn-io/stackfn/internal/logging"
)

// Synthesize runs one full declaration pass over the evaluated app
// definition and then drains the deferred builds. Layers are declared
// across all stacks first so cross-stack tokens resolve regardless of
// stack ordering; the drain is the single suspension point of the pass.
func (s *Synthesizer) Synthesize(ctx context.Context, cfg *ir.Config) error {
	app := s.Pass.App

	for _, sc := range cfg.Stacks {
		stack := app.Stack(sc.Name)
		for _, id := range sortedKeys(sc.Layers) {
			if err := declareLayer(stack, id, sc.Layers[id]); err != nil {
				return err
			}
		}
	}

	for _, sc := range cfg.Stacks {
		stack := app.Stack(sc.Name)
		for _, id := range sortedKeys(sc.Functions) {
			if _, err := s.Function(stack, id, sc.Functions[id], sc.Defaults...); err != nil {
				return err
			}
		}
	}

	logging.Info("declaration pass complete",
		"stacks", len(cfg.Stacks), "functions", len(s.Pass.Registry.All()), "deferred", s.Pass.Tasks.Len())

	return s.Pass.Tasks.DrainAll(ctx)
}

func declareLayer(stack *ir.Stack, id string, cfg *ir.LayerConfig) error {
	props := map[string]any{
		"layerName": id,
		"path":      cfg.Path,
	}
	if cfg.Description != "" {
		props["description"] = cfg.Description
	}
	if len(cfg.CompatibleRuntimes) > 0 {
		props["compatibleRuntimes"] = cfg.CompatibleRuntimes
	}
	return stack.Template.Add(&ir.Node{
		LogicalID:  id,
		Type:       layerNodeType,
		Properties: props,
	})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
