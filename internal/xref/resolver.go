// Package xref resolves references to layers that live in a different
// stack than the function consuming them.
//
// The deployment system's native cross-stack export is written once and
// never updated, so exporting a layer ARN directly would wedge every
// consuming stack the first time the layer publishes a new version.
// Instead the owning stack writes the ARN into a named parameter and the
// consumer reads that parameter live at deploy time.
package xref

import (
	"fmt"

	"github.com/stackfn-io/stackfn/internal/ir"
	"github.com/stackfn-io/stackfn/internal/logging"
)

// Resolver memoizes cross-stack layer resolution per
// (owning stack, consuming stack, logical ID) so re-declaring the same
// dependency never creates duplicate parameter nodes or imports.
type Resolver struct {
	app      *ir.App
	resolved map[string]string
}

func NewResolver(app *ir.App) *Resolver {
	return &Resolver{
		app:      app,
		resolved: make(map[string]string),
	}
}

// Resolve turns a layer reference into something the consuming stack can
// use directly. Literal ARNs and references local to the consuming stack
// pass through unchanged; a token owned by another stack yields a
// dependency edge plus a parameter indirection.
func (r *Resolver) Resolve(consuming *ir.Stack, layer string) (string, error) {
	if !ir.IsToken(layer) {
		return layer, nil
	}

	owningName, logicalID, ok := ir.ParseToken(layer)
	if !ok {
		return "", fmt.Errorf("malformed layer reference %q", layer)
	}
	if owningName == consuming.Name {
		return layer, nil
	}

	key := fmt.Sprintf("%s|%s|%s", owningName, consuming.Name, logicalID)
	if ref, done := r.resolved[key]; done {
		return ref, nil
	}

	owning, ok := r.app.LookupStack(owningName)
	if !ok {
		return "", fmt.Errorf("layer %q references unknown stack %q", layer, owningName)
	}
	if !owning.Template.Has(logicalID) {
		return "", fmt.Errorf("layer %q not declared in stack %q", logicalID, owningName)
	}

	// The owning stack must be deployed first so the parameter exists
	// before the consumer reads it.
	consuming.AddDependency(owning)

	paramName := parameterName(r.app.Name, owningName, logicalID)
	exportID := fmt.Sprintf("%sArnParam", logicalID)
	if !owning.Template.Has(exportID) {
		node := &ir.Node{
			LogicalID: exportID,
			Type:      "aws.ssm.Parameter",
			Properties: map[string]any{
				"name":  paramName,
				"type":  "String",
				"value": layer,
			},
		}
		if err := owning.Template.Add(node); err != nil {
			return "", err
		}
	}

	importID := fmt.Sprintf("%s%sArnImport", owningName, logicalID)
	ref := fmt.Sprintf("ssm://%s", paramName)
	if !consuming.Template.Has(importID) {
		node := &ir.Node{
			LogicalID: importID,
			Type:      "aws.ssm.ParameterRead",
			Properties: map[string]any{
				"name": paramName,
			},
		}
		if err := consuming.Template.Add(node); err != nil {
			return "", err
		}
	}

	logging.Debug("routed cross-stack layer through parameter",
		"layer", logicalID, "owning", owningName, "consuming", consuming.Name, "parameter", paramName)

	r.resolved[key] = ref
	return ref, nil
}

// parameterName returns the well-known parameter path for a layer ARN.
func parameterName(app, stack, logicalID string) string {
	return fmt.Sprintf("/stackfn/%s/%s/layers/%s/arn", app, stack, logicalID)
}
