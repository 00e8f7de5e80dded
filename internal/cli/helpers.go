package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stackfn-io/stackfn/internal/build"
	"github.com/stackfn-io/stackfn/internal/engine"
	"github.com/stackfn-io/stackfn/internal/eval"
	"github.com/stackfn-io/stackfn/internal/ir"
	"github.com/stackfn-io/stackfn/internal/logging"
	"github.com/stackfn-io/stackfn/internal/synth"
)

const defaultEntryPoint = "app.pkl"

// resolveProject turns an optional positional argument into a project
// directory and entry point.
func resolveProject(args []string) (wd, entryPoint string, err error) {
	wd, err = os.Getwd()
	if err != nil {
		return "", "", fmt.Errorf("failed to get working directory: %w", err)
	}
	entryPoint = defaultEntryPoint

	if len(args) > 0 {
		absPath, err := filepath.Abs(args[0])
		if err != nil {
			return "", "", fmt.Errorf("failed to resolve path %s: %w", args[0], err)
		}
		info, err := os.Stat(absPath)
		if err != nil {
			return "", "", fmt.Errorf("failed to stat path %s: %w", args[0], err)
		}
		if info.IsDir() {
			wd = absPath
		} else {
			wd = filepath.Dir(absPath)
			entryPoint = filepath.Base(absPath)
		}
	}
	return wd, entryPoint, nil
}

// loadConfig evaluates the app definition for the current stage.
func loadConfig(ctx context.Context, wd, entryPoint string) (*ir.Config, error) {
	evaluator := eval.NewEvaluator(wd)
	return evaluator.LoadApp(ctx, entryPoint, map[string]string{
		"stage":  stage,
		"region": region,
	})
}

// newSynthesizer wires a pass with the build toolchain and the given
// artifact store. The docker-backed image builder is optional: without a
// reachable daemon only container runtimes are unavailable.
func newSynthesizer(app *ir.App, wd string, artifacts synth.Uploader) *synth.Synthesizer {
	pass := engine.NewPass(app)

	toolchain := &build.Toolchain{
		Local: build.NewLocalBuilder(wd, pass.Registry),
	}
	if img, err := build.NewImageBuilder(wd, pass.Registry); err == nil {
		toolchain.Image = img
	} else {
		logging.Warn("docker unavailable, container runtimes disabled", "error", err)
	}

	return &synth.Synthesizer{
		Pass:      pass,
		Builder:   toolchain,
		Artifacts: artifacts,
	}
}

// writeTemplates renders every stack template under outDir.
func writeTemplates(app *ir.App, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for _, stack := range app.Stacks() {
		out, err := stack.Template.RenderJSON(stack.Dependencies())
		if err != nil {
			return fmt.Errorf("stack %s: %w", stack.Name, err)
		}
		path := filepath.Join(outDir, stack.Name+".json")
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		logging.Info("wrote stack template", "stack", stack.Name, "path", path)
	}
	return nil
}

// devEndpointParam is the well-known parameter the dev bridge reads.
func devEndpointParam(appName string) string {
	return fmt.Sprintf("/stackfn/%s/%s/dev/endpoint", appName, stage)
}
