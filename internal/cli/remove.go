package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/stackfn-io/stackfn/internal/artifact"
	"github.com/stackfn-io/stackfn/internal/ir"
	"github.com/stackfn-io/stackfn/internal/param"
)

var removeCmd = &cobra.Command{
	Use:   "remove [path]",
	Short: "Synthesize teardown templates",
	Long: `Synthesizes every stack for teardown. Functions get inert placeholders
and no builds run, but layer references are still wired so template
references stay valid while resources are deleted.`,
	RunE: runRemove,
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	wd, entryPoint, err := resolveProject(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(ctx, wd, entryPoint)
	if err != nil {
		return err
	}

	app := ir.NewApp(cfg.Name, ir.ModeRemove)
	outDir := filepath.Join(wd, ".stackfn", "out")
	s := newSynthesizer(app, wd, artifact.NewDirStore(outDir))
	if err := s.Synthesize(ctx, cfg); err != nil {
		return err
	}
	if err := writeTemplates(app, outDir); err != nil {
		return err
	}

	// Drop the dev bridge endpoint; missing is fine.
	if store, err := param.NewStore(ctx, region); err == nil {
		_ = store.Delete(ctx, devEndpointParam(cfg.Name))
	}

	fmt.Printf("Synthesized %d stack(s) for removal\n", len(app.Stacks()))
	return nil
}
