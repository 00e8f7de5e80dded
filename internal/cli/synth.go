package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/stackfn-io/stackfn/internal/artifact"
	"github.com/stackfn-io/stackfn/internal/ir"
)

var synthOutDir string

var synthCmd = &cobra.Command{
	Use:   "synth [path]",
	Short: "Synthesize stack templates",
	Long: `Synthesizes every stack template from the app definition. Functions are
bundled by deferred builds after the declaration pass; artifacts stay in
the local output directory.`,
	RunE: runSynth,
}

func init() {
	synthCmd.Flags().StringVarP(&synthOutDir, "out", "o", "", "Output directory (default .stackfn/out)")
}

func runSynth(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	wd, entryPoint, err := resolveProject(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(ctx, wd, entryPoint)
	if err != nil {
		return err
	}

	outDir := synthOutDir
	if outDir == "" {
		outDir = filepath.Join(wd, ".stackfn", "out")
	}

	app := ir.NewApp(cfg.Name, ir.ModeDeploy)
	s := newSynthesizer(app, wd, artifact.NewDirStore(outDir))

	if err := s.Synthesize(ctx, cfg); err != nil {
		return err
	}
	if err := writeTemplates(app, outDir); err != nil {
		return err
	}

	fmt.Printf("Synthesized %d stack(s) to %s\n", len(app.Stacks()), outDir)
	return nil
}
