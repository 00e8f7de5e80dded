package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/stackfn-io/stackfn/internal/artifact"
	"github.com/stackfn-io/stackfn/internal/ir"
	"github.com/stackfn-io/stackfn/internal/param"
)

var (
	devEndpoint        string
	devIncreaseTimeout bool
)

var devCmd = &cobra.Command{
	Use:   "dev [path]",
	Short: "Synthesize templates wired to the live development bridge",
	Long: `Synthesizes every stack with functions replaced by the local bridge:
invocations are relayed to this machine over the messaging transport
instead of running uploaded code. No bundling happens in this mode.`,
	RunE: runDev,
}

func init() {
	devCmd.Flags().StringVar(&devEndpoint, "endpoint", "", "Local bridge endpoint to advertise")
	devCmd.Flags().BoolVar(&devIncreaseTimeout, "increase-timeout", false, "Force bridge functions to the maximum timeout for debugging")
}

func runDev(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	wd, entryPoint, err := resolveProject(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(ctx, wd, entryPoint)
	if err != nil {
		return err
	}

	app := ir.NewApp(cfg.Name, ir.ModeDev)
	app.DebugIncreaseTimeout = devIncreaseTimeout

	outDir := filepath.Join(wd, ".stackfn", "out")
	s := newSynthesizer(app, wd, artifact.NewDirStore(outDir))
	if err := s.Synthesize(ctx, cfg); err != nil {
		return err
	}
	if err := writeTemplates(app, outDir); err != nil {
		return err
	}

	if devEndpoint != "" {
		store, err := param.NewStore(ctx, region)
		if err != nil {
			return err
		}
		if err := store.Put(ctx, devEndpointParam(cfg.Name), devEndpoint); err != nil {
			return err
		}
	}

	fmt.Printf("Synthesized %d stack(s) in dev mode\n", len(app.Stacks()))
	return nil
}
