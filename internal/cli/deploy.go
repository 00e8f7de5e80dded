package cli

import (
	"context"
	"fmt"
	"path/filepath"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/spf13/cobra"
	"github.com/stackfn-io/stackfn/internal/artifact"
	"github.com/stackfn-io/stackfn/internal/deploy"
	"github.com/stackfn-io/stackfn/internal/ir"
)

var (
	deployBucket    string
	deployLockTable string
	deployCodeOnly  bool
)

var deployCmd = &cobra.Command{
	Use:   "deploy [path]",
	Short: "Build, upload and deploy function code",
	Long: `Runs a full declaration pass, uploads every bundled artifact to the
deployment bucket and, with --code-only, pushes the new code straight to
the already-provisioned functions. Rendered templates are written next to
the artifacts for the template deployment system to pick up.`,
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().StringVar(&deployBucket, "bucket", "", "Deployment artifact bucket (required)")
	deployCmd.Flags().StringVar(&deployLockTable, "lock-table", "", "DynamoDB table for the pass lock")
	deployCmd.Flags().BoolVar(&deployCodeOnly, "code-only", false, "Update code of provisioned functions directly")
	_ = deployCmd.MarkFlagRequired("bucket")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	wd, entryPoint, err := resolveProject(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(ctx, wd, entryPoint)
	if err != nil {
		return err
	}

	if deployLockTable != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
		if err != nil {
			return fmt.Errorf("unable to load AWS config: %w", err)
		}
		lock := deploy.NewLock(deployLockTable, dynamodb.NewFromConfig(awsCfg))
		if err := lock.Acquire(ctx, cfg.Name); err != nil {
			return err
		}
		defer func() { _ = lock.Release(ctx) }()
	}

	store, err := artifact.NewStore(ctx, deployBucket, region)
	if err != nil {
		return err
	}

	app := ir.NewApp(cfg.Name, ir.ModeDeploy)
	s := newSynthesizer(app, wd, store)
	if err := s.Synthesize(ctx, cfg); err != nil {
		return err
	}

	outDir := filepath.Join(wd, ".stackfn", "out")
	if err := writeTemplates(app, outDir); err != nil {
		return err
	}

	if deployCodeOnly {
		if err := pushCode(ctx, app); err != nil {
			return err
		}
	}

	fmt.Printf("Deployed %d stack(s)\n", len(app.Stacks()))
	return nil
}

// pushCode points every provisioned function at its freshly uploaded
// artifact, skipping nodes that still carry placeholder or local code.
func pushCode(ctx context.Context, app *ir.App) error {
	client, err := deploy.New(ctx, region)
	if err != nil {
		return err
	}
	for _, stack := range app.Stacks() {
		for _, node := range stack.Template.Resources() {
			if node.Type != "aws.lambda.Function" {
				continue
			}
			code, ok := node.Properties["code"].(map[string]any)
			if !ok {
				continue
			}
			bucket, _ := code["bucket"].(string)
			key, _ := code["key"].(string)
			if bucket == "" || key == "" {
				continue
			}
			loc := &artifact.Location{Bucket: bucket, Key: key}
			if v, ok := code["version"].(string); ok {
				loc.Version = v
			}
			name := fmt.Sprintf("%s-%s-%s-%s", app.Name, stage, stack.Name, node.LogicalID)
			if err := client.UpdateFunctionCode(ctx, name, loc); err != nil {
				return err
			}
		}
	}
	return nil
}
