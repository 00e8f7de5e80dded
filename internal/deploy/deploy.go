// Package deploy pushes build results directly to already-provisioned
// functions: the fast path for code-only changes that skips a full
// template deployment.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/smithy-go"
	"github.com/stackfn-io/stackfn/internal/artifact"
	"github.com/stackfn-io/stackfn/internal/logging"
)

type Client struct {
	lambda *lambda.Client
}

func New(ctx context.Context, region string) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}
	return &Client{lambda: lambda.NewFromConfig(cfg)}, nil
}

func NewWithClient(client *lambda.Client) *Client {
	return &Client{lambda: client}
}

// UpdateFunctionCode points an existing function at a freshly uploaded
// artifact. The function must have been provisioned by a prior full
// deployment; only code, never configuration, moves through this path.
func (c *Client) UpdateFunctionCode(ctx context.Context, functionName string, loc *artifact.Location) error {
	input := &lambda.UpdateFunctionCodeInput{
		FunctionName: aws.String(functionName),
		S3Bucket:     aws.String(loc.Bucket),
		S3Key:        aws.String(loc.Key),
	}
	if loc.Version != "" {
		input.S3ObjectVersion = aws.String(loc.Version)
	}

	_, err := c.lambda.UpdateFunctionCode(ctx, input)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceNotFoundException" {
			return fmt.Errorf("function %s has never been deployed; run a full deploy first", functionName)
		}
		return fmt.Errorf("failed to update code for %s: %w", functionName, err)
	}
	logging.Info("updated function code", "function", functionName, "key", loc.Key)
	return nil
}

// PublishLayer publishes a new layer version from a local zip and returns
// the version ARN. Every publish produces a new immutable version, which
// is exactly why cross-stack consumers read the ARN through the parameter
// bridge instead of a baked-in export.
func (c *Client) PublishLayer(ctx context.Context, name, zipPath string, compatibleRuntimes []string) (string, error) {
	zipBytes, err := os.ReadFile(zipPath)
	if err != nil {
		return "", fmt.Errorf("failed to read layer bundle: %w", err)
	}

	input := &lambda.PublishLayerVersionInput{
		LayerName: aws.String(name),
		Content:   &lambdatypes.LayerVersionContentInput{ZipFile: zipBytes},
	}
	for _, r := range compatibleRuntimes {
		input.CompatibleRuntimes = append(input.CompatibleRuntimes, lambdatypes.Runtime(r))
	}

	resp, err := c.lambda.PublishLayerVersion(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to publish layer %s: %w", name, err)
	}
	logging.Info("published layer version", "layer", name, "arn", aws.ToString(resp.LayerVersionArn))
	return aws.ToString(resp.LayerVersionArn), nil
}
