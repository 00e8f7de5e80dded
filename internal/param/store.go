// Package param is the live side of the parameter bridge: direct reads
// and writes against the parameter store, used by dev mode to advertise
// the bridge endpoint and by the param CLI command.
package param

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

type Store struct {
	client *ssm.Client
}

func NewStore(ctx context.Context, region string) (*Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}
	return &Store{client: ssm.NewFromConfig(cfg)}, nil
}

func NewStoreWithClient(client *ssm.Client) *Store {
	return &Store{client: client}
}

// Put writes a parameter, overwriting any previous value. Cross-stack
// references depend on this being repeatable, unlike a one-shot export.
func (s *Store) Put(ctx context.Context, name, value string) error {
	_, err := s.client.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(name),
		Value:     aws.String(value),
		Type:      types.ParameterTypeString,
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to put parameter %s: %w", name, err)
	}
	return nil
}

// Read returns the current value of a parameter.
func (s *Store) Read(ctx context.Context, name string) (string, error) {
	out, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("failed to read parameter %s: %w", name, err)
	}
	return aws.ToString(out.Parameter.Value), nil
}

// Delete removes a parameter; missing parameters are not an error so
// teardown stays idempotent.
func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteParameter(ctx, &ssm.DeleteParameterInput{
		Name: aws.String(name),
	})
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to delete parameter %s: %w", name, err)
	}
	return nil
}
