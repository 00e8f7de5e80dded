package build

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	"github.com/stackfn-io/stackfn/internal/logging"
	"github.com/stackfn-io/stackfn/internal/registry"
)

// ImageBuilder packages container-runtime functions by building a docker
// image from the function's directory. The declared handler names the
// build context directory (which must carry a Dockerfile).
type ImageBuilder struct {
	Root     string
	Registry *registry.Registry

	cli *client.Client
}

func NewImageBuilder(root string, reg *registry.Registry) (*ImageBuilder, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &ImageBuilder{Root: root, Registry: reg, cli: cli}, nil
}

func (b *ImageBuilder) Build(ctx context.Context, addr string, kind Kind) (*Result, error) {
	spec, ok := b.Registry.Lookup(addr)
	if !ok {
		return nil, &Error{Addr: addr, Messages: []string{"function was never registered"}}
	}

	contextDir := filepath.Join(b.Root, spec.Handler)
	tag := fmt.Sprintf("stackfn/%s:%s", sanitizeAddr(strings.ToLower(addr)), string(kind))

	buildCtx, err := archive.TarWithOptions(contextDir, &archive.TarOptions{})
	if err != nil {
		return nil, &Error{Addr: addr, Messages: []string{fmt.Sprintf("failed to tar build context: %v", err)}}
	}
	defer buildCtx.Close()

	resp, err := b.cli.ImageBuild(ctx, buildCtx, types.ImageBuildOptions{
		Tags:       []string{tag},
		Dockerfile: "Dockerfile",
		Remove:     true,
	})
	if err != nil {
		return nil, &Error{Addr: addr, Messages: []string{fmt.Sprintf("image build failed: %v", err)}}
	}
	defer resp.Body.Close()

	// The build stream reports failures as error lines, not an error return.
	if msgs := drainBuildStream(resp.Body); len(msgs) > 0 {
		return nil, &Error{Addr: addr, Messages: msgs}
	}

	inspect, _, err := b.cli.ImageInspectWithRaw(ctx, tag)
	if err != nil {
		return nil, &Error{Addr: addr, Messages: []string{fmt.Sprintf("failed to inspect image: %v", err)}}
	}
	logging.Debug("built function image", "address", addr, "tag", tag, "id", inspect.ID)

	return &Result{Out: tag, Image: true}, nil
}

// Prune removes a previously built function image.
func (b *ImageBuilder) Prune(ctx context.Context, tag string) error {
	_, err := b.cli.ImageRemove(ctx, tag, image.RemoveOptions{Force: true})
	if err != nil && !client.IsErrNotFound(err) {
		return fmt.Errorf("failed to remove image %s: %w", tag, err)
	}
	return nil
}

type buildStreamLine struct {
	Error string `json:"error"`
}

func drainBuildStream(r io.Reader) []string {
	var msgs []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		var line buildStreamLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			continue
		}
		if line.Error != "" {
			msgs = append(msgs, line.Error)
		}
	}
	return msgs
}
