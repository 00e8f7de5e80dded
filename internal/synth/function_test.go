package synth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stackfn-io/stackfn/internal/artifact"
	"github.com/stackfn-io/stackfn/internal/build"
	"github.com/stackfn-io/stackfn/internal/engine"
	"github.com/stackfn-io/stackfn/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBuilder struct {
	mu      sync.Mutex
	results map[string]*build.Result
	errs    map[string]*build.Error
	delays  map[string]time.Duration
	built   []string
}

func (f *fakeBuilder) Build(ctx context.Context, addr string, kind build.Kind) (*build.Result, error) {
	if d, ok := f.delays[addr]; ok {
		time.Sleep(d)
	}
	f.mu.Lock()
	f.built = append(f.built, addr)
	f.mu.Unlock()
	if err, ok := f.errs[addr]; ok {
		return nil, err
	}
	if res, ok := f.results[addr]; ok {
		return res, nil
	}
	return &build.Result{Out: "/tmp/" + addr + ".zip", Handler: "index.handler"}, nil
}

type fakeUploader struct {
	mu      sync.Mutex
	uploads []string
}

func (f *fakeUploader) Upload(ctx context.Context, path string) (*artifact.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, path)
	return &artifact.Location{Bucket: "deploy-artifacts", Key: "artifacts/abc123.zip", Version: "v7"}, nil
}

func newTestSynthesizer(mode ir.Mode) (*Synthesizer, *fakeBuilder, *fakeUploader) {
	app := ir.NewApp("demo", mode)
	builder := &fakeBuilder{
		results: make(map[string]*build.Result),
		errs:    make(map[string]*build.Error),
		delays:  make(map[string]time.Duration),
	}
	uploader := &fakeUploader{}
	return &Synthesizer{
		Pass:      engine.NewPass(app),
		Builder:   builder,
		Artifacts: uploader,
	}, builder, uploader
}

func TestFunction_DeferredBuildPatchesNodeInPlace(t *testing.T) {
	s, _, uploader := newTestSynthesizer(ir.ModeDeploy)
	stack := s.Pass.App.Stack("api")

	node, err := s.Function(stack, "Handler", &ir.FunctionSpec{
		Handler:     "src/main.handler",
		Runtime:     "nodejs18.x",
		MemorySize:  2048,
		Environment: map[string]string{"STAGE": "prod"},
	})
	require.NoError(t, err)

	// Synchronous pass emitted the inert placeholder
	assert.Equal(t, placeholderHandler, node.Properties["handler"])
	assert.Equal(t, map[string]any{"key": placeholderKey}, node.Properties["code"])
	assert.Equal(t, 1, s.Pass.Tasks.Len())

	require.NoError(t, s.Pass.Tasks.DrainAll(context.Background()))

	// The drain patched code, runtime and handler by node identity
	patched := stack.Template.Get("Handler")
	require.NotNil(t, patched)
	assert.Equal(t, "nodejs18.x", patched.Properties["runtime"])
	assert.Equal(t, "index.handler", patched.Properties["handler"])
	assert.Equal(t, map[string]any{
		"bucket":  "deploy-artifacts",
		"key":     "artifacts/abc123.zip",
		"version": "v7",
	}, patched.Properties["code"])

	// Everything else stayed as declared
	assert.Equal(t, 2048, patched.Properties["memorySize"])
	assert.Equal(t, map[string]string{"STAGE": "prod"}, patched.Properties["environment"])
	assert.Len(t, uploader.uploads, 1)
}

func TestFunction_BuildFailureSurfacesOnlyAtDrain(t *testing.T) {
	s, builder, _ := newTestSynthesizer(ir.ModeDeploy)
	stack := s.Pass.App.Stack("api")

	builder.errs["api.fn1"] = &build.Error{
		Addr:     "api.fn1",
		Messages: []string{"missing file"},
	}

	_, err := s.Function(stack, "fn1", &ir.FunctionSpec{Handler: "src/bad.handler", Runtime: "nodejs18.x"})
	require.NoError(t, err) // never thrown synchronously

	_, err = s.Function(stack, "fn2", &ir.FunctionSpec{Handler: "src/good.handler", Runtime: "nodejs18.x"})
	require.NoError(t, err)

	err = s.Pass.Tasks.DrainAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "src/bad.handler")
	assert.Contains(t, err.Error(), "missing file")

	// The sibling still built and was patched
	assert.Contains(t, builder.built, "api.fn2")
	assert.Equal(t, "index.handler", stack.Template.Get("fn2").Properties["handler"])
}

func TestFunction_RemoveModeAttachesLayersWithoutBuilding(t *testing.T) {
	s, builder, _ := newTestSynthesizer(ir.ModeRemove)
	shared := s.Pass.App.Stack("shared")
	require.NoError(t, declareLayer(shared, "Deps", &ir.LayerConfig{Path: "layers/deps"}))
	api := s.Pass.App.Stack("api")

	node, err := s.Function(api, "Handler", &ir.FunctionSpec{
		Handler: "src/main.handler",
		Runtime: "nodejs18.x",
		Layers:  []string{ir.LayerToken("shared", "Deps")},
	})
	require.NoError(t, err)

	// Placeholder node, zero deferred tasks, layers still resolved
	assert.Equal(t, placeholderHandler, node.Properties["handler"])
	assert.Equal(t, 0, s.Pass.Tasks.Len())
	require.NoError(t, s.Pass.Tasks.DrainAll(context.Background()))
	assert.Empty(t, builder.built)

	layers, ok := node.Properties["layers"].([]string)
	require.True(t, ok)
	require.Len(t, layers, 1)
	assert.Equal(t, "ssm:///stackfn/demo/shared/layers/Deps/arn", layers[0])
	assert.Equal(t, []string{"shared"}, api.Dependencies())
}

func TestFunction_DevModeBridge(t *testing.T) {
	s, builder, _ := newTestSynthesizer(ir.ModeDev)
	stack := s.Pass.App.Stack("api")

	node, err := s.Function(stack, "Handler", &ir.FunctionSpec{
		Handler:     "src/main.handler",
		Runtime:     "python3.12",
		Timeout:     15,
		Permissions: ir.GrantList("s3:GetObject"),
	})
	require.NoError(t, err)

	// Declared runtime replaced by the bridge's, bridge bundle substituted
	assert.Equal(t, bridgeRuntime, node.Properties["runtime"])
	assert.Equal(t, bridgeHandler, node.Properties["handler"])
	assert.Equal(t, map[string]any{"local": bridgeBundle}, node.Properties["code"])
	assert.Equal(t, 0, node.Properties["retryAttempts"])
	assert.Equal(t, 15, node.Properties["timeout"])

	// Messaging grant appended after the declared ones
	assert.Equal(t, []string{"s3:GetObject", bridgeGrant}, node.Properties["permissions"])

	// No build obligation in dev mode
	assert.Equal(t, 0, s.Pass.Tasks.Len())
	assert.Empty(t, builder.built)
}

func TestFunction_DevModeDebugTimeoutAndOptOut(t *testing.T) {
	s, _, _ := newTestSynthesizer(ir.ModeDev)
	s.Pass.App.DebugIncreaseTimeout = true
	stack := s.Pass.App.Stack("api")

	node, err := s.Function(stack, "Slow", &ir.FunctionSpec{
		Handler: "src/slow.handler",
		Runtime: "nodejs18.x",
		Timeout: 15,
	})
	require.NoError(t, err)
	assert.Equal(t, maxTimeoutSeconds, node.Properties["timeout"])

	// Opting out of the bridge falls back to a full deferred build
	optOut := false
	node, err = s.Function(stack, "Pinned", &ir.FunctionSpec{
		Handler: "src/pinned.handler",
		Runtime: "nodejs18.x",
		LiveDev: &optOut,
	})
	require.NoError(t, err)
	assert.Equal(t, "nodejs18.x", node.Properties["runtime"])
	assert.Equal(t, placeholderHandler, node.Properties["handler"])
	assert.Equal(t, 1, s.Pass.Tasks.Len())
}

func TestFunction_MissingHandlerFailsSynchronously(t *testing.T) {
	s, _, _ := newTestSynthesizer(ir.ModeDeploy)
	stack := s.Pass.App.Stack("api")

	_, err := s.Function(stack, "Broken", &ir.FunctionSpec{Runtime: "nodejs18.x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler is required")
	assert.Equal(t, 0, s.Pass.Tasks.Len())
	assert.Nil(t, stack.Template.Get("Broken"))
}

func TestFunction_ContainerRuntimeOverride(t *testing.T) {
	s, builder, uploader := newTestSynthesizer(ir.ModeDeploy)
	stack := s.Pass.App.Stack("api")

	builder.results["api.Imaged"] = &build.Result{Out: "stackfn/api-imaged:deploy", Image: true}

	_, err := s.Function(stack, "Imaged", &ir.FunctionSpec{
		Handler: "functions/imaged",
		Runtime: "container",
	})
	require.NoError(t, err)
	require.NoError(t, s.Pass.Tasks.DrainAll(context.Background()))

	node := stack.Template.Get("Imaged")
	assert.Equal(t, "Image", node.Properties["packageType"])
	assert.Equal(t, map[string]any{"imageUri": "stackfn/api-imaged:deploy"}, node.Properties["code"])
	assert.NotContains(t, node.Properties, "runtime")
	assert.NotContains(t, node.Properties, "handler")
	assert.Empty(t, uploader.uploads) // image artifacts skip the bucket
}

func TestFunction_RegistryAndDefaults(t *testing.T) {
	s, _, _ := newTestSynthesizer(ir.ModeDeploy)
	stack := s.Pass.App.Stack("api")

	def := &ir.FunctionSpec{MemorySize: 2048, Permissions: ir.AllPermissions()}
	_, err := s.Function(stack, "Handler",
		&ir.FunctionSpec{Handler: "a.b", Runtime: "nodejs18.x"}, def)
	require.NoError(t, err)

	spec, ok := s.Pass.Registry.Lookup("api.Handler")
	require.True(t, ok)
	assert.Equal(t, "a.b", spec.Handler)
	assert.Equal(t, "nodejs18.x", spec.Runtime)
	assert.Equal(t, 2048, spec.MemorySize)
	require.NotNil(t, spec.Permissions)
	assert.True(t, spec.Permissions.All)

	// Universal grant renders as the sentinel
	node := stack.Template.Get("Handler")
	assert.Equal(t, "*", node.Properties["permissions"])
}
