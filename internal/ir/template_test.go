package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplate_AddAndGet(t *testing.T) {
	tpl := NewTemplate()

	require.NoError(t, tpl.Add(&Node{LogicalID: "Fn", Type: "aws.lambda.Function"}))
	require.NotNil(t, tpl.Get("Fn"))
	assert.True(t, tpl.Has("Fn"))
	assert.Nil(t, tpl.Get("Other"))

	// Duplicate logical IDs are rejected
	err := tpl.Add(&Node{LogicalID: "Fn", Type: "aws.lambda.Function"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate logical ID")
}

func TestTemplate_PatchByIdentity(t *testing.T) {
	tpl := NewTemplate()
	require.NoError(t, tpl.Add(&Node{
		LogicalID:  "Fn",
		Type:       "aws.lambda.Function",
		Properties: map[string]any{"handler": "index.placeholder"},
	}))

	// A later lookup by the same ID sees mutations in place
	tpl.Get("Fn").Properties["handler"] = "index.handler"
	assert.Equal(t, "index.handler", tpl.Get("Fn").Properties["handler"])
}

func TestStack_DependencyEdges(t *testing.T) {
	app := NewApp("demo", ModeDeploy)
	api := app.Stack("api")
	shared := app.Stack("shared")

	api.AddDependency(shared)
	api.AddDependency(shared) // duplicate edges are harmless
	api.AddDependency(api)    // self edges are ignored

	assert.Equal(t, []string{"shared"}, api.Dependencies())
	assert.Empty(t, shared.Dependencies())
	assert.Equal(t, "api.Fn", api.Addr("Fn"))
}

func TestApp_StackGetOrCreate(t *testing.T) {
	app := NewApp("demo", ModeDev)

	a := app.Stack("api")
	b := app.Stack("api")
	assert.Same(t, a, b)

	app.Stack("shared")
	stacks := app.Stacks()
	require.Len(t, stacks, 2)
	assert.Equal(t, "api", stacks[0].Name)
	assert.Equal(t, "shared", stacks[1].Name)

	_, ok := app.LookupStack("ghost")
	assert.False(t, ok)
}

func TestLayerTokens(t *testing.T) {
	token := LayerToken("shared", "Deps")
	assert.Equal(t, "ptr://shared/Deps/arn", token)
	assert.True(t, IsToken(token))
	assert.False(t, IsToken("arn:aws:lambda:us-east-1:1:layer:deps:3"))

	stack, id, ok := ParseToken(token)
	require.True(t, ok)
	assert.Equal(t, "shared", stack)
	assert.Equal(t, "Deps", id)

	_, _, ok = ParseToken("ptr://only-stack")
	assert.False(t, ok)
	_, _, ok = ParseToken("arn:aws:something")
	assert.False(t, ok)
}
