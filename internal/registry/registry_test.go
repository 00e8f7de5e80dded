package registry

import (
	"testing"

	"github.com/stackfn-io/stackfn/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_LastWriteWins(t *testing.T) {
	r := New()

	r.Register("api.Handler", &ir.FunctionSpec{Handler: "old.handler"})
	r.Register("api.Handler", &ir.FunctionSpec{Handler: "new.handler"})

	spec, ok := r.Lookup("api.Handler")
	require.True(t, ok)
	assert.Equal(t, "new.handler", spec.Handler)

	_, ok = r.Lookup("api.Missing")
	assert.False(t, ok)
}

func TestRegistry_All(t *testing.T) {
	r := New()
	r.Register("api.A", &ir.FunctionSpec{Handler: "a.handler"})
	r.Register("jobs.B", &ir.FunctionSpec{Handler: "b.handler"})

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a.handler", all["api.A"].Handler)

	// All returns a copy; mutating it does not affect the registry
	delete(all, "api.A")
	_, ok := r.Lookup("api.A")
	assert.True(t, ok)

	assert.Equal(t, []string{"api.A", "jobs.B"}, r.Addrs())
}
