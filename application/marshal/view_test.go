package marshal

import (
	"fmt"
	"testing"

	"github.com/dop251/goja"
	"github.com/reglet-dev/reglet-script/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViewRuntime(t *testing.T, alive func() error) (*goja.Runtime, *entities.ArgumentList, *entities.ArgumentList) {
	t.Helper()

	in := entities.NewArgumentList().MustAdd("a", entities.TypeInt32, entities.WithDefault(int32(1)))
	out := entities.NewArgumentList().
		MustAdd("b", entities.TypeInt32).
		MustAdd("tags", entities.ArrayOf(entities.TypeString))

	rt := goja.New()
	m := New()
	require.NoError(t, rt.Set("input", m.NewArgumentListView(rt, in, alive)))
	require.NoError(t, rt.Set("output", m.NewArgumentListView(rt, out, alive)))
	return rt, in, out
}

func TestArgumentListView_WriteThrough(t *testing.T) {
	rt, _, out := newViewRuntime(t, nil)

	_, err := rt.RunString("output.b = input.a + 1; output.tags = ['x', 'y']")
	require.NoError(t, err)

	b, ok := out.Value("b")
	require.True(t, ok)
	assert.Equal(t, int32(2), b)

	tags, ok := out.Value("tags")
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, tags)
}

func TestArgumentListView_ReadsHostChanges(t *testing.T) {
	rt, in, _ := newViewRuntime(t, nil)

	require.NoError(t, in.SetValue("a", int32(41)))
	v, err := rt.RunString("input.a + 1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.Export())
}

func TestArgumentListView_Enumeration(t *testing.T) {
	rt, _, _ := newViewRuntime(t, nil)

	v, err := rt.RunString("Object.keys(output).join(',') + ':' + ('b' in output) + ':' + ('zz' in output)")
	require.NoError(t, err)
	assert.Equal(t, "b,tags:true:false", v.String())
}

func TestArgumentListView_DeleteRestoresDefault(t *testing.T) {
	rt, in, _ := newViewRuntime(t, nil)

	_, err := rt.RunString("input.a = 9; delete input.a")
	require.NoError(t, err)

	v, ok := in.Value("a")
	require.True(t, ok)
	assert.Equal(t, int32(1), v)
}

func TestArgumentListView_Errors(t *testing.T) {
	rt, _, out := newViewRuntime(t, nil)

	_, err := rt.RunString("output.b = 'two'")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot convert string to int32")
	_, set := out.Value("b")
	assert.False(t, set)

	_, err = rt.RunString("output.nope = 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no argument named "nope"`)
}

func TestArgumentListView_AliveCheck(t *testing.T) {
	freed := false
	rt, _, _ := newViewRuntime(t, func() error {
		if freed {
			return fmt.Errorf("handle has been freed")
		}
		return nil
	})

	_, err := rt.RunString("input.a")
	require.NoError(t, err)

	freed = true
	_, err = rt.RunString("input.a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handle has been freed")

	// The error is catchable from script code.
	v, err := rt.RunString("try { output.b = 1; 'no' } catch (e) { 'caught' }")
	require.NoError(t, err)
	assert.Equal(t, "caught", v.String())
}
