package codec

import (
	"testing"

	"github.com/hupe1980/stitchgo/mesh"
	"github.com/hupe1980/stitchgo/pattern"
	"github.com/hupe1980/stitchgo/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "go-json", "msgpack"} {
		c, ok := ByName(name)
		require.True(t, ok, name)
		assert.Equal(t, name, c.Name())
	}

	_, ok := ByName("protobuf")
	assert.False(t, ok)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "json", Extension(JSON{}))
	assert.Equal(t, "json", Extension(GoJSON{}))
	assert.Equal(t, "msgpack", Extension(Msgpack{}))

	c, ok := ByExtension("json")
	require.True(t, ok)
	assert.Equal(t, Default, c)

	c, ok = ByExtension("msgpack")
	require.True(t, ok)
	assert.Equal(t, "msgpack", c.Name())
}

func TestJSONCodecsAgree(t *testing.T) {
	p := pattern.Assemble(testutil.UnitSquare())

	std, err := JSON{}.Marshal(p)
	require.NoError(t, err)
	fast, err := GoJSON{}.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, string(std), string(fast))
}

func TestPayloadRoundTrip(t *testing.T) {
	in := mesh.PayloadFrom("item-1", testutil.UnitSquare())

	for _, c := range []Codec{JSON{}, GoJSON{}, Msgpack{}} {
		t.Run(c.Name(), func(t *testing.T) {
			data := MustMarshal(c, in)

			var out mesh.Payload
			require.NoError(t, c.Unmarshal(data, &out))
			assert.Equal(t, *in, out)

			m, err := out.Mesh()
			require.NoError(t, err)
			assert.Equal(t, 4, m.Len())
		})
	}
}

func TestPayloadFieldKey(t *testing.T) {
	var p mesh.Payload
	require.NoError(t, GoJSON{}.Unmarshal([]byte(`{"vertices":[[0,0,0]],"faces":[],"u_vfaOut":[1.5]}`), &p))
	assert.Equal(t, []float64{1.5}, p.Field)
	assert.Empty(t, p.ID)
}

func TestMustMarshal_Default(t *testing.T) {
	assert.Equal(t, []byte(`{"a":1}`), MustMarshal(nil, map[string]int{"a": 1}))
}
