package confignode

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONRoundTrip(t *testing.T) {
	src := `{"name":"rf","randomSeed":42,"threshold":0.75,"enabled":true,"notes":null,"tags":["a","b"],"nested":{"x":1}}`

	n, err := ParseJSON([]byte(src))
	require.NoError(t, err)
	require.True(t, n.IsObject())

	out, err := n.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, src, string(out), "key order and primitive types must survive the round trip")
}

func TestParseJSONPreservesNumericForm(t *testing.T) {
	n, err := ParseJSON([]byte(`{"int":42,"float":0.5,"big":12345678901234}`))
	require.NoError(t, err)

	intNode, _ := n.Get("int")
	v, err := intNode.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	floatNode, _ := n.Get("float")
	f, err := floatNode.Float64()
	require.NoError(t, err)
	assert.Equal(t, 0.5, f)

	out, err := n.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(out), `"big":12345678901234`, "large integers must not degrade to float notation")
}

func TestParseJSONErrors(t *testing.T) {
	cases := []string{
		`{"unterminated":`,
		`{"a":1} trailing`,
		``,
	}
	for _, src := range cases {
		_, err := ParseJSON([]byte(src))
		assert.Error(t, err, "input %q", src)
	}
}

func TestParseYAML(t *testing.T) {
	src := []byte("action: trainModel\nrandomSeed: 42\nratio: 0.3\nenabled: true\nsegments:\n  - name: uc01\n  - name: uc02\n")

	n, err := ParseYAML(src)
	require.NoError(t, err)

	action, _ := n.Get("action")
	assert.Equal(t, "trainModel", action.StringValue())

	seed, _ := n.Get("randomSeed")
	v, err := seed.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	segments, _ := n.Get("segments")
	require.True(t, segments.IsArray())
	assert.Equal(t, 2, segments.Len())
}

func TestCloneIsDeep(t *testing.T) {
	n, err := ParseJSON([]byte(`{"a":{"b":[1,2]}}`))
	require.NoError(t, err)

	clone := n.Clone()
	clone.SetPath("a.b", String("mutated"))

	orig, ok := n.GetPath("a.b")
	require.True(t, ok)
	assert.True(t, orig.IsArray(), "mutating the clone must not affect the original")
}

func TestSetPathCreatesIntermediates(t *testing.T) {
	n := Object()
	n.SetPath("output.directory", String("target/datasets"))
	n.SetPath("output.filename", String("benign.arff"))
	n.SetPath("randomSeed", Int(7))

	dir, ok := n.GetPath("output.directory")
	require.True(t, ok)
	assert.Equal(t, "target/datasets", dir.StringValue())

	out, err := n.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"output":{"directory":"target/datasets","filename":"benign.arff"},"randomSeed":7}`, string(out))
}

func TestSetPathReplacesNonObjectIntermediate(t *testing.T) {
	n, err := ParseJSON([]byte(`{"output":"flat"}`))
	require.NoError(t, err)

	n.SetPath("output.directory", String("d"))

	dir, ok := n.GetPath("output.directory")
	require.True(t, ok)
	assert.Equal(t, "d", dir.StringValue())
}

func TestSetPathIdempotent(t *testing.T) {
	apply := func(n *Node) {
		n.SetPath("simulation.duration", Int(600))
		n.SetPath("output.filename", String("ds.arff"))
	}

	a, _ := ParseJSON([]byte(`{"simulation":{"duration":100},"keep":1}`))
	b := a.Clone()
	apply(a)
	apply(b)
	apply(b)

	aj, _ := a.MarshalJSON()
	bj, _ := b.MarshalJSON()
	if diff := cmp.Diff(string(aj), string(bj)); diff != "" {
		t.Errorf("override application is not idempotent (-once +twice):\n%s", diff)
	}
}

func TestNodeEmbeddedUnmarshal(t *testing.T) {
	type holder struct {
		Overrides *Node `json:"parameterOverrides"`
	}
	var h holder
	err := json.Unmarshal([]byte(`{"parameterOverrides":{"randomSeed":99}}`), &h)
	require.NoError(t, err)
	require.NotNil(t, h.Overrides)

	seed, ok := h.Overrides.Get("randomSeed")
	require.True(t, ok)
	v, err := seed.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(99), v)
}

func TestInt64FromNumericString(t *testing.T) {
	v, err := String("42").Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	_, err = String("not-a-number").Int64()
	assert.Error(t, err)
}
