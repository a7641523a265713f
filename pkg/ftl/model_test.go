package ftl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap_Scalars(t *testing.T) {
	assert.Nil(t, Wrap(nil))
	assert.Equal(t, SimpleScalar("x"), Wrap("x"))
	assert.Equal(t, SimpleBoolean(true), Wrap(true))
	assert.Equal(t, SimpleNumber(3), Wrap(3))
	assert.Equal(t, SimpleNumber(3), Wrap(uint8(3)))
	assert.Equal(t, SimpleNumber(1.5), Wrap(float32(1.5)))

	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, SimpleDate(day), Wrap(day))
	assert.Equal(t, SimpleDate(day), Wrap(&day))
}

func TestWrap_Containers(t *testing.T) {
	m := Wrap(map[string]any{"b": 2, "a": []int{1, 2}})
	hash, ok := m.(HashExModel)
	require.True(t, ok)

	keys, err := hash.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	v, err := hash.Get("a")
	require.NoError(t, err)
	seq, ok := v.(SequenceModel)
	require.True(t, ok)
	size, err := seq.Size()
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	missing, err := hash.Get("zzz")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Equal(t, map[string]any{"b": 2, "a": []int{1, 2}}, Unwrap(m))
}

func TestWrap_PassesModelsThrough(t *testing.T) {
	h := NewSimpleHash()
	h.Put("k", SimpleScalar("v"))
	assert.Same(t, h, Wrap(h))
}

func TestWrap_GoFunction(t *testing.T) {
	fn := Wrap(func(args ...any) (any, error) {
		return len(args), nil
	})
	method, ok := fn.(MethodModel)
	require.True(t, ok)

	out, err := method.Call([]Model{SimpleScalar("a"), SimpleNumber(1)})
	require.NoError(t, err)
	assert.Equal(t, SimpleNumber(2), out)
}

func TestSimpleHash_KeepsInsertionOrder(t *testing.T) {
	h := NewSimpleHash()
	h.Put("z", SimpleNumber(1))
	h.Put("a", SimpleNumber(2))
	h.Put("z", SimpleNumber(3))

	keys, err := h.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a"}, keys)

	v, err := h.Get("z")
	require.NoError(t, err)
	assert.Equal(t, SimpleNumber(3), v)
	assert.Equal(t, map[string]any{"z": float64(3), "a": float64(2)}, Unwrap(h))
}

func TestRange(t *testing.T) {
	tests := []struct {
		from, to  int
		exclusive bool
		want      []float64
	}{
		{1, 3, false, []float64{1, 2, 3}},
		{0, 3, true, []float64{0, 1, 2}},
		{3, 1, false, []float64{3, 2, 1}},
		{2, 2, true, nil},
	}
	for _, tt := range tests {
		r := newRange(tt.from, tt.to, tt.exclusive)
		size, err := r.Size()
		require.NoError(t, err)

		var got []float64
		for i := 0; i < size; i++ {
			v, err := r.Index(i)
			require.NoError(t, err)
			got = append(got, float64(v.(SimpleNumber)))
		}
		assert.Equal(t, tt.want, got)
	}
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "missing", typeName(nil))
	assert.Equal(t, "string", typeName(SimpleScalar("x")))
	assert.Equal(t, "sequence", typeName(SimpleSequence{}))
	assert.Equal(t, "string+sequence+hash", typeName(emptyValue{}))
}
