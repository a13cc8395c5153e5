package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Name    string
	Count   int32
	Weights []float64
	Tags    map[string]string
}

func TestMsgpackStructRoundTrip(t *testing.T) {
	c := NewMsgpack()

	in := sampleRequest{
		Name:    "resize",
		Count:   3,
		Weights: []float64{0.5, 1.25},
		Tags:    map[string]string{"env": "test"},
	}

	data, err := c.Marshal(in)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	var out sampleRequest
	require.NoError(t, c.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestMsgpackScalars(t *testing.T) {
	c := NewMsgpack()

	data, err := c.Marshal(int32(42))
	require.NoError(t, err)

	var n int32
	require.NoError(t, c.Unmarshal(data, &n))
	assert.EqualValues(t, 42, n)

	data, err = c.Marshal(true)
	require.NoError(t, err)

	var b bool
	require.NoError(t, c.Unmarshal(data, &b))
	assert.True(t, b)
}

func TestMsgpackUnmarshalGarbage(t *testing.T) {
	c := NewMsgpack()

	var out sampleRequest
	err := c.Unmarshal([]byte{0xc1}, &out) // 0xc1 is never valid msgpack
	assert.Error(t, err)
}
