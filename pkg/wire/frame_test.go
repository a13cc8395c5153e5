package wire

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryRoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		query Query
	}{
		{"basic", Query{Dispatch: 7, Handler: "echo", Data: []byte{0xde, 0xad}}},
		{"empty payload", Query{Dispatch: 1, Handler: "x", Data: nil}},
		{"empty handler", Query{Dispatch: -3, Handler: "", Data: []byte("payload")}},
		{"utf8 handler", Query{Dispatch: 1 << 30, Handler: "caffè", Data: []byte{0}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := EncodeQuery(&tc.query)
			got, err := DecodeQuery(body)
			require.NoError(t, err)
			assert.Equal(t, tc.query.Dispatch, got.Dispatch)
			assert.Equal(t, tc.query.Handler, got.Handler)
			if len(tc.query.Data) == 0 {
				assert.Empty(t, got.Data)
			} else {
				assert.Equal(t, tc.query.Data, got.Data)
			}
		})
	}
}

func TestResponseRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		resp Response
	}{
		{"success", Response{OK: true, Dispatch: 42, ErrorMsg: "", Data: []byte{1, 2, 3}}},
		{"failure with message", Response{OK: false, Dispatch: 9, ErrorMsg: "boom", Data: nil}},
		{"failure without message", Response{OK: false, Dispatch: 0, ErrorMsg: "", Data: nil}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := EncodeResponse(&tc.resp)
			got, err := DecodeResponse(body)
			require.NoError(t, err)
			assert.Equal(t, tc.resp.OK, got.OK)
			assert.Equal(t, tc.resp.Dispatch, got.Dispatch)
			assert.Equal(t, tc.resp.ErrorMsg, got.ErrorMsg)
			if len(tc.resp.Data) == 0 {
				assert.Empty(t, got.Data)
			} else {
				assert.Equal(t, tc.resp.Data, got.Data)
			}
		})
	}
}

func TestQueryWireLayout(t *testing.T) {
	body := EncodeQuery(&Query{Dispatch: 0x01020304, Handler: "ab", Data: []byte{0xff}})

	require.Len(t, body, 8+2+1)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, body[0:4], "dispatch is big-endian")
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x02}, body[4:8], "handler length is big-endian")
	assert.Equal(t, []byte("ab"), body[8:10])
	assert.Equal(t, []byte{0xff}, body[10:])
}

func TestResponseWireLayout(t *testing.T) {
	body := EncodeResponse(&Response{OK: false, Dispatch: 5, ErrorMsg: "x", Data: []byte{0xaa}})

	require.Len(t, body, 9+1+1)
	assert.Equal(t, byte(0), body[0], "ok flag")
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x05}, body[1:5])
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x01}, body[5:9])
	assert.Equal(t, byte('x'), body[9])
	assert.Equal(t, byte(0xaa), body[10])
}

func TestDecodeQueryMalformed(t *testing.T) {
	t.Run("truncated header", func(t *testing.T) {
		_, err := DecodeQuery([]byte{1, 2, 3})
		assert.ErrorIs(t, err, ErrMalformedFrame)
	})

	t.Run("handler length exceeds body", func(t *testing.T) {
		body := make([]byte, 10)
		binary.BigEndian.PutUint32(body[4:8], 100)
		_, err := DecodeQuery(body)
		assert.ErrorIs(t, err, ErrMalformedFrame)
	})

	t.Run("negative handler length", func(t *testing.T) {
		body := make([]byte, 12)
		binary.BigEndian.PutUint32(body[4:8], 0x80000001)
		_, err := DecodeQuery(body)
		assert.ErrorIs(t, err, ErrMalformedFrame)
	})
}

func TestDecodeResponseMalformed(t *testing.T) {
	t.Run("truncated header", func(t *testing.T) {
		_, err := DecodeResponse([]byte{1, 0, 0})
		assert.ErrorIs(t, err, ErrMalformedFrame)
	})

	t.Run("error length exceeds body", func(t *testing.T) {
		body := make([]byte, 12)
		binary.BigEndian.PutUint32(body[5:9], 50)
		_, err := DecodeResponse(body)
		assert.ErrorIs(t, err, ErrMalformedFrame)
	})
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	body := EncodeQuery(&Query{Dispatch: 3, Handler: "sum", Data: []byte("payload")})

	require.NoError(t, WriteFrame(&buf, body))

	got, err := ReadFrame(&buf, 0)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestReadFrameCleanEOF(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(nil), 0)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadFrameShortRead(t *testing.T) {
	t.Run("mid prefix", func(t *testing.T) {
		_, err := ReadFrame(bytes.NewReader([]byte{0, 0}), 0)
		assert.ErrorIs(t, err, ErrShortRead)
	})

	t.Run("mid body", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteFrame(&buf, []byte("hello")))
		truncated := buf.Bytes()[:buf.Len()-2]
		_, err := ReadFrame(bytes.NewReader(truncated), 0)
		assert.ErrorIs(t, err, ErrShortRead)
	})
}

func TestReadFrameSizeGuard(t *testing.T) {
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], 1<<24)
	_, err := ReadFrame(bytes.NewReader(prefix[:]), 1<<16)
	assert.ErrorIs(t, err, ErrMalformedFrame)
}
