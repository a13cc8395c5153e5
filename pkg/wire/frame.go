// Package wire implements the framed binary codec for the wirecall protocol.
//
// Every frame on the socket is a 4-byte big-endian length prefix followed by
// the frame body. All integer fields are big-endian signed 32-bit values and
// all strings are UTF-8. The payload bytes carried inside a frame are opaque
// to this package; payload serialization lives behind the payload.Codec
// boundary.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxFrameSize is the frame size guard applied by readers when no
// explicit limit is configured. Frames declaring a larger body are rejected
// before any allocation.
const DefaultMaxFrameSize = 16 << 20 // 16 MiB

var (
	// ErrMalformedFrame reports a frame body whose declared lengths do not
	// fit the buffer, or a length prefix outside the allowed range.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrShortRead reports a stream that ended in the middle of a frame.
	ErrShortRead = errors.New("short read")
)

// Query is the request frame: a dispatch id correlating the request with its
// response, the name of the server-side handler, and the opaque payload.
type Query struct {
	Dispatch int32
	Handler  string
	Data     []byte
}

// Response is the reply frame. ErrorMsg is empty exactly when the server had
// no message to report; OK=false with an empty ErrorMsg is valid.
type Response struct {
	OK       bool
	Dispatch int32
	ErrorMsg string
	Data     []byte
}

// EncodeQuery encodes a query frame body.
//
// Layout:
//
//	bytes 0..3   dispatch (int32)
//	bytes 4..7   handler length (int32, nonnegative)
//	...          handler name (UTF-8)
//	remainder    opaque payload
func EncodeQuery(q *Query) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, 8+len(q.Handler)+len(q.Data)))
	_ = binary.Write(buf, binary.BigEndian, q.Dispatch)
	_ = binary.Write(buf, binary.BigEndian, int32(len(q.Handler)))
	buf.WriteString(q.Handler)
	buf.Write(q.Data)
	return buf.Bytes()
}

// DecodeQuery decodes a query frame body produced by EncodeQuery.
func DecodeQuery(body []byte) (*Query, error) {
	if len(body) < 8 {
		return nil, fmt.Errorf("%w: query header needs 8 bytes, have %d", ErrMalformedFrame, len(body))
	}

	dispatch := int32(binary.BigEndian.Uint32(body[0:4]))
	handlerLen := int32(binary.BigEndian.Uint32(body[4:8]))
	if handlerLen < 0 || int64(handlerLen) > int64(len(body)-8) {
		return nil, fmt.Errorf("%w: handler length %d exceeds body", ErrMalformedFrame, handlerLen)
	}

	handler := string(body[8 : 8+handlerLen])
	data := make([]byte, len(body)-8-int(handlerLen))
	copy(data, body[8+handlerLen:])

	return &Query{
		Dispatch: dispatch,
		Handler:  handler,
		Data:     data,
	}, nil
}

// EncodeResponse encodes a response frame body.
//
// Layout:
//
//	byte 0       ok (1 success, 0 failure)
//	bytes 1..4   dispatch (int32)
//	bytes 5..8   error message length (int32, nonnegative, 0 when absent)
//	...          error message (UTF-8)
//	remainder    opaque payload
func EncodeResponse(r *Response) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, 9+len(r.ErrorMsg)+len(r.Data)))
	if r.OK {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	_ = binary.Write(buf, binary.BigEndian, r.Dispatch)
	_ = binary.Write(buf, binary.BigEndian, int32(len(r.ErrorMsg)))
	buf.WriteString(r.ErrorMsg)
	buf.Write(r.Data)
	return buf.Bytes()
}

// DecodeResponse decodes a response frame body produced by EncodeResponse.
func DecodeResponse(body []byte) (*Response, error) {
	if len(body) < 9 {
		return nil, fmt.Errorf("%w: response header needs 9 bytes, have %d", ErrMalformedFrame, len(body))
	}

	ok := body[0] != 0
	dispatch := int32(binary.BigEndian.Uint32(body[1:5]))
	errorLen := int32(binary.BigEndian.Uint32(body[5:9]))
	if errorLen < 0 || int64(errorLen) > int64(len(body)-9) {
		return nil, fmt.Errorf("%w: error length %d exceeds body", ErrMalformedFrame, errorLen)
	}

	errorMsg := string(body[9 : 9+errorLen])
	data := make([]byte, len(body)-9-int(errorLen))
	copy(data, body[9+errorLen:])

	return &Response{
		OK:       ok,
		Dispatch: dispatch,
		ErrorMsg: errorMsg,
		Data:     data,
	}, nil
}

// WriteFrame writes a length-prefixed frame to w. The writer side of a
// connection is owned by exactly one goroutine, so no locking happens here.
func WriteFrame(w io.Writer, body []byte) error {
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(body)))
	if _, err := w.Write(prefix[:]); err != nil {
		return fmt.Errorf("write frame prefix: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write frame body: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame body from r.
//
// A clean EOF before the first prefix byte is returned as io.EOF so callers
// can detect normal peer disconnect. A stream ending anywhere inside the
// frame is reported as ErrShortRead. maxSize guards against hostile or
// corrupt prefixes; pass 0 for DefaultMaxFrameSize.
func ReadFrame(r io.Reader, maxSize uint32) ([]byte, error) {
	if maxSize == 0 {
		maxSize = DefaultMaxFrameSize
	}

	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: frame prefix: %v", ErrShortRead, err)
		}
		// Socket-level failure (deadline, closed connection), not a
		// protocol violation.
		return nil, err
	}

	length := binary.BigEndian.Uint32(prefix[:])
	if length > 1<<31-1 || length > maxSize {
		return nil, fmt.Errorf("%w: declared frame size %d exceeds limit %d", ErrMalformedFrame, length, maxSize)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: frame body: %v", ErrShortRead, err)
		}
		return nil, err
	}
	return body, nil
}
