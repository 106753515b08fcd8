package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tidwall/jsonc"

	"github.com/mesh-intelligence/settings-sdk/internal/codec"
	"github.com/mesh-intelligence/settings-sdk/pkg/types"
)

// maxFrame bounds a single request read by Serve.
const maxFrame = 16 << 20

// Codec converts requests and responses to and from one wire encoding.
type Codec interface {
	// Name is the encoding name used in configuration: "json" or "cbor".
	Name() string
	DecodeRequest(raw []byte) (Request, error)
	EncodeResponse(resp Response) ([]byte, error)
	// Frames splits a stream of requests for Serve.
	Frames(r io.Reader) FrameReader
	// WriteFrame writes one encoded response to a stream.
	WriteFrame(w io.Writer, frame []byte) error
}

// FrameReader yields one raw request at a time and io.EOF at the end of the
// stream.
type FrameReader interface {
	Next() ([]byte, error)
}

// CodecFor returns the codec for an encoding name.
func CodecFor(name string) (Codec, error) {
	switch name {
	case types.EncodingJSON, "":
		return JSON{}, nil
	case types.EncodingCBOR:
		return CBOR{}, nil
	}
	return nil, fmt.Errorf("%w: %q", types.ErrEncodingUnknown, name)
}

// JSON encodes messages as JSON. Requests may contain comments and trailing
// commas; unknown fields are ignored so older extensions accept requests
// from newer orchestrators. In a stream each request is one line.
type JSON struct{}

// Name returns "json".
func (JSON) Name() string { return types.EncodingJSON }

// DecodeRequest parses a JSON request.
func (JSON) DecodeRequest(raw []byte) (Request, error) {
	data := bytes.TrimSpace(jsonc.ToJSON(raw))
	if len(data) == 0 {
		return Request{}, &types.ProtocolError{Reason: "empty request"}
	}
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, &types.ProtocolError{Reason: "decode request: " + err.Error()}
	}
	return req, nil
}

// EncodeResponse renders a response as compact JSON.
func (JSON) EncodeResponse(resp Response) ([]byte, error) {
	return json.Marshal(resp)
}

// Frames splits the stream on newlines. Blank lines are skipped.
func (JSON) Frames(r io.Reader) FrameReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxFrame)
	return &lineFrames{sc: sc}
}

// WriteFrame writes frame followed by a newline.
func (JSON) WriteFrame(w io.Writer, frame []byte) error {
	if _, err := w.Write(frame); err != nil {
		return err
	}
	_, err := w.Write([]byte{'\n'})
	return err
}

type lineFrames struct {
	sc *bufio.Scanner
}

func (f *lineFrames) Next() ([]byte, error) {
	for f.sc.Scan() {
		line := bytes.TrimSpace(f.sc.Bytes())
		if len(line) == 0 {
			continue
		}
		return bytes.Clone(line), nil
	}
	if err := f.sc.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// CBOR encodes messages as deterministic CBOR. CBOR items are
// self-delimiting, so a stream is a plain concatenation of requests.
type CBOR struct{}

// Name returns "cbor".
func (CBOR) Name() string { return types.EncodingCBOR }

// DecodeRequest parses a CBOR request.
func (CBOR) DecodeRequest(raw []byte) (Request, error) {
	if len(raw) == 0 {
		return Request{}, &types.ProtocolError{Reason: "empty request"}
	}
	var req Request
	if err := codec.Unmarshal(raw, &req); err != nil {
		return Request{}, &types.ProtocolError{Reason: "decode request: " + err.Error()}
	}
	return req, nil
}

// EncodeResponse renders a response as CBOR.
func (CBOR) EncodeResponse(resp Response) ([]byte, error) {
	return codec.Marshal(resp)
}

// Frames reads one CBOR data item at a time.
func (CBOR) Frames(r io.Reader) FrameReader {
	return &cborFrames{dec: codec.NewDecoder(r)}
}

// WriteFrame writes frame unchanged.
func (CBOR) WriteFrame(w io.Writer, frame []byte) error {
	_, err := w.Write(frame)
	return err
}

type cborFrames struct {
	dec *codec.Decoder
}

func (f *cborFrames) Next() ([]byte, error) {
	var raw codec.RawMessage
	if err := f.dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	return raw, nil
}
