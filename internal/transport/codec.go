package transport

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"
)

const (
	// CodecJSON is the default text codec.
	CodecJSON = "json"
	// CodecCBOR is the binary codec negotiated through the websocket subprotocol.
	CodecCBOR = "cbor"
)

// Codec serializes envelopes for one websocket subprotocol.
type Codec interface {
	Name() string
	MessageType() int
	Marshal(value any) ([]byte, error)
	Unmarshal(data []byte, target any) error
}

type jsonCodec struct{}

// JSON returns the text codec.
func JSON() Codec { return jsonCodec{} }

func (jsonCodec) Name() string     { return CodecJSON }
func (jsonCodec) MessageType() int { return websocket.TextMessage }

func (jsonCodec) Marshal(value any) ([]byte, error) {
	return json.Marshal(value)
}

func (jsonCodec) Unmarshal(data []byte, target any) error {
	return json.Unmarshal(data, target)
}

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// CBOR returns the binary codec. Struct fields fall back to their json tags, and
// untyped maps decode with string keys so property updates look the same as over JSON.
func CBOR() (Codec, error) {
	enc, err := cbor.EncOptions{
		Sort: cbor.SortCanonical,
	}.EncMode()
	if err != nil {
		return nil, fmt.Errorf("transport: cbor encoder: %w", err)
	}
	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("transport: cbor decoder: %w", err)
	}
	return cborCodec{enc: enc, dec: dec}, nil
}

func (cborCodec) Name() string     { return CodecCBOR }
func (cborCodec) MessageType() int { return websocket.BinaryMessage }

func (c cborCodec) Marshal(value any) ([]byte, error) {
	return c.enc.Marshal(value)
}

func (c cborCodec) Unmarshal(data []byte, target any) error {
	return c.dec.Unmarshal(data, target)
}

// CodecFor resolves a subprotocol name. Empty and unknown names fall back to JSON.
func CodecFor(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case CodecCBOR:
		return CBOR()
	default:
		return JSON(), nil
	}
}

// Subprotocols lists the websocket subprotocols in preference order.
func Subprotocols() []string {
	return []string{CodecCBOR, CodecJSON}
}
