package cache

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"

	"github.com/conduit-lang/serializer/pkg/document"
)

// Codec converts rendered fragments to and from stored bytes
type Codec interface {
	Encode(fragment *document.Object) ([]byte, error)
	Decode(data []byte) (*document.Object, error)
}

// frame markers, the first byte of every stored fragment
const (
	frameJSON byte = 'j'
	frameZstd byte = 'z'
)

// ErrCorruptFragment is returned when stored bytes cannot be decoded
var ErrCorruptFragment = errors.New("corrupt cached fragment")

// zstd encoders and decoders are safe for concurrent use, so one pair serves
// every codec
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("cache: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("cache: zstd decoder initialization failed: " + err.Error())
	}
}

// JSONCodec stores fragments as JSON, optionally zstd-compressed. Decoding
// accepts both framings regardless of the compression setting.
type JSONCodec struct {
	compress bool
}

// NewJSONCodec creates a JSON codec
func NewJSONCodec(compress bool) *JSONCodec {
	return &JSONCodec{compress: compress}
}

// Encode marshals the fragment preserving key order
func (c *JSONCodec) Encode(fragment *document.Object) ([]byte, error) {
	if fragment == nil {
		fragment = document.New(0)
	}
	data, err := json.Marshal(fragment)
	if err != nil {
		return nil, fmt.Errorf("encode fragment: %w", err)
	}
	if c.compress {
		return append([]byte{frameZstd}, zstdEncoder.EncodeAll(data, nil)...), nil
	}
	return append([]byte{frameJSON}, data...), nil
}

// Decode unmarshals a stored fragment
func (c *JSONCodec) Decode(data []byte) (*document.Object, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty value", ErrCorruptFragment)
	}

	payload := data[1:]
	switch data[0] {
	case frameJSON:
	case frameZstd:
		var err error
		payload, err = zstdDecoder.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptFragment, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown frame %q", ErrCorruptFragment, data[0])
	}

	fragment := document.New(0)
	if err := json.Unmarshal(payload, fragment); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFragment, err)
	}
	return fragment, nil
}
