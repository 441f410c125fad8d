package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

const (
	// CompressionThreshold is the minimum blob size before compression is
	// considered. zstd overhead is not worth it for smaller payloads.
	CompressionThreshold = 2048

	// MaxBlobSize is the maximum allowed uncompressed blob size. Snapshot
	// payloads are small JSON records; anything near this limit is a bug.
	MaxBlobSize = 1 * 1024 * 1024 // 1MB

	// MaxDecompressedSize is the hard cap during decompression to prevent
	// compression bombs from a misbehaving store.
	MaxDecompressedSize = 1 * 1024 * 1024 // 1MB
)

// Envelope frame layout: MAGIC (4 bytes) | ENCODING (1 byte) | BODY.
var envelopeMagic = []byte("OPB1")

const (
	encodingIdentity byte = 0
	encodingZstd     byte = 1
)

var (
	// ErrBlobTooLarge is returned when a blob exceeds MaxBlobSize.
	ErrBlobTooLarge = errors.New("blob exceeds maximum size")

	// ErrDecompressionBomb is returned when decompressed size exceeds limit.
	ErrDecompressionBomb = errors.New("decompressed blob exceeds maximum size")
)

// EnvelopeCodec wraps snapshot blobs in a self-describing frame with
// optional zstd compression. Encoder and decoder are goroutine-safe and
// can be reused.
type EnvelopeCodec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	mu      sync.RWMutex
}

// NewEnvelopeCodec creates a codec with pooled zstd encoder/decoder.
func NewEnvelopeCodec() (*EnvelopeCodec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	return &EnvelopeCodec{encoder: enc, decoder: dec}, nil
}

// Close releases encoder/decoder resources.
func (c *EnvelopeCodec) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.encoder != nil {
		c.encoder.Close()
		c.encoder = nil
	}
	if c.decoder != nil {
		c.decoder.Close()
		c.decoder = nil
	}
}

// Encode frames a blob, compressing it when beneficial. The uncompressed
// size is recorded in the frame so Decode can bound its work.
func (c *EnvelopeCodec) Encode(data []byte) ([]byte, error) {
	if len(data) > MaxBlobSize {
		return nil, ErrBlobTooLarge
	}

	encoding := encodingIdentity
	body := data

	if len(data) >= CompressionThreshold {
		c.mu.RLock()
		enc := c.encoder
		c.mu.RUnlock()

		if enc != nil {
			compressed := enc.EncodeAll(data, nil)
			if len(compressed) < len(data) {
				encoding = encodingZstd
				body = compressed
			}
		}
	}

	out := make([]byte, 0, len(envelopeMagic)+1+8+len(body))
	out = append(out, envelopeMagic...)
	out = append(out, encoding)
	out = binary.BigEndian.AppendUint64(out, uint64(len(data)))
	out = append(out, body...)
	return out, nil
}

// Decode unframes a blob, decompressing if needed. Frames that do not carry
// the envelope magic are returned unchanged, so blobs written before the
// codec was introduced stay readable.
func (c *EnvelopeCodec) Decode(data []byte) ([]byte, error) {
	headerLen := len(envelopeMagic) + 1 + 8
	if len(data) < headerLen || !bytes.Equal(data[:len(envelopeMagic)], envelopeMagic) {
		return data, nil
	}

	encoding := data[len(envelopeMagic)]
	size := binary.BigEndian.Uint64(data[len(envelopeMagic)+1 : headerLen])
	body := data[headerLen:]

	switch encoding {
	case encodingIdentity:
		return body, nil
	case encodingZstd:
		if size > MaxDecompressedSize {
			return nil, ErrDecompressionBomb
		}

		c.mu.RLock()
		dec := c.decoder
		c.mu.RUnlock()

		if dec == nil {
			return nil, errors.New("decoder not initialized")
		}

		decompressed, err := dec.DecodeAll(body, nil)
		if err != nil {
			return nil, fmt.Errorf("decompressing blob: %w", err)
		}
		if uint64(len(decompressed)) > MaxDecompressedSize {
			return nil, ErrDecompressionBomb
		}
		return decompressed, nil
	default:
		return nil, fmt.Errorf("unsupported envelope encoding: %d", encoding)
	}
}
