package store

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTripSmall(t *testing.T) {
	codec, err := NewEnvelopeCodec()
	require.NoError(t, err)
	defer codec.Close()

	data := []byte(`{"kind":"bottle","text":"hello"}`)
	framed, err := codec.Encode(data)
	require.NoError(t, err)

	// Small payloads stay uncompressed.
	require.Equal(t, encodingIdentity, framed[len(envelopeMagic)])

	got, err := codec.Decode(framed)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestEnvelopeRoundTripCompressed(t *testing.T) {
	codec, err := NewEnvelopeCodec()
	require.NoError(t, err)
	defer codec.Close()

	data := bytes.Repeat([]byte(`{"likeCount":0,"commentCount":0}`), 200)
	require.Greater(t, len(data), CompressionThreshold)

	framed, err := codec.Encode(data)
	require.NoError(t, err)
	require.Equal(t, encodingZstd, framed[len(envelopeMagic)])
	require.Less(t, len(framed), len(data))

	got, err := codec.Decode(framed)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestEnvelopeDecodeUnframedPassthrough(t *testing.T) {
	codec, err := NewEnvelopeCodec()
	require.NoError(t, err)
	defer codec.Close()

	raw := []byte(`{"kind":"bottle"}`)
	got, err := codec.Decode(raw)
	require.NoError(t, err)
	require.Equal(t, raw, got)
}

func TestEnvelopeEncodeRejectsOversize(t *testing.T) {
	codec, err := NewEnvelopeCodec()
	require.NoError(t, err)
	defer codec.Close()

	_, err = codec.Encode(make([]byte, MaxBlobSize+1))
	require.ErrorIs(t, err, ErrBlobTooLarge)
}

func TestEnvelopeDecodeRejectsBomb(t *testing.T) {
	codec, err := NewEnvelopeCodec()
	require.NoError(t, err)
	defer codec.Close()

	// Forge a frame claiming an oversized decompressed size.
	frame := append([]byte{}, envelopeMagic...)
	frame = append(frame, encodingZstd)
	frame = binary.BigEndian.AppendUint64(frame, MaxDecompressedSize+1)
	frame = append(frame, []byte("junk")...)

	_, err = codec.Decode(frame)
	require.ErrorIs(t, err, ErrDecompressionBomb)
}

func TestEnvelopeDecodeRejectsUnknownEncoding(t *testing.T) {
	codec, err := NewEnvelopeCodec()
	require.NoError(t, err)
	defer codec.Close()

	frame := append([]byte{}, envelopeMagic...)
	frame = append(frame, byte(9))
	frame = binary.BigEndian.AppendUint64(frame, 4)
	frame = append(frame, []byte("body")...)

	_, err = codec.Decode(frame)
	require.Error(t, err)
}
