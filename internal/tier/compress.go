package tier

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/fitstride/mediacache/internal/hash"
)

// Compression selects the algorithm used for durable-tier payload frames.
type Compression uint8

const (
	// CompressionNone stores payloads as-is. Most exercise media (GIF, PNG,
	// MP4) is already entropy-coded, so this is the default.
	CompressionNone Compression = 0
	// CompressionLZ4 is fast with modest ratios; good for hot diagrams.
	CompressionLZ4 Compression = 1
	// CompressionZSTD gives better ratios at higher CPU cost.
	CompressionZSTD Compression = 2
)

// ZSTD encoder/decoder pools for efficiency.
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Payload frame layout:
//
//	[0:4]   magic "FSM1"
//	[4]     algorithm byte (Compression)
//	[5:9]   CRC32C of the uncompressed payload, little endian
//	[9:13]  uncompressed size uint32
//	[13:17] stored size uint32 (equals uncompressed size when algo == none)
//	[17:]   stored bytes
var frameMagic = [4]byte{'F', 'S', 'M', '1'}

const frameHeaderSize = 17

// encodeFrame frames a payload for the durable tier. If compression does
// not help (ratio > 0.9) the payload is stored raw regardless of algo.
func encodeFrame(data []byte, algo Compression) ([]byte, error) {
	stored := data
	used := CompressionNone

	switch algo {
	case CompressionLZ4:
		compressed, err := compressLZ4(data)
		if err != nil {
			return nil, err
		}
		if compressed != nil && float64(len(compressed)) <= float64(len(data))*0.9 {
			stored = compressed
			used = CompressionLZ4
		}
	case CompressionZSTD:
		enc := getZstdEncoder()
		compressed := enc.EncodeAll(data, nil)
		putZstdEncoder(enc)
		if float64(len(compressed)) <= float64(len(data))*0.9 {
			stored = compressed
			used = CompressionZSTD
		}
	}

	frame := make([]byte, frameHeaderSize+len(stored))
	copy(frame[0:4], frameMagic[:])
	frame[4] = byte(used)
	binary.LittleEndian.PutUint32(frame[5:9], hash.CRC32C(data))
	binary.LittleEndian.PutUint32(frame[9:13], uint32(len(data)))
	binary.LittleEndian.PutUint32(frame[13:17], uint32(len(stored)))
	copy(frame[frameHeaderSize:], stored)
	return frame, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	compressed := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil // incompressible
	}
	return compressed[:n], nil
}

// decodeFrame validates and unpacks a durable-tier payload frame.
// Any framing, decompression or checksum failure yields ErrCorrupt.
func decodeFrame(frame []byte) ([]byte, error) {
	if len(frame) < frameHeaderSize {
		return nil, fmt.Errorf("%w: frame too small", ErrCorrupt)
	}
	if [4]byte(frame[0:4]) != frameMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}

	algo := Compression(frame[4])
	wantCRC := binary.LittleEndian.Uint32(frame[5:9])
	uncompressedSize := binary.LittleEndian.Uint32(frame[9:13])
	storedSize := binary.LittleEndian.Uint32(frame[13:17])

	if uint32(len(frame)-frameHeaderSize) < storedSize {
		return nil, fmt.Errorf("%w: truncated frame", ErrCorrupt)
	}
	stored := frame[frameHeaderSize : frameHeaderSize+int(storedSize)]

	var data []byte
	switch algo {
	case CompressionNone:
		if storedSize != uncompressedSize {
			return nil, fmt.Errorf("%w: size mismatch in raw frame", ErrCorrupt)
		}
		data = stored
	case CompressionLZ4:
		data = make([]byte, uncompressedSize)
		n, err := lz4.UncompressBlock(stored, data)
		if err != nil || uint32(n) != uncompressedSize {
			return nil, fmt.Errorf("%w: lz4 decompression failed", ErrCorrupt)
		}
	case CompressionZSTD:
		dec := getZstdDecoder()
		out, err := dec.DecodeAll(stored, make([]byte, 0, uncompressedSize))
		putZstdDecoder(dec)
		if err != nil || uint32(len(out)) != uncompressedSize {
			return nil, fmt.Errorf("%w: zstd decompression failed", ErrCorrupt)
		}
		data = out
	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrCorrupt, algo)
	}

	if hash.CRC32C(data) != wantCRC {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	return data, nil
}
