// Package compression provides the payload codecs used by the mutation log and checkpoints.
//
// Every compressed payload is stored with a 1-byte type indicator in front of it so a log
// written with one codec stays readable after the configuration changes.
package compression

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type represents a compression algorithm.
type Type uint8

const (
	None   Type = 0x0
	Snappy Type = 0x1
	LZ4    Type = 0x4
	Zstd   Type = 0x7
)

// String returns the configuration name of the compression type.
func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case Snappy:
		return "snappy"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", t)
	}
}

// Parse maps a configuration value onto a Type. The empty string means None.
func Parse(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return None, nil
	case "snappy":
		return Snappy, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	default:
		return None, fmt.Errorf("unsupported compression: %q", name)
	}
}

// Encode compresses data and prefixes it with the type byte.
func Encode(t Type, data []byte) ([]byte, error) {
	var body []byte
	switch t {
	case None:
		body = data
	case Snappy:
		body = snappy.Encode(nil, data)
	case LZ4:
		var err error
		if body, err = compressLZ4(data); err != nil {
			return nil, err
		}
	case Zstd:
		var err error
		if body, err = compressZstd(data); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported compression type: %s", t)
	}

	out := make([]byte, 0, len(body)+1)
	out = append(out, byte(t))
	return append(out, body...), nil
}

// Decode reverses Encode.
func Decode(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	t, body := Type(payload[0]), payload[1:]
	switch t {
	case None:
		return body, nil
	case Snappy:
		return snappy.Decode(nil, body)
	case LZ4:
		return io.ReadAll(lz4.NewReader(bytes.NewReader(body)))
	case Zstd:
		return decompressZstd(body)
	default:
		return nil, fmt.Errorf("unsupported compression type: %s", t)
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if err := w.Apply(lz4.CompressionLevelOption(lz4.Fast)); err != nil {
		return nil, fmt.Errorf("lz4 apply level: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("lz4 write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lz4 close: %w", err)
	}
	return buf.Bytes(), nil
}

func compressZstd(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	defer encoder.Close()
	return encoder.EncodeAll(data, nil), nil
}

func decompressZstd(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	defer decoder.Close()
	return decoder.DecodeAll(data, nil)
}
