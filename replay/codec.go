package replay

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Version is the record format version written by Encode.
const Version = 1

var magic = [4]byte{'T', 'B', 'R', 'L'}

const (
	headerSize     = 12
	recordMinSize  = 5*4 + 2
	maxTextureName = math.MaxUint16
)

var (
	// ErrBadMagic is returned when decoding data that is not a replay log.
	ErrBadMagic = errors.New("not a replay log")
	// ErrUnsupportedVersion is returned for logs written by a newer format version.
	ErrUnsupportedVersion = errors.New("unsupported replay log version")
	// ErrTruncated is returned when the log ends before its declared records.
	ErrTruncated = errors.New("truncated replay log")
)

// Codec is the compression applied to the record payload.
type Codec uint16

const (
	CodecNone Codec = iota
	CodecSnappy
	CodecZstd
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecSnappy:
		return "snappy"
	case CodecZstd:
		return "zstd"
	}
	return fmt.Sprintf("Codec(%d)", uint16(c))
}

// ParseCodec parses a codec name as printed by [Codec.String].
func ParseCodec(s string) (Codec, error) {
	for c := CodecNone; c <= CodecZstd; c++ {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown replay codec %q", s)
}

// Encode writes the queued occurrences of l to w. The log is not consumed.
//
// The layout is a 12 byte header, magic "TBRL", uint16 version, uint16 codec and
// uint32 record count, followed by the record payload compressed with codec.
// Each record is five float32 (X, Y, Strength, Size, Rotation) and the texture
// name prefixed by its uint16 length. All integers and floats are little-endian.
func Encode(w io.Writer, l *Log, codec Codec) error {
	items := l.items[l.head:]
	if uint64(len(items)) > math.MaxUint32 {
		return errors.New("too many occurrences")
	}
	var payload []byte
	for i := range items {
		var err error
		payload, err = appendRecord(payload, &items[i])
		if err != nil {
			return fmt.Errorf("occurrence %d: %w", i, err)
		}
	}
	switch codec {
	case CodecNone:
	case CodecSnappy:
		payload = snappy.Encode(nil, payload)
	case CodecZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return err
		}
		payload = enc.EncodeAll(payload, nil)
		enc.Close()
	default:
		return fmt.Errorf("unknown replay codec %d", codec)
	}
	header := make([]byte, 0, headerSize)
	header = append(header, magic[:]...)
	header = binary.LittleEndian.AppendUint16(header, Version)
	header = binary.LittleEndian.AppendUint16(header, uint16(codec))
	header = binary.LittleEndian.AppendUint32(header, uint32(len(items)))
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func appendRecord(b []byte, o *Occurrence) ([]byte, error) {
	if len(o.Texture) > maxTextureName {
		return b, fmt.Errorf("texture name of %d bytes too long", len(o.Texture))
	}
	for _, v := range [5]float32{o.X, o.Y, o.Strength, o.Size, o.Rotation} {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
	}
	b = binary.LittleEndian.AppendUint16(b, uint16(len(o.Texture)))
	return append(b, o.Texture...), nil
}

// Decode reads a log written by [Encode]. An empty log decodes without error.
func Decode(r io.Reader) (*Log, error) {
	var header [headerSize]byte
	_, err := io.ReadFull(r, header[:])
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("reading header: %w", ErrTruncated)
	} else if err != nil {
		return nil, err
	}
	if !bytes.Equal(header[:4], magic[:]) {
		return nil, ErrBadMagic
	}
	version := binary.LittleEndian.Uint16(header[4:])
	if version == 0 || version > Version {
		return nil, fmt.Errorf("version %d: %w", version, ErrUnsupportedVersion)
	}
	codec := Codec(binary.LittleEndian.Uint16(header[6:]))
	count := binary.LittleEndian.Uint32(header[8:])

	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	switch codec {
	case CodecNone:
	case CodecSnappy:
		payload, err = snappy.Decode(nil, payload)
	case CodecZstd:
		var dec *zstd.Decoder
		dec, err = zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		payload, err = dec.DecodeAll(payload, nil)
		dec.Close()
	default:
		return nil, fmt.Errorf("unknown replay codec %d", codec)
	}
	if err != nil {
		return nil, fmt.Errorf("decompressing %s payload: %w", codec, err)
	}
	if uint64(count)*recordMinSize > uint64(len(payload)) {
		return nil, fmt.Errorf("%d records in %d bytes: %w", count, len(payload), ErrTruncated)
	}
	l := &Log{items: make([]Occurrence, 0, count)}
	for i := uint32(0); i < count; i++ {
		var o Occurrence
		payload, err = readRecord(payload, &o)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		l.items = append(l.items, o)
	}
	if len(payload) != 0 {
		return nil, fmt.Errorf("%d bytes of trailing data after %d records", len(payload), count)
	}
	return l, nil
}

func readRecord(b []byte, o *Occurrence) ([]byte, error) {
	if len(b) < recordMinSize {
		return b, ErrTruncated
	}
	var v [5]float32
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	o.X, o.Y, o.Strength, o.Size, o.Rotation = v[0], v[1], v[2], v[3], v[4]
	n := int(binary.LittleEndian.Uint16(b[20:]))
	b = b[recordMinSize:]
	if len(b) < n {
		return b, ErrTruncated
	}
	o.Texture = string(b[:n])
	return b[n:], nil
}
