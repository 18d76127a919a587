// Package wire implements the binary format shared by the server and its
// clients. Messages use the protobuf wire encoding, written and read field by
// field with protowire, and travel zstd-compressed.
package wire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformed is returned for payloads that cannot be decoded.
var ErrMalformed = errors.New("malformed message")

// Message is anything that can be written to and read from the wire.
type Message interface {
	appendTo(b []byte) []byte
	decode(b []byte) error
}

// Marshal encodes m without compression.
func Marshal(m Message) []byte {
	return m.appendTo(nil)
}

// Unmarshal decodes b into m.
func Unmarshal(b []byte, m Message) error {
	if err := m.decode(b); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

type field struct {
	num   protowire.Number
	typ   protowire.Type
	v     uint64
	bytes []byte
}

func (f field) int() int {
	return int(protowire.DecodeZigZag(f.v))
}

func (f field) bool() bool {
	return f.v != 0
}

func (f field) str() string {
	return string(f.bytes)
}

// eachField walks the top level fields of a message. Fixed-width fields and
// groups are skipped.
func eachField(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.v, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			continue
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		if err := fn(f); err != nil {
			return fmt.Errorf("field %d: %w", num, err)
		}
	}
	return nil
}

func appendUint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendInt(b []byte, num protowire.Number, v int) []byte {
	return appendUint(b, num, protowire.EncodeZigZag(int64(v)))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	return appendUint(b, num, 1)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// appendMessage always writes the field so repeated empty messages survive.
func appendMessage(b []byte, num protowire.Number, m []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m)
}

func appendIDs(b []byte, num protowire.Number, ids []uint64) []byte {
	if len(ids) == 0 {
		return b
	}
	var packed []byte
	for _, id := range ids {
		packed = protowire.AppendVarint(packed, id)
	}
	return appendBytes(b, num, packed)
}

// ids reads a packed or unpacked repeated varint field.
func (f field) ids(dst []uint64) ([]uint64, error) {
	if f.typ == protowire.VarintType {
		return append(dst, f.v), nil
	}
	b := f.bytes
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return dst, protowire.ParseError(n)
		}
		dst = append(dst, v)
		b = b[n:]
	}
	return dst, nil
}

func (f field) ints(dst []int) ([]int, error) {
	raw, err := f.ids(nil)
	if err != nil {
		return dst, err
	}
	for _, v := range raw {
		dst = append(dst, int(v))
	}
	return dst, nil
}
