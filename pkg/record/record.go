// Package record provides declarative fixed-length little-endian binary records.
//
// A Layout is declared once as an ordered list of typed fields. The byte length
// is derived from the fields at declaration time and is authoritative for both
// reading and writing, so field order and wire layout can never drift apart.
package record

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// ErrMissingField is returned when a record is built without a value for a
// field that has no default.
var ErrMissingField = errors.New("missing record field")

// MissingFieldError lists every field that had neither a value nor a default.
type MissingFieldError struct {
	Layout string
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing fields %s", e.Layout, strings.Join(e.Fields, ", "))
}

// Unwrap lets errors.Is match ErrMissingField.
func (e *MissingFieldError) Unwrap() error {
	return ErrMissingField
}

// Kind is the wire type of a field.
type Kind uint8

const (
	KindUint8 Kind = iota + 1
	KindInt8
	KindUint16
	KindInt16
	KindUint32
	KindInt32
	KindFloat32
	KindBytes // fixed width, NUL padded
	KindPad   // unnamed zero bytes
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindUint8:
		return "u8"
	case KindInt8:
		return "i8"
	case KindUint16:
		return "u16"
	case KindInt16:
		return "i16"
	case KindUint32:
		return "u32"
	case KindInt32:
		return "i32"
	case KindFloat32:
		return "f32"
	case KindBytes:
		return "bytes"
	case KindPad:
		return "pad"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

func (k Kind) width() int {
	switch k {
	case KindUint8, KindInt8:
		return 1
	case KindUint16, KindInt16:
		return 2
	case KindUint32, KindInt32, KindFloat32:
		return 4
	default:
		return 0
	}
}

// Field is one entry of a layout.
type Field struct {
	Name    string
	Kind    Kind
	Len     int // byte width for KindBytes and KindPad
	Default any
}

// WithDefault returns a copy of f with a default value.
func (f Field) WithDefault(v any) Field {
	f.Default = v
	return f
}

func (f Field) size() int {
	if f.Kind == KindBytes || f.Kind == KindPad {
		return f.Len
	}
	return f.Kind.width()
}

// U8 declares an unsigned byte field.
func U8(name string) Field { return Field{Name: name, Kind: KindUint8} }

// I8 declares a signed byte field.
func I8(name string) Field { return Field{Name: name, Kind: KindInt8} }

// U16 declares an unsigned 16-bit field.
func U16(name string) Field { return Field{Name: name, Kind: KindUint16} }

// I16 declares a signed 16-bit field.
func I16(name string) Field { return Field{Name: name, Kind: KindInt16} }

// U32 declares an unsigned 32-bit field.
func U32(name string) Field { return Field{Name: name, Kind: KindUint32} }

// I32 declares a signed 32-bit field.
func I32(name string) Field { return Field{Name: name, Kind: KindInt32} }

// F32 declares an IEEE-754 float field.
func F32(name string) Field { return Field{Name: name, Kind: KindFloat32} }

// Bytes declares a fixed-width byte string field.
func Bytes(name string, n int) Field { return Field{Name: name, Kind: KindBytes, Len: n} }

// Pad declares n reserved zero bytes.
func Pad(n int) Field { return Field{Kind: KindPad, Len: n} }

// Layout is a fixed-length record type.
type Layout struct {
	name   string
	fields []Field
	index  map[string]int
	size   int
}

// Define declares a layout. It panics on malformed declarations, which are
// programming errors caught at package initialisation.
func Define(name string, fields ...Field) *Layout {
	l := &Layout{
		name:   name,
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		switch f.Kind {
		case KindPad:
			if f.Name != "" {
				panic(fmt.Sprintf("record %s: padding field %q must be unnamed", name, f.Name))
			}
		case KindBytes:
			if f.Name == "" {
				panic(fmt.Sprintf("record %s: field %d has no name", name, i))
			}
		default:
			if f.Kind.width() == 0 {
				panic(fmt.Sprintf("record %s: field %q has invalid kind %d", name, f.Name, f.Kind))
			}
			if f.Name == "" {
				panic(fmt.Sprintf("record %s: field %d has no name", name, i))
			}
		}
		if (f.Kind == KindBytes || f.Kind == KindPad) && f.Len <= 0 {
			panic(fmt.Sprintf("record %s: field %d has non-positive length", name, i))
		}
		if f.Name != "" {
			if _, dup := l.index[f.Name]; dup {
				panic(fmt.Sprintf("record %s: duplicate field %q", name, f.Name))
			}
			l.index[f.Name] = i
		}
		if f.Default != nil {
			v, err := normalize(f, f.Default)
			if err != nil {
				panic(fmt.Sprintf("record %s: default for %q: %v", name, f.Name, err))
			}
			f.Default = v
		}
		l.fields[i] = f
		l.size += f.size()
	}
	return l
}

// Name returns the layout name.
func (l *Layout) Name() string { return l.name }

// Size returns the fixed byte length of one record.
func (l *Layout) Size() int { return l.size }

// Fields returns the named fields in wire order.
func (l *Layout) Fields() []string {
	names := make([]string, 0, len(l.index))
	for _, f := range l.fields {
		if f.Name != "" {
			names = append(names, f.Name)
		}
	}
	return names
}

// Values maps field names to explicit values.
type Values map[string]any

// New builds a record from explicit values, falling back to field defaults.
func (l *Layout) New(values Values) (*Record, error) {
	rec := &Record{layout: l, values: make([]any, len(l.fields))}
	var missing []string
	for i, f := range l.fields {
		if f.Kind == KindPad {
			continue
		}
		v, ok := values[f.Name]
		if !ok {
			if f.Default == nil {
				missing = append(missing, f.Name)
				continue
			}
			rec.values[i] = f.Default
			continue
		}
		nv, err := normalize(f, v)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", l.name, f.Name, err)
		}
		rec.values[i] = nv
	}
	if len(missing) > 0 {
		return nil, &MissingFieldError{Layout: l.name, Fields: missing}
	}
	return rec, nil
}

// MustNew is New for statically known values.
func (l *Layout) MustNew(values Values) *Record {
	rec, err := l.New(values)
	if err != nil {
		panic(err)
	}
	return rec
}

// Unpack decodes a record from the first Size() bytes of buf.
func (l *Layout) Unpack(buf []byte) (*Record, error) {
	if len(buf) < l.size {
		return nil, fmt.Errorf("%s: need %d bytes, have %d: %w", l.name, l.size, len(buf), io.ErrUnexpectedEOF)
	}
	rec := &Record{layout: l, values: make([]any, len(l.fields))}
	off := 0
	le := binary.LittleEndian
	for i, f := range l.fields {
		switch f.Kind {
		case KindUint8:
			rec.values[i] = uint32(buf[off])
		case KindInt8:
			rec.values[i] = int32(int8(buf[off]))
		case KindUint16:
			rec.values[i] = uint32(le.Uint16(buf[off:]))
		case KindInt16:
			rec.values[i] = int32(int16(le.Uint16(buf[off:])))
		case KindUint32:
			rec.values[i] = le.Uint32(buf[off:])
		case KindInt32:
			rec.values[i] = int32(le.Uint32(buf[off:]))
		case KindFloat32:
			rec.values[i] = math.Float32frombits(le.Uint32(buf[off:]))
		case KindBytes:
			b := make([]byte, f.Len)
			copy(b, buf[off:off+f.Len])
			rec.values[i] = b
		}
		off += f.size()
	}
	return rec, nil
}

// Decode reads one record from r and then skips max(0, stride-Size()) bytes of
// per-record padding.
func (l *Layout) Decode(r io.Reader, stride int) (*Record, error) {
	buf := make([]byte, l.size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("reading %s: %w", l.name, err)
	}
	rec, err := l.Unpack(buf)
	if err != nil {
		return nil, err
	}
	if skip := stride - l.size; skip > 0 {
		if err := discard(r, int64(skip)); err != nil {
			return nil, fmt.Errorf("skipping %s padding: %w", l.name, err)
		}
	}
	return rec, nil
}

func discard(r io.Reader, n int64) error {
	if s, ok := r.(io.Seeker); ok {
		_, err := s.Seek(n, io.SeekCurrent)
		return err
	}
	_, err := io.CopyN(io.Discard, r, n)
	return err
}

// Record is one instance of a layout.
type Record struct {
	layout *Layout
	values []any
}

// Layout returns the record's layout.
func (r *Record) Layout() *Layout { return r.layout }

func (r *Record) field(name string, kinds ...Kind) (int, Field) {
	i, ok := r.layout.index[name]
	if !ok {
		panic(fmt.Sprintf("record %s: no field %q", r.layout.name, name))
	}
	f := r.layout.fields[i]
	for _, k := range kinds {
		if f.Kind == k {
			return i, f
		}
	}
	panic(fmt.Sprintf("record %s: field %q is %s", r.layout.name, name, f.Kind))
}

// Uint returns an unsigned field value.
func (r *Record) Uint(name string) uint32 {
	i, _ := r.field(name, KindUint8, KindUint16, KindUint32)
	return r.values[i].(uint32)
}

// Int returns a signed field value.
func (r *Record) Int(name string) int32 {
	i, _ := r.field(name, KindInt8, KindInt16, KindInt32)
	return r.values[i].(int32)
}

// Float returns a float field value.
func (r *Record) Float(name string) float32 {
	i, _ := r.field(name, KindFloat32)
	return r.values[i].(float32)
}

// Bytes returns a byte string field value.
func (r *Record) Bytes(name string) []byte {
	i, _ := r.field(name, KindBytes)
	return r.values[i].([]byte)
}

// Set replaces a field value.
func (r *Record) Set(name string, v any) error {
	i, ok := r.layout.index[name]
	if !ok {
		return fmt.Errorf("%s: no field %q", r.layout.name, name)
	}
	nv, err := normalize(r.layout.fields[i], v)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", r.layout.name, name, err)
	}
	r.values[i] = nv
	return nil
}

// Encode packs the record in field order, zero-padded up to writeLen.
func (r *Record) Encode(writeLen int) []byte {
	n := r.layout.size
	if writeLen > n {
		n = writeLen
	}
	return r.AppendTo(make([]byte, 0, n), writeLen)
}

// AppendTo appends the packed record to dst, zero-padded up to writeLen.
func (r *Record) AppendTo(dst []byte, writeLen int) []byte {
	le := binary.LittleEndian
	for i, f := range r.layout.fields {
		v := r.values[i]
		switch f.Kind {
		case KindUint8:
			dst = append(dst, byte(v.(uint32)))
		case KindInt8:
			dst = append(dst, byte(int8(v.(int32))))
		case KindUint16:
			dst = le.AppendUint16(dst, uint16(v.(uint32)))
		case KindInt16:
			dst = le.AppendUint16(dst, uint16(int16(v.(int32))))
		case KindUint32:
			dst = le.AppendUint32(dst, v.(uint32))
		case KindInt32:
			dst = le.AppendUint32(dst, uint32(v.(int32)))
		case KindFloat32:
			dst = le.AppendUint32(dst, math.Float32bits(v.(float32)))
		case KindBytes:
			b := v.([]byte)
			if len(b) > f.Len {
				b = b[:f.Len]
			}
			dst = append(dst, b...)
			dst = append(dst, make([]byte, f.Len-len(b))...)
		case KindPad:
			dst = append(dst, make([]byte, f.Len)...)
		}
	}
	if extra := writeLen - r.layout.size; extra > 0 {
		dst = append(dst, make([]byte, extra)...)
	}
	return dst
}

// String renders the record as Name(field=value, ...).
func (r *Record) String() string {
	var sb strings.Builder
	sb.WriteString(r.layout.name)
	sb.WriteByte('(')
	first := true
	for i, f := range r.layout.fields {
		if f.Kind == KindPad {
			continue
		}
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(f.Name)
		sb.WriteByte('=')
		if b, ok := r.values[i].([]byte); ok {
			fmt.Fprintf(&sb, "%q", bytes.TrimRight(b, "\x00"))
		} else {
			fmt.Fprintf(&sb, "%v", r.values[i])
		}
	}
	sb.WriteByte(')')
	return sb.String()
}

// normalize converts v into the canonical storage type for f.
func normalize(f Field, v any) (any, error) {
	switch f.Kind {
	case KindUint8, KindUint16, KindUint32:
		u, err := toUint64(v)
		if err != nil {
			return nil, err
		}
		if limit := uint64(1)<<(8*f.Kind.width()) - 1; u > limit {
			return nil, fmt.Errorf("value %d overflows %s", u, f.Kind)
		}
		return uint32(u), nil
	case KindInt8, KindInt16, KindInt32:
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		bits := 8 * f.Kind.width()
		if lo, hi := -int64(1)<<(bits-1), int64(1)<<(bits-1)-1; n < lo || n > hi {
			return nil, fmt.Errorf("value %d overflows %s", n, f.Kind)
		}
		return int32(n), nil
	case KindFloat32:
		switch x := v.(type) {
		case float32:
			return x, nil
		case float64:
			return float32(x), nil
		}
		return nil, fmt.Errorf("cannot store %T in %s", v, f.Kind)
	case KindBytes:
		switch x := v.(type) {
		case []byte:
			return append([]byte{}, x...), nil
		case string:
			return []byte(x), nil
		}
		return nil, fmt.Errorf("cannot store %T in %s", v, f.Kind)
	}
	return nil, fmt.Errorf("field kind %s holds no value", f.Kind)
}

func toUint64(v any) (uint64, error) {
	switch x := v.(type) {
	case uint8:
		return uint64(x), nil
	case uint16:
		return uint64(x), nil
	case uint32:
		return uint64(x), nil
	case uint64:
		return x, nil
	case uint:
		return uint64(x), nil
	case int, int8, int16, int32, int64:
		n, _ := toInt64(x)
		if n < 0 {
			return 0, fmt.Errorf("negative value %d for unsigned field", n)
		}
		return uint64(n), nil
	}
	return 0, fmt.Errorf("cannot store %T in unsigned field", v)
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	}
	return 0, fmt.Errorf("cannot store %T in signed field", v)
}
