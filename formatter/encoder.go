package formatter

import (
	"bytes"
	"encoding"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"
)

// ErrReferenceLoop is returned when a value references itself and the
// policy's LoopHandling is LoopError.
var ErrReferenceLoop = errors.New("formatter: self referencing loop detected")

// errElide tells the caller to drop the member being encoded.
var errElide = errors.New("formatter: elide member")

const emptyObject = "{}"

var (
	recordType        = reflect.TypeOf(Record(nil))
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// Serialize encodes v as JSON under policy p.
func Serialize(v any, p *Policy) (string, error) {
	buf := getBuffer()
	defer putBuffer(buf)
	if err := encodeTo(buf, v, p); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// encodeTo appends the JSON encoding of v to buf. On error buf is restored
// to its original length.
func encodeTo(buf *bytes.Buffer, v any, p *Policy) error {
	if p == nil {
		p = &Policy{}
	}
	mark := buf.Len()
	enc := encoder{buf: buf, policy: p}
	if err := enc.encode(reflect.ValueOf(v), true); err != nil {
		buf.Truncate(mark)
		if errors.Is(err, errElide) {
			buf.WriteString("null")
			return nil
		}
		return err
	}
	return nil
}

type visitKey struct {
	ptr uintptr
	typ reflect.Type
	len int
}

type encoder struct {
	buf      *bytes.Buffer
	policy   *Policy
	visiting map[visitKey]struct{}
}

func (e *encoder) encode(v reflect.Value, convert bool) error {
	if !v.IsValid() {
		e.buf.WriteString("null")
		return nil
	}
	t := v.Type()

	if t == recordType && v.CanInterface() {
		return e.encodeRecord(v.Interface().(Record))
	}

	if convert && v.CanInterface() {
		for _, c := range e.policy.Converters {
			if !c.CanConvert(t) {
				continue
			}
			out, err := runConverter(c, v)
			if err != nil {
				return fmt.Errorf("formatter: converting %s: %w", t, err)
			}
			return e.encode(reflect.ValueOf(out), false)
		}
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			e.buf.WriteString("null")
			return nil
		}
		return e.encode(v.Elem(), true)
	case reflect.Pointer:
		if v.IsNil() {
			e.buf.WriteString("null")
			return nil
		}
		key := visitKey{ptr: v.Pointer(), typ: t}
		if err := e.enter(key); err != nil {
			return err
		}
		defer e.leave(key)
		return e.encode(v.Elem(), true)
	}

	if v.CanInterface() {
		if m, ok := asInterface[json.Marshaler](v, jsonMarshalerType); ok {
			return e.encodeMarshaler(m)
		}
		if m, ok := asInterface[encoding.TextMarshaler](v, textMarshalerType); ok {
			text, err := m.MarshalText()
			if err != nil {
				return fmt.Errorf("formatter: marshaling %s: %w", t, err)
			}
			e.writeString(string(text))
			return nil
		}
	}

	switch v.Kind() {
	case reflect.Bool:
		e.buf.Write(strconv.AppendBool(e.buf.AvailableBuffer(), v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		e.buf.Write(strconv.AppendInt(e.buf.AvailableBuffer(), v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		e.buf.Write(strconv.AppendUint(e.buf.AvailableBuffer(), v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		e.encodeFloat(v.Float(), t.Bits())
	case reflect.Complex64, reflect.Complex128:
		e.writeString(strconv.FormatComplex(v.Complex(), 'g', -1, t.Bits()))
	case reflect.String:
		e.writeString(v.String())
	case reflect.Struct:
		return e.encodeStruct(v)
	case reflect.Map:
		return e.encodeMap(v)
	case reflect.Slice:
		if v.IsNil() {
			e.buf.WriteString("null")
			return nil
		}
		if t.Elem().Kind() == reflect.Uint8 {
			e.buf.WriteByte('"')
			e.buf.WriteString(base64.StdEncoding.EncodeToString(v.Bytes()))
			e.buf.WriteByte('"')
			return nil
		}
		if v.Len() > 0 {
			key := visitKey{ptr: v.Pointer(), typ: t, len: v.Len()}
			if err := e.enter(key); err != nil {
				return err
			}
			defer e.leave(key)
		}
		return e.encodeArray(v)
	case reflect.Array:
		return e.encodeArray(v)
	default:
		// func, chan and unsafe pointers carry nothing serializable
		e.buf.WriteString(emptyObject)
	}
	return nil
}

// asInterface returns v as I, taking v's address when only the pointer
// method set implements I.
func asInterface[I any](v reflect.Value, it reflect.Type) (I, bool) {
	if v.Type().Implements(it) {
		i, ok := v.Interface().(I)
		return i, ok
	}
	if v.CanAddr() && reflect.PointerTo(v.Type()).Implements(it) {
		i, ok := v.Addr().Interface().(I)
		return i, ok
	}
	var zero I
	return zero, false
}

func (e *encoder) enter(key visitKey) error {
	if _, seen := e.visiting[key]; seen {
		if e.policy.LoopHandling == LoopError {
			return fmt.Errorf("%w for type %s", ErrReferenceLoop, key.typ)
		}
		return errElide
	}
	if e.visiting == nil {
		e.visiting = make(map[visitKey]struct{})
	}
	e.visiting[key] = struct{}{}
	return nil
}

func (e *encoder) leave(key visitKey) {
	delete(e.visiting, key)
}

func (e *encoder) encodeMarshaler(m json.Marshaler) error {
	raw, err := m.MarshalJSON()
	if err != nil {
		return fmt.Errorf("formatter: marshaling %T: %w", m, err)
	}
	if len(raw) == 0 {
		e.buf.WriteString("null")
		return nil
	}
	if err := json.Compact(e.buf, raw); err != nil {
		return fmt.Errorf("formatter: invalid JSON from %T: %w", m, err)
	}
	return nil
}

func (e *encoder) encodeFloat(f float64, bits int) {
	switch {
	case math.IsNaN(f):
		e.writeString("NaN")
	case math.IsInf(f, 1):
		e.writeString("Infinity")
	case math.IsInf(f, -1):
		e.writeString("-Infinity")
	default:
		e.buf.Write(strconv.AppendFloat(e.buf.AvailableBuffer(), f, 'g', -1, bits))
	}
}

// member writes ",key:value" (or "key:value" for the first member) and
// rolls it back if the value is elided. It returns whether something was
// written.
func (e *encoder) member(first bool, key string, v reflect.Value) (bool, error) {
	mark := e.buf.Len()
	if !first {
		e.buf.WriteByte(',')
	}
	e.writeString(key)
	e.buf.WriteByte(':')
	if err := e.encode(v, true); err != nil {
		e.buf.Truncate(mark)
		if errors.Is(err, errElide) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (e *encoder) encodeRecord(r Record) error {
	e.buf.WriteByte('{')
	first := true
	for _, p := range r {
		wrote, err := e.member(first, p.Key, reflect.ValueOf(p.Value))
		if err != nil {
			return err
		}
		if wrote {
			first = false
		}
	}
	e.buf.WriteByte('}')
	return nil
}

func (e *encoder) encodeStruct(v reflect.Value) error {
	e.buf.WriteByte('{')
	first := true
	for _, f := range cachedFields(v.Type()) {
		if e.policy.Filter != nil && !e.policy.Filter.IncludeField(f.declaringType, f.name) {
			continue
		}
		fv, ok := fieldByIndex(v, f.index)
		if !ok || (f.omitEmpty && isEmptyValue(fv)) {
			continue
		}
		wrote, err := e.member(first, f.name, fv)
		if err != nil {
			return err
		}
		if wrote {
			first = false
		}
	}
	e.buf.WriteByte('}')
	return nil
}

func (e *encoder) encodeMap(v reflect.Value) error {
	if v.IsNil() {
		e.buf.WriteString("null")
		return nil
	}
	key := visitKey{ptr: v.Pointer(), typ: v.Type()}
	if err := e.enter(key); err != nil {
		return err
	}
	defer e.leave(key)

	type kv struct {
		key string
		val reflect.Value
	}
	entries := make([]kv, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		k, err := mapKey(iter.Key())
		if err != nil {
			return err
		}
		entries = append(entries, kv{key: k, val: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	e.buf.WriteByte('{')
	first := true
	for _, entry := range entries {
		wrote, err := e.member(first, entry.key, entry.val)
		if err != nil {
			return err
		}
		if wrote {
			first = false
		}
	}
	e.buf.WriteByte('}')
	return nil
}

func mapKey(k reflect.Value) (string, error) {
	if k.Kind() == reflect.String {
		return k.String(), nil
	}
	if tm, ok := k.Interface().(encoding.TextMarshaler); ok {
		if k.Kind() == reflect.Pointer && k.IsNil() {
			return "", nil
		}
		b, err := tm.MarshalText()
		return string(b), err
	}
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), nil
	default:
		return fmt.Sprint(k.Interface()), nil
	}
}

func (e *encoder) encodeArray(v reflect.Value) error {
	e.buf.WriteByte('[')
	first := true
	for i := 0; i < v.Len(); i++ {
		mark := e.buf.Len()
		if !first {
			e.buf.WriteByte(',')
		}
		if err := e.encode(v.Index(i), true); err != nil {
			e.buf.Truncate(mark)
			if errors.Is(err, errElide) {
				continue
			}
			return err
		}
		first = false
	}
	e.buf.WriteByte(']')
	return nil
}

func (e *encoder) writeString(s string) {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}
	e.buf.WriteByte('"')
	appendJSONString(e.buf, s)
	e.buf.WriteByte('"')
}

const maxEmbedDepth = 16

type structField struct {
	name          string
	index         []int
	declaringType reflect.Type
	omitEmpty     bool
}

var fieldCache sync.Map // map[reflect.Type][]structField

func cachedFields(t reflect.Type) []structField {
	if f, ok := fieldCache.Load(t); ok {
		return f.([]structField)
	}
	f, _ := fieldCache.LoadOrStore(t, typeFields(t, nil))
	return f.([]structField)
}

// typeFields lists the serializable fields of t in declaration order.
// Untagged embedded structs are flattened in place; outer fields win over
// promoted ones with the same name.
func typeFields(t reflect.Type, parent []int) []structField {
	if len(parent) > maxEmbedDepth {
		return nil
	}
	own := make(map[string]bool)
	for i := 0; i < t.NumField(); i++ {
		if name, _, ok := fieldName(t.Field(i)); ok {
			own[name] = true
		}
	}

	var fields []structField
	seen := make(map[string]bool)
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		index := append(append([]int(nil), parent...), i)
		if embedded, ok := embeddedStruct(sf); ok {
			for _, f := range typeFields(embedded, index) {
				if !own[f.name] && !seen[f.name] {
					seen[f.name] = true
					fields = append(fields, f)
				}
			}
			continue
		}
		name, opts, ok := fieldName(sf)
		if !ok {
			continue
		}
		seen[name] = true
		fields = append(fields, structField{
			name:          name,
			index:         index,
			declaringType: t,
			omitEmpty:     strings.Contains(","+opts+",", ",omitempty,"),
		})
	}
	return fields
}

// fieldName returns the serialized name of a regular field, or false for
// skipped, unexported and flattened embedded fields.
func fieldName(sf reflect.StructField) (name, opts string, ok bool) {
	tag := sf.Tag.Get("json")
	if tag == "-" || !sf.IsExported() {
		return "", "", false
	}
	if _, embedded := embeddedStruct(sf); embedded {
		return "", "", false
	}
	name, opts, _ = strings.Cut(tag, ",")
	if name == "" {
		name = sf.Name
	}
	return name, opts, true
}

// embeddedStruct reports whether sf is an untagged embedded struct (or
// pointer to struct) whose fields are promoted.
func embeddedStruct(sf reflect.StructField) (reflect.Type, bool) {
	if !sf.Anonymous {
		return nil, false
	}
	if name, _, _ := strings.Cut(sf.Tag.Get("json"), ","); name != "" || sf.Tag.Get("json") == "-" {
		return nil, false
	}
	ft := sf.Type
	if ft.Kind() == reflect.Pointer {
		ft = ft.Elem()
	}
	if ft.Kind() != reflect.Struct {
		return nil, false
	}
	return ft, true
}

// fieldByIndex is reflect.Value.FieldByIndex without panics on nil
// embedded pointers.
func fieldByIndex(v reflect.Value, index []int) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, true
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}

// appendJSONString writes a JSON-escaped string (without surrounding quotes) to the buffer
func appendJSONString(buf *bytes.Buffer, s string) {
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x20 && c != '"' && c != '\\' {
			continue
		}
		// Flush unescaped prefix
		if start < i {
			buf.WriteString(s[start:i])
		}
		switch c {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			buf.WriteString(`\u00`)
			buf.WriteByte(hexChars[c>>4])
			buf.WriteByte(hexChars[c&0x0f])
		}
		start = i + 1
	}
	// Flush remaining
	if start < len(s) {
		buf.WriteString(s[start:])
	}
}

var hexChars = [16]byte{'0', '1', '2', '3', '4', '5', '6', '7', '8', '9', 'a', 'b', 'c', 'd', 'e', 'f'}

// runConverter runs a converter, reporting a panic as an error.
func runConverter(c TypeConverter, v reflect.Value) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("converter %T panicked: %v", c, r)
		}
	}()
	return c.Convert(v)
}
