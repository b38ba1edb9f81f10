// Package manifesttest assembles compiled binary manifests for tests.
package manifesttest

import (
	"bytes"
	"encoding/binary"
	"math"
	"unicode/utf16"
)

// AndroidNS is the namespace every attribute is written in.
const AndroidNS = "http://schemas.android.com/apk/res/android"

// Res_value data types.
const (
	TypeReference = 0x01
	TypeString    = 0x03
	TypeFloat     = 0x04
	TypeDimension = 0x05
	TypeIntDec    = 0x10
	TypeIntHex    = 0x11
	TypeBoolean   = 0x12
	TypeColorARGB = 0x1c
)

const nilRef = 0xFFFFFFFF

// Attr is one attribute of a start element. A string attribute keeps its
// text in the raw value slot; every other type only has typed data.
type Attr struct {
	Name     string
	Raw      string
	HasRaw   bool
	DataType uint8
	Data     uint32
}

// String returns a string attribute.
func String(name, value string) Attr {
	return Attr{Name: name, Raw: value, HasRaw: true, DataType: TypeString}
}

// Int returns a decimal integer attribute.
func Int(name string, value int32) Attr {
	return Attr{Name: name, DataType: TypeIntDec, Data: uint32(value)}
}

// Bool returns a boolean attribute.
func Bool(name string, value bool) Attr {
	a := Attr{Name: name, DataType: TypeBoolean}
	if value {
		a.Data = 0xFFFFFFFF
	}
	return a
}

// Float returns a float attribute.
func Float(name string, value float32) Attr {
	return Attr{Name: name, DataType: TypeFloat, Data: math.Float32bits(value)}
}

// Ref returns a resource reference attribute.
func Ref(name string, id uint32) Attr {
	return Attr{Name: name, DataType: TypeReference, Data: id}
}

// Typed returns an attribute of an arbitrary data type.
func Typed(name string, dataType uint8, data uint32) Attr {
	return Attr{Name: name, DataType: dataType, Data: data}
}

type node struct {
	start bool
	name  string
	attrs []Attr
}

// Builder collects elements and serializes them as a binary XML document
// with one android namespace declaration around the root.
type Builder struct {
	strings []string
	index   map[string]uint32
	nodes   []node
}

// New returns an empty builder.
func New() *Builder {
	b := &Builder{index: make(map[string]uint32)}
	b.ref("android")
	b.ref(AndroidNS)
	return b
}

func (b *Builder) ref(s string) uint32 {
	if i, ok := b.index[s]; ok {
		return i
	}
	i := uint32(len(b.strings))
	b.strings = append(b.strings, s)
	b.index[s] = i
	return i
}

// Start opens an element.
func (b *Builder) Start(name string, attrs ...Attr) *Builder {
	b.ref(name)
	for _, a := range attrs {
		b.ref(a.Name)
		if a.HasRaw {
			b.ref(a.Raw)
		}
	}
	b.nodes = append(b.nodes, node{start: true, name: name, attrs: attrs})
	return b
}

// End closes an element.
func (b *Builder) End(name string) *Builder {
	b.nodes = append(b.nodes, node{name: name})
	return b
}

// Bytes serializes the document.
func (b *Builder) Bytes() []byte {
	var body bytes.Buffer
	body.Write(b.stringPool())

	prefix, uri := b.index["android"], b.index[AndroidNS]
	body.Write(chunk(0x0100, 16, u32(0), u32(nilRef), u32(prefix), u32(uri)))
	for _, n := range b.nodes {
		if !n.start {
			body.Write(chunk(0x0103, 16, u32(0), u32(nilRef), u32(nilRef), u32(b.index[n.name])))
			continue
		}
		ext := cat(
			u32(nilRef), u32(b.index[n.name]),
			u16(20), u16(20), u16(uint16(len(n.attrs))),
			u16(0), u16(0), u16(0),
		)
		parts := [][]byte{u32(0), u32(nilRef), ext}
		for _, a := range n.attrs {
			raw, data := uint32(nilRef), a.Data
			if a.HasRaw {
				raw = b.index[a.Raw]
				data = raw
			}
			parts = append(parts, u32(uri), u32(b.index[a.Name]), u32(raw),
				u16(8), []byte{0, a.DataType}, u32(data))
		}
		body.Write(chunk(0x0102, 16, parts...))
	}
	body.Write(chunk(0x0101, 16, u32(0), u32(nilRef), u32(prefix), u32(uri)))

	return chunk(0x0003, 8, body.Bytes())
}

func (b *Builder) stringPool() []byte {
	var offsets, data bytes.Buffer
	for _, s := range b.strings {
		offsets.Write(u32(uint32(data.Len())))
		units := utf16.Encode([]rune(s))
		data.Write(u16(uint16(len(units))))
		for _, u := range units {
			data.Write(u16(u))
		}
		data.Write(u16(0))
	}
	for data.Len()%4 != 0 {
		data.WriteByte(0)
	}
	count := uint32(len(b.strings))
	return chunk(0x0001, 28,
		u32(count), u32(0), u32(0), u32(28+4*count), u32(0),
		offsets.Bytes(), data.Bytes())
}

// chunk prefixes parts with a chunk header. headerSize counts the 8 byte
// header plus the leading fixed fields in parts.
func chunk(chunkType uint16, headerSize uint16, parts ...[]byte) []byte {
	payload := cat(parts...)
	return cat(u16(chunkType), u16(headerSize), u32(uint32(8+len(payload))), payload)
}

func cat(parts ...[]byte) []byte {
	var buf bytes.Buffer
	for _, p := range parts {
		buf.Write(p)
	}
	return buf.Bytes()
}

func u16(v uint16) []byte {
	return binary.LittleEndian.AppendUint16(nil, v)
}

func u32(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}
