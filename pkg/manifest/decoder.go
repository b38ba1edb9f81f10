package manifest

import (
	"bytes"
	"encoding/binary"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/shogo82148/androidbinary"
)

// Event is the kind of token the decoder is positioned on.
type Event int

const (
	StartTag Event = iota + 1
	EndTag
	Text
	EndDocument
)

// String returns the string representation of the event
func (e Event) String() string {
	switch e {
	case StartTag:
		return "START_TAG"
	case EndTag:
		return "END_TAG"
	case Text:
		return "TEXT"
	case EndDocument:
		return "END_DOCUMENT"
	default:
		return "UNKNOWN"
	}
}

// Attr is a single decoded attribute.
type Attr struct {
	Space string
	Name  string
	Value Value
}

// Decoder is a pull parser over a manifest document.
//
// Depth follows the usual pull-parser convention: the root element is at
// depth 1, and an end tag reports the same depth as its start tag.
type Decoder struct {
	xd    *xml.Decoder
	event Event
	depth int
	name  string
	attrs []Attr
	text  string

	// typed holds the binary attribute values of each start element in
	// document order; elem counts the start tags seen so far.
	typed []typedElement
	elem  int
}

// NewDecoder returns a decoder reading a plain-text XML manifest.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{xd: xml.NewDecoder(r)}
}

// NewBinaryDecoder returns a decoder reading a compiled binary manifest.
//
// androidbinary flattens the document to text and renders every typed
// scalar it does not know as a reference, so the typed attribute values are
// read from the start element chunks and take precedence over that text.
func NewBinaryDecoder(data []byte) (*Decoder, error) {
	xf, err := androidbinary.NewXMLFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode binary manifest: %w", err)
	}
	d := NewDecoder(xf.Reader())
	d.typed = readTypedElements(xf, data)
	return d, nil
}

// NewDecoderBytes picks the binary or text decoder based on the chunk header.
func NewDecoderBytes(data []byte) (*Decoder, error) {
	if IsBinary(data) {
		return NewBinaryDecoder(data)
	}
	return NewDecoder(bytes.NewReader(data)), nil
}

const (
	chunkStartElement = 0x0102
	nilStringRef      = 0xFFFFFFFF
)

type typedAttr struct {
	rawString bool
	dataType  uint8
	data      uint32
}

type typedElement struct {
	name  string
	attrs map[string]typedAttr
}

// readTypedElements walks the chunks of a binary XML document and returns
// the attribute values of every start element. A malformed chunk ends the
// walk; the elements after it keep their text form.
func readTypedElements(xf *androidbinary.XMLFile, data []byte) []typedElement {
	le := binary.LittleEndian
	if len(data) < 8 {
		return nil
	}
	end := int(le.Uint32(data[4:]))
	if end > len(data) {
		end = len(data)
	}

	var elems []typedElement
	for off := int(le.Uint16(data[2:])); off+8 <= end; {
		chunkType := le.Uint16(data[off:])
		headerSize := int(le.Uint16(data[off+2:]))
		size := int(le.Uint32(data[off+4:]))
		if size < 8 || off+size > end {
			return elems
		}
		if chunkType == chunkStartElement {
			el, ok := readStartElement(xf, data[off:off+size], headerSize)
			if !ok {
				return elems
			}
			elems = append(elems, el)
		}
		off += size
	}
	return elems
}

func readStartElement(xf *androidbinary.XMLFile, chunk []byte, headerSize int) (typedElement, bool) {
	le := binary.LittleEndian
	// ResXMLTree_attrExt: ns, name, attributeStart, attributeSize,
	// attributeCount, then three indices.
	if headerSize+20 > len(chunk) {
		return typedElement{}, false
	}
	ext := chunk[headerSize:]
	el := typedElement{
		name:  xf.GetString(androidbinary.ResStringPoolRef(le.Uint32(ext[4:]))),
		attrs: make(map[string]typedAttr),
	}
	start := headerSize + int(le.Uint16(ext[8:]))
	stride := int(le.Uint16(ext[10:]))
	count := int(le.Uint16(ext[12:]))
	for i := 0; i < count; i++ {
		a := start + i*stride
		if stride < 20 || a+20 > len(chunk) {
			return typedElement{}, false
		}
		name := xf.GetString(androidbinary.ResStringPoolRef(le.Uint32(chunk[a+4:])))
		el.attrs[name] = typedAttr{
			rawString: le.Uint32(chunk[a+8:]) != nilStringRef,
			dataType:  chunk[a+15],
			data:      le.Uint32(chunk[a+16:]),
		}
	}
	return el, true
}

// attrValue decodes one attribute of the current start element.
func (d *Decoder) attrValue(el *typedElement, name, text string) Value {
	if el != nil {
		if ta, ok := el.attrs[name]; ok && !(ta.rawString && ta.dataType == typeString) {
			if v, ok := TypedValue(ta.dataType, ta.data); ok {
				return v
			}
		}
	}
	return ParseValue(text)
}

// IsBinary reports whether data starts with a binary XML chunk header.
func IsBinary(data []byte) bool {
	return len(data) >= 8 && data[0] == 0x03 && data[1] == 0x00
}

// Next advances to the next event.
func (d *Decoder) Next() (Event, error) {
	switch d.event {
	case EndDocument:
		return EndDocument, nil
	case EndTag:
		d.depth--
	}
	d.attrs = nil
	d.text = ""

	for {
		tok, err := d.xd.Token()
		if errors.Is(err, io.EOF) {
			if d.depth > 0 {
				return 0, fmt.Errorf("unexpected end of document at depth %d", d.depth)
			}
			d.event = EndDocument
			d.name = ""
			return EndDocument, nil
		}
		if err != nil {
			return 0, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			d.depth++
			d.event = StartTag
			d.name = t.Name.Local
			var el *typedElement
			if d.elem < len(d.typed) && d.typed[d.elem].name == d.name {
				el = &d.typed[d.elem]
			}
			d.elem++
			d.attrs = make([]Attr, 0, len(t.Attr))
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
					continue
				}
				d.attrs = append(d.attrs, Attr{Space: a.Name.Space, Name: a.Name.Local, Value: d.attrValue(el, a.Name.Local, a.Value)})
			}
			return StartTag, nil
		case xml.EndElement:
			d.event = EndTag
			d.name = t.Name.Local
			return EndTag, nil
		case xml.CharData:
			d.event = Text
			d.text = string(t)
			return Text, nil
		}
	}
}

// NextChild advances to the next start tag nested below depth outer. It
// returns false once the element at depth outer is closed.
func (d *Decoder) NextChild(outer int) (bool, error) {
	for {
		ev, err := d.Next()
		if err != nil {
			return false, err
		}
		switch {
		case ev == EndDocument:
			return false, nil
		case ev == EndTag && d.depth <= outer:
			return false, nil
		case ev == StartTag:
			return true, nil
		}
	}
}

// SkipCurrentTag consumes everything up to the end of the current element.
func (d *Decoder) SkipCurrentTag() error {
	outer := d.depth
	for {
		ev, err := d.Next()
		if err != nil {
			return err
		}
		if ev == EndDocument || (ev == EndTag && d.depth <= outer) {
			return nil
		}
	}
}

// Event returns the current event.
func (d *Decoder) Event() Event { return d.event }

// Depth returns the depth of the current element.
func (d *Decoder) Depth() int { return d.depth }

// Name returns the local name of the current tag.
func (d *Decoder) Name() string { return d.name }

// Text returns the character data of a Text event.
func (d *Decoder) Text() string { return d.text }

// Attrs returns the attributes of the current start tag.
func (d *Decoder) Attrs() []Attr { return d.attrs }

// PositionDescription describes the current location for diagnostics.
func (d *Decoder) PositionDescription() string {
	line, _ := d.xd.InputPos()
	return fmt.Sprintf("<%s> at depth %d (line %d)", d.name, d.depth, line)
}

// Attr looks up an attribute by local name.
func (d *Decoder) Attr(name string) (Value, bool) {
	for _, a := range d.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return Value{}, false
}

// AttrString returns the raw text of an attribute, or "" when absent.
func (d *Decoder) AttrString(name string) string {
	v, _ := d.Attr(name)
	return v.Raw
}

// LookupString returns the raw text of an attribute and whether it was set.
func (d *Decoder) LookupString(name string) (string, bool) {
	v, ok := d.Attr(name)
	return v.Raw, ok
}

// AttrNonResourceString returns the attribute text unless it is a resource
// reference, in which case it returns "".
func (d *Decoder) AttrNonResourceString(name string) string {
	v, ok := d.Attr(name)
	if !ok || v.IsReference() {
		return ""
	}
	return v.Raw
}

// AttrBool returns a boolean attribute or def when absent or not boolean.
func (d *Decoder) AttrBool(name string, def bool) bool {
	v, ok := d.Attr(name)
	if !ok {
		return def
	}
	if b, ok := v.Bool(); ok {
		return b
	}
	return def
}

// AttrInt returns an integer attribute or def when absent or not integral.
func (d *Decoder) AttrInt(name string, def int) int {
	v, ok := d.Attr(name)
	if !ok {
		return def
	}
	if n, ok := v.Int(); ok {
		return n
	}
	return def
}

// AttrFloat returns a float attribute or def.
func (d *Decoder) AttrFloat(name string, def float64) float64 {
	v, ok := d.Attr(name)
	if !ok {
		return def
	}
	if f, ok := v.Float(); ok {
		return f
	}
	return def
}

// AttrEnum returns an integer attribute, resolving symbolic names through e.
func (d *Decoder) AttrEnum(name string, e Enum, def int) int {
	v, ok := d.Attr(name)
	if !ok {
		return def
	}
	if n, ok := v.Int(); ok {
		return n
	}
	if n, ok := e.Lookup(v.Raw); ok {
		return n
	}
	return def
}

// AttrResource returns the resource identifier an attribute points at.
func (d *Decoder) AttrResource(name string) uint32 {
	v, _ := d.Attr(name)
	return v.ResourceID()
}
