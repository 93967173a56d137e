package epath

// EPATH encodings. A Path is an ordered segment list; PathType provides the
// four wire variants (packed, padded, padded with length prefix, padded with
// padded length prefix) as datatypes.Type instances usable as struct fields.

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tturner/cipnet/datatypes"
)

// Path is an ordered sequence of CIP segments.
type Path []Segment

// Append returns a new Path with more segments added.
func (p Path) Append(segments ...Segment) Path {
	out := make(Path, 0, len(p)+len(segments))
	out = append(out, p...)
	return append(out, segments...)
}

// Equal compares paths over their canonical packed encodings.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if !SegmentsEqual(p[i], other[i]) {
			return false
		}
	}
	return true
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = fmt.Sprint(s)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Logical builds the usual class/instance(/attribute) logical path. attribute
// < 0 omits the attribute segment.
func Logical(classCode uint16, instance uint32, attribute int) (Path, error) {
	cls, err := NewLogicalSegment(LogicalClassID, classCode)
	if err != nil {
		return nil, err
	}
	ins, err := NewLogicalSegment(LogicalInstanceID, instance)
	if err != nil {
		return nil, err
	}
	p := Path{cls, ins}
	if attribute >= 0 {
		att, err := NewLogicalSegment(LogicalAttributeID, attribute)
		if err != nil {
			return nil, err
		}
		p = append(p, att)
	}
	return p, nil
}

// DecodeSegment decodes one segment, dispatching on the class bits of the
// leading byte. An exhausted buffer yields ErrBufferEmpty.
func DecodeSegment(r *datatypes.Reader, padded bool) (Segment, error) {
	peek := r.Peek(1)
	if len(peek) == 0 {
		return nil, datatypes.ErrBufferEmpty
	}
	switch peek[0] & segmentTypeMask {
	case SegmentPort:
		return decodePortSegment(r)
	case SegmentLogical:
		return decodeLogicalSegment(r, padded)
	case SegmentNetwork:
		return decodeNetworkSegment(r)
	case SegmentSymbolic:
		return decodeSymbolicSegment(r)
	case SegmentData:
		return decodeDataSegment(r)
	}
	return nil, dataErrf("unknown segment type: %#02x", peek[0]&segmentTypeMask)
}

// PathType is an EPATH wire variant. The length prefix, when present, is a
// USINT count of segments, optionally followed by a pad byte.
type PathType struct {
	padded  bool
	withLen bool
	padLen  bool
	length  int // fixed segment count, -1 if unconstrained
}

var (
	// Packed concatenates segments with no alignment.
	Packed = &PathType{length: -1}
	// Padded emits word-aligned logical values.
	Padded = &PathType{padded: true, length: -1}
	// PaddedLen prefixes a USINT segment count.
	PaddedLen = &PathType{padded: true, withLen: true, length: -1}
	// PaddedPadLen prefixes a USINT segment count and a pad byte.
	PaddedPadLen = &PathType{padded: true, withLen: true, padLen: true, length: -1}
)

var (
	fixedMu    sync.Mutex
	fixedCache = map[[4]int]*PathType{}
)

// Fixed returns the variant of t that requires exactly n segments.
func (t *PathType) Fixed(n int) *PathType {
	fixedMu.Lock()
	defer fixedMu.Unlock()
	key := [4]int{b2i(t.padded), b2i(t.withLen), b2i(t.padLen), n}
	if ft, ok := fixedCache[key]; ok {
		return ft
	}
	ft := &PathType{padded: t.padded, withLen: t.withLen, padLen: t.padLen, length: n}
	fixedCache[key] = ft
	return ft
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (t *PathType) TypeName() string {
	name := "PACKED_EPATH"
	switch {
	case t.padded && t.withLen && t.padLen:
		name = "PADDED_EPATH_PAD_LEN"
	case t.padded && t.withLen:
		name = "PADDED_EPATH_LEN"
	case t.padded:
		name = "PADDED_EPATH"
	}
	if t.length >= 0 {
		name = fmt.Sprintf("%s[%d]", name, t.length)
	}
	return name
}

func (t *PathType) Size() int { return -1 }

func (t *PathType) coerce(v any) (Path, error) {
	switch p := v.(type) {
	case Path:
		return p, nil
	case []Segment:
		return Path(p), nil
	case Segment:
		return Path{p}, nil
	case Route:
		return p.Path(), nil
	case nil:
		return Path{}, nil
	}
	return nil, dataErrf("invalid value for %s: %T", t.TypeName(), v)
}

func (t *PathType) Encode(v any) ([]byte, error) {
	p, err := t.coerce(v)
	if err != nil {
		return nil, err
	}
	if t.length >= 0 && len(p) != t.length {
		return nil, dataErrf("%s requires %d segments, got %d", t.TypeName(), t.length, len(p))
	}
	var body []byte
	for _, seg := range p {
		enc, err := seg.Encode(t.padded)
		if err != nil {
			return nil, dataErr(err, "error encoding %s", t.TypeName())
		}
		body = append(body, enc...)
	}
	if !t.withLen {
		if body == nil {
			body = []byte{}
		}
		return body, nil
	}
	out := []byte{uint8(len(p))}
	if t.padLen {
		out = append(out, 0x00)
	}
	return append(out, body...), nil
}

func (t *PathType) Decode(r *datatypes.Reader) (any, error) {
	count := t.length
	if t.withLen {
		n, err := r.ReadByte()
		if err != nil {
			return nil, dataErr(err, "error decoding %s length", t.TypeName())
		}
		if t.padLen {
			if _, err := r.ReadByte(); err != nil {
				return nil, dataErr(err, "error decoding %s length pad", t.TypeName())
			}
		}
		count = int(n)
	}
	var p Path
	for count < 0 || len(p) < count {
		seg, err := DecodeSegment(r, t.padded)
		if err != nil {
			if err == datatypes.ErrBufferEmpty {
				break
			}
			return nil, dataErr(err, "error decoding %s", t.TypeName())
		}
		p = append(p, seg)
	}
	return p, nil
}
