package datatypes

// CIP string types. All are length-prefixed except CSTRING which is
// null-terminated. The default character encoding is ISO-8859-1; STRING2 uses
// UTF-16LE and STRINGN selects its encoding from the char-size prefix.

import (
	"bytes"
	"encoding/binary"
	"unicode/utf16"
	"unicode/utf8"
)

type strEncoding int

const (
	encLatin1 strEncoding = iota
	encUTF8
	encUTF16LE
	encUTF32LE
)

func encodeChars(s string, enc strEncoding) ([]byte, error) {
	switch enc {
	case encLatin1:
		out := make([]byte, 0, len(s))
		for _, r := range s {
			if r > 0xFF {
				return nil, dataErrf("rune %q not representable in iso-8859-1", r)
			}
			out = append(out, byte(r))
		}
		return out, nil
	case encUTF8:
		return []byte(s), nil
	case encUTF16LE:
		units := utf16.Encode([]rune(s))
		out := make([]byte, 2*len(units))
		for i, u := range units {
			binary.LittleEndian.PutUint16(out[2*i:], u)
		}
		return out, nil
	default: // encUTF32LE
		runes := []rune(s)
		out := make([]byte, 4*len(runes))
		for i, r := range runes {
			binary.LittleEndian.PutUint32(out[4*i:], uint32(r))
		}
		return out, nil
	}
}

func decodeChars(data []byte, enc strEncoding) (string, error) {
	switch enc {
	case encLatin1:
		runes := make([]rune, len(data))
		for i, b := range data {
			runes[i] = rune(b)
		}
		return string(runes), nil
	case encUTF8:
		if !utf8.Valid(data) {
			return "", dataErrf("invalid utf-8 data")
		}
		return string(data), nil
	case encUTF16LE:
		if len(data)%2 != 0 {
			return "", dataErrf("utf-16 data length not a multiple of 2")
		}
		units := make([]uint16, len(data)/2)
		for i := range units {
			units[i] = binary.LittleEndian.Uint16(data[2*i:])
		}
		return string(utf16.Decode(units)), nil
	default: // encUTF32LE
		if len(data)%4 != 0 {
			return "", dataErrf("utf-32 data length not a multiple of 4")
		}
		runes := make([]rune, len(data)/4)
		for i := range runes {
			runes[i] = rune(binary.LittleEndian.Uint32(data[4*i:]))
		}
		return string(runes), nil
	}
}

// StringType is a length-prefixed character string. The prefix holds the
// character count; the payload is read as that many characters of the
// declared width.
type StringType struct {
	name     string
	code     uint8
	lenType  *IntType
	enc      strEncoding
	charSize int
}

var (
	// ShortString is 1-byte length, 1-byte chars (0xDA).
	ShortString = &StringType{name: "SHORT_STRING", code: 0xDA, lenType: USINT, enc: encLatin1, charSize: 1}
	// String is 2-byte length, 1-byte chars (0xD0).
	String = &StringType{name: "STRING", code: 0xD0, lenType: UINT, enc: encLatin1, charSize: 1}
	// String2 is 2-byte length, 2-byte chars (0xD5).
	String2 = &StringType{name: "STRING2", code: 0xD5, lenType: UINT, enc: encUTF16LE, charSize: 2}
	// LongString is 4-byte length, 1-byte chars.
	LongString = &StringType{name: "LONG_STRING", lenType: UDINT, enc: encLatin1, charSize: 1}
)

func (t *StringType) TypeName() string { return t.name }
func (t *StringType) Size() int        { return -1 }

func (t *StringType) Encode(v any) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, dataErrf("invalid value for %s: %T", t.name, v)
	}
	chars, err := encodeChars(s, t.enc)
	if err != nil {
		return nil, dataErr(err, "error encoding %s", t.name)
	}
	prefix, err := t.lenType.Encode(len(chars) / t.charSize)
	if err != nil {
		return nil, dataErr(err, "error encoding %s length", t.name)
	}
	return append(prefix, chars...), nil
}

func (t *StringType) Decode(r *Reader) (any, error) {
	n, err := t.lenType.Decode(r)
	if err != nil {
		return nil, dataErr(err, "error decoding %s length", t.name)
	}
	count := int(toUint64(n))
	if count == 0 {
		return "", nil
	}
	data, err := r.Read(count * t.charSize)
	if err != nil {
		return nil, dataErr(err, "error decoding %s data", t.name)
	}
	s, err := decodeChars(data, t.enc)
	if err != nil {
		return nil, dataErr(err, "error decoding %s data", t.name)
	}
	return s, nil
}

// StringNEncoding selects the character size for STRINGN values.
type StringNEncoding uint16

const (
	StringNUTF8  StringNEncoding = 1
	StringNUTF16 StringNEncoding = 2
	StringNUTF32 StringNEncoding = 4
)

func (e StringNEncoding) encoding() (strEncoding, bool) {
	switch e {
	case StringNUTF8:
		return encUTF8, true
	case StringNUTF16:
		return encUTF16LE, true
	case StringNUTF32:
		return encUTF32LE, true
	}
	return 0, false
}

// StringNValue pairs a STRINGN string with its character encoding.
type StringNValue struct {
	Value    string
	Encoding StringNEncoding
}

// StringNType is the n-bytes-per-character string (0xD9): a UINT char size
// followed by a UINT char count and the character data.
type StringNType struct{}

// StringN is the STRINGN type instance.
var StringN = &StringNType{}

func (t *StringNType) TypeName() string { return "STRINGN" }
func (t *StringNType) Size() int        { return -1 }

func (t *StringNType) Encode(v any) ([]byte, error) {
	var val StringNValue
	switch s := v.(type) {
	case StringNValue:
		val = s
	case string:
		val = StringNValue{Value: s, Encoding: StringNUTF8}
	default:
		return nil, dataErrf("invalid value for STRINGN: %T", v)
	}
	enc, ok := val.Encoding.encoding()
	if !ok {
		return nil, dataErrf("unsupported STRINGN character size: %d", val.Encoding)
	}
	chars, err := encodeChars(val.Value, enc)
	if err != nil {
		return nil, dataErr(err, "error encoding STRINGN")
	}
	out := make([]byte, 4, 4+len(chars))
	binary.LittleEndian.PutUint16(out[0:2], uint16(val.Encoding))
	binary.LittleEndian.PutUint16(out[2:4], uint16(len([]rune(val.Value))))
	return append(out, chars...), nil
}

func (t *StringNType) Decode(r *Reader) (any, error) {
	hdr, err := r.Read(4)
	if err != nil {
		return nil, dataErr(err, "error decoding STRINGN header")
	}
	charSize := StringNEncoding(binary.LittleEndian.Uint16(hdr[0:2]))
	charCount := int(binary.LittleEndian.Uint16(hdr[2:4]))
	enc, ok := charSize.encoding()
	if !ok {
		return nil, dataErrf("unsupported STRINGN character size: %d", charSize)
	}
	data, err := r.Read(charCount * int(charSize))
	if err != nil {
		return nil, dataErr(err, "error decoding STRINGN data")
	}
	s, err := decodeChars(data, enc)
	if err != nil {
		return nil, dataErr(err, "error decoding STRINGN data")
	}
	return StringNValue{Value: s, Encoding: charSize}, nil
}

// StringICharSet identifies the character set of a STRINGI entry.
type StringICharSet uint16

const (
	CharSetISO8859_1 StringICharSet = 4
	CharSetISO8859_2 StringICharSet = 5
	CharSetISO8859_3 StringICharSet = 6
	CharSetISO8859_4 StringICharSet = 7
	CharSetISO8859_5 StringICharSet = 8
	CharSetISO8859_6 StringICharSet = 9
	CharSetISO8859_7 StringICharSet = 10
	CharSetISO8859_8 StringICharSet = 11
	CharSetISO8859_9 StringICharSet = 12
	CharSetUTF16LE   StringICharSet = 1000
	CharSetUTF32LE   StringICharSet = 1001
)

// StringIEntry is one language-and-charset tagged string of a STRINGI value.
type StringIEntry struct {
	Value string
	// Type is the inner string encoding: ShortString, String, String2, or
	// StringN.
	Type Type
	// Lang is the three-character ISO 639-2 language code ("eng", ...).
	Lang    string
	CharSet StringICharSet
}

// StringIValue is an international character string: one entry per
// language.
type StringIValue struct {
	Strings []StringIEntry
}

// Get returns the entry for lang, or the first entry when lang is "".
func (v StringIValue) Get(lang string) (string, bool) {
	if lang == "" && len(v.Strings) > 0 {
		return v.Strings[0].Value, true
	}
	for _, s := range v.Strings {
		if s.Lang == lang {
			return s.Value, true
		}
	}
	return "", false
}

const stringNCode uint8 = 0xD9

// StringIType is the international character string (0xDE): a USINT entry
// count, then per entry a 3-byte language code, the inner string type code,
// a UINT character set, and the string in its inner encoding.
type StringIType struct{}

// StringI is the STRINGI type instance.
var StringI = &StringIType{}

func (t *StringIType) TypeName() string { return "STRINGI" }
func (t *StringIType) Size() int        { return -1 }

func (e *StringIEntry) validate() error {
	if len(e.Lang) != 3 {
		return dataErrf("STRINGI language code must be 3 characters: %q", e.Lang)
	}
	for _, c := range e.Lang {
		if c > 0x7F {
			return dataErrf("STRINGI language code must be ascii: %q", e.Lang)
		}
	}
	switch e.Type {
	case ShortString, String:
		if e.CharSet == CharSetUTF16LE || e.CharSet == CharSetUTF32LE {
			return dataErrf("char sets utf-16 and utf-32 are not supported for %s", e.Type.TypeName())
		}
	case String2:
		if e.CharSet != CharSetUTF16LE {
			return dataErrf("only char set utf-16 is supported for STRING2")
		}
	case StringN:
	default:
		if e.Type == nil {
			return dataErrf("STRINGI entry has no inner string type")
		}
		return dataErrf("unsupported STRINGI inner string type: %s", e.Type.TypeName())
	}
	return nil
}

func (e *StringIEntry) typeCode() uint8 {
	if e.Type == StringN {
		return stringNCode
	}
	return e.Type.(*StringType).code
}

// stringNEncodingFor maps a STRINGI char set onto a STRINGN character size.
func stringNEncodingFor(cs StringICharSet) StringNEncoding {
	switch cs {
	case CharSetUTF16LE:
		return StringNUTF16
	case CharSetUTF32LE:
		return StringNUTF32
	}
	return StringNUTF8
}

func (t *StringIType) Encode(v any) ([]byte, error) {
	val, ok := v.(StringIValue)
	if !ok {
		return nil, dataErrf("invalid value for STRINGI: %T", v)
	}
	out, err := USINT.Encode(len(val.Strings))
	if err != nil {
		return nil, err
	}
	for i := range val.Strings {
		entry := &val.Strings[i]
		if err := entry.validate(); err != nil {
			return nil, err
		}
		out = append(out, entry.Lang...)
		out = append(out, entry.typeCode())
		cs, err := UINT.Encode(uint16(entry.CharSet))
		if err != nil {
			return nil, err
		}
		out = append(out, cs...)

		var enc []byte
		if entry.Type == StringN {
			enc, err = StringN.Encode(StringNValue{Value: entry.Value, Encoding: stringNEncodingFor(entry.CharSet)})
		} else {
			enc, err = entry.Type.Encode(entry.Value)
		}
		if err != nil {
			return nil, dataErr(err, "error encoding STRINGI entry %q", entry.Lang)
		}
		out = append(out, enc...)
	}
	return out, nil
}

func (t *StringIType) Decode(r *Reader) (any, error) {
	n, err := USINT.Decode(r)
	if err != nil {
		return nil, dataErr(err, "error decoding STRINGI count")
	}
	count := int(n.(uint8))
	val := StringIValue{Strings: make([]StringIEntry, 0, count)}
	for i := 0; i < count; i++ {
		lang, err := r.Read(3)
		if err != nil {
			return nil, dataErr(err, "error decoding STRINGI language code")
		}
		code, err := r.ReadByte()
		if err != nil {
			return nil, dataErr(err, "error decoding STRINGI string type")
		}
		csRaw, err := UINT.Decode(r)
		if err != nil {
			return nil, dataErr(err, "error decoding STRINGI char set")
		}
		entry := StringIEntry{Lang: string(lang), CharSet: StringICharSet(csRaw.(uint16))}
		switch code {
		case ShortString.code, String.code, String2.code:
			for _, st := range []*StringType{ShortString, String, String2} {
				if st.code == code {
					entry.Type = st
				}
			}
			s, err := entry.Type.Decode(r)
			if err != nil {
				return nil, dataErr(err, "error decoding STRINGI entry %q", entry.Lang)
			}
			entry.Value = s.(string)
		case stringNCode:
			entry.Type = StringN
			s, err := StringN.Decode(r)
			if err != nil {
				return nil, dataErr(err, "error decoding STRINGI entry %q", entry.Lang)
			}
			entry.Value = s.(StringNValue).Value
		default:
			return nil, dataErrf("unsupported STRINGI inner string type code: %#02x", code)
		}
		val.Strings = append(val.Strings, entry)
	}
	return val, nil
}

// CStringType is a null-terminated ISO-8859-1 string.
type CStringType struct{}

// CString is the CSTRING type instance.
var CString = &CStringType{}

func (t *CStringType) TypeName() string { return "CSTRING" }
func (t *CStringType) Size() int        { return -1 }

func (t *CStringType) Encode(v any) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, dataErrf("invalid value for CSTRING: %T", v)
	}
	chars, err := encodeChars(s, encLatin1)
	if err != nil {
		return nil, dataErr(err, "error encoding CSTRING")
	}
	return append(chars, 0x00), nil
}

func (t *CStringType) Decode(r *Reader) (any, error) {
	if r.Empty() {
		return nil, ErrBufferEmpty
	}
	rest := r.Peek(r.Remaining())
	idx := bytes.IndexByte(rest, 0x00)
	if idx == -1 {
		return nil, dataErrf("CSTRING null terminator not found")
	}
	data, _ := r.Read(idx)
	_, _ = r.Read(1)
	s, err := decodeChars(data, encLatin1)
	if err != nil {
		return nil, dataErr(err, "error decoding CSTRING")
	}
	return s, nil
}
