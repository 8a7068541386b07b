package layout

import "strings"

// Name is the fixed width on-disk form of a file name.
type Name [NameSize]byte

// Label is the fixed width on-disk form of a volume label.
type Label [LabelSize]byte

// EncodeName converts a file name to its on-disk form: letters are
// uppercased, digits, '_' and '.' are kept, anything else becomes '?'.
// The result is truncated or space padded to NameSize.
func EncodeName(s string) Name {
	var n Name
	encode(n[:], s)
	return n
}

func (n Name) String() string {
	return decode(n[:])
}

// EncodeLabel converts a volume label to its on-disk form, see EncodeName.
func EncodeLabel(s string) Label {
	var l Label
	encode(l[:], s)
	return l
}

func (l Label) String() string {
	return decode(l[:])
}

func encode(dst []byte, s string) {
	i := 0
	for ; i < len(dst) && i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
			dst[i] = c - 'a' + 'A'
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '.':
			dst[i] = c
		default:
			dst[i] = '?'
		}
	}

	for ; i < len(dst); i++ {
		dst[i] = ' '
	}
}

func decode(src []byte) string {
	return strings.TrimRight(string(src), " ")
}
