package classfile

import "strings"

// decodeModifiedUTF8 decodes the class file format's modified UTF-8
// encoding: the NUL byte is encoded as the two-byte sequence C0 80, and
// supplementary characters are encoded as a pair of three-byte surrogate
// sequences rather than a single four-byte UTF-8 sequence. Everything else
// matches standard UTF-8.
func decodeModifiedUTF8(b []byte) (string, error) {
	var sb strings.Builder
	sb.Grow(len(b))

	i := 0
	for i < len(b) {
		b0 := b[i]
		switch {
		case b0&0x80 == 0: // 1-byte: 0xxxxxxx
			sb.WriteByte(b0)
			i++

		case b0&0xE0 == 0xC0: // 2-byte: 110xxxxx 10xxxxxx (includes C0 80 -> NUL)
			if i+1 >= len(b) {
				return "", ErrOutsideBoundary
			}
			b1 := b[i+1]
			r := rune(b0&0x1F)<<6 | rune(b1&0x3F)
			sb.WriteRune(r)
			i += 2

		case b0&0xF0 == 0xE0: // 3-byte: 1110xxxx 10xxxxxx 10xxxxxx
			if i+2 >= len(b) {
				return "", ErrOutsideBoundary
			}
			b1, b2 := b[i+1], b[i+2]
			hi := rune(b0&0x0F)<<12 | rune(b1&0x3F)<<6 | rune(b2&0x3F)

			// Supplementary characters are two adjacent surrogate-form
			// three-byte sequences (high then low surrogate); combine them
			// into one rune if the next sequence is a matching low
			// surrogate, matching javac's modified-UTF-8 output.
			if hi >= 0xD800 && hi <= 0xDBFF && i+5 < len(b) &&
				b[i+3]&0xF0 == 0xE0 {
				lo := rune(b[i+3]&0x0F)<<12 | rune(b[i+4]&0x3F)<<6 | rune(b[i+5]&0x3F)
				if lo >= 0xDC00 && lo <= 0xDFFF {
					r := 0x10000 + (hi-0xD800)<<10 + (lo - 0xDC00)
					sb.WriteRune(r)
					i += 6
					continue
				}
			}
			sb.WriteRune(hi)
			i += 3

		default:
			return "", ErrOutsideBoundary
		}
	}
	return sb.String(), nil
}
