package decode

import (
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

// fallbackCharsets is always appended after the declared charset and its
// aliases. Order matters: utf-8 first, latin-1 before cp1252, ascii last.
var fallbackCharsets = []string{"utf-8", "iso-8859-1", "windows-1252", "ascii"}

// decodePayload converts payload bytes to native text, trying the declared
// charset first and then a fixed fallback chain. It never fails: if every
// candidate rejects the bytes, the payload is decoded as UTF-8 with invalid
// sequences replaced. The result is empty only when data is empty.
func decodePayload(data []byte, declared string) string {
	if len(data) == 0 {
		return ""
	}
	for _, cs := range charsetAttempts(declared) {
		if s, ok := tryDecode(data, cs); ok {
			return s
		}
	}
	return strings.ToValidUTF8(string(data), string(utf8.RuneError))
}

// charsetAttempts builds the ordered, de-duplicated candidate list for a
// declared charset. The latin-1 and windows-1252 families are common aliases
// of each other in practice, so each fans out to the other as a fallback.
func charsetAttempts(declared string) []string {
	var attempts []string
	if declared != "" {
		declared = strings.ToLower(strings.TrimSpace(declared))
		attempts = append(attempts, declared)
		switch canonicalCharset(declared) {
		case "iso-8859-1":
			attempts = append(attempts, "iso-8859-1", "windows-1252")
		case "windows-1252":
			attempts = append(attempts, "windows-1252", "iso-8859-1")
		}
	}
	attempts = append(attempts, fallbackCharsets...)

	seen := make(map[string]struct{}, len(attempts))
	unique := attempts[:0]
	for _, cs := range attempts {
		canon := canonicalCharset(cs)
		if _, ok := seen[canon]; ok {
			continue
		}
		seen[canon] = struct{}{}
		unique = append(unique, canon)
	}
	return unique
}

func canonicalCharset(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "utf-8", "utf8":
		return "utf-8"
	case "iso-8859-1", "latin-1", "latin1", "iso8859-1":
		return "iso-8859-1"
	case "windows-1252", "cp1252":
		return "windows-1252"
	case "ascii", "us-ascii":
		return "ascii"
	default:
		return strings.ToLower(strings.TrimSpace(name))
	}
}

// tryDecode attempts a single charset. The x/text decoders substitute
// U+FFFD instead of failing, so a replacement rune in the output is treated
// as a miss to keep the chain moving, matching strict-decode semantics.
func tryDecode(data []byte, charset string) (string, bool) {
	switch charset {
	case "utf-8":
		if utf8.Valid(data) {
			return string(data), true
		}
		return "", false
	case "ascii":
		for _, b := range data {
			if b >= 0x80 {
				return "", false
			}
		}
		return string(data), true
	case "iso-8859-1":
		// Every byte is defined in latin-1, so this cannot fail.
		s, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return "", false
		}
		return string(s), true
	case "windows-1252":
		s, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil || strings.ContainsRune(string(s), utf8.RuneError) {
			return "", false
		}
		return string(s), true
	default:
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return "", false
		}
		s, err := enc.NewDecoder().Bytes(data)
		if err != nil || strings.ContainsRune(string(s), utf8.RuneError) {
			return "", false
		}
		return string(s), true
	}
}

// charsetReader adapts the x/text encoding index for mime.WordDecoder.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	name := canonicalCharset(charset)
	switch name {
	case "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, err
	}
	return enc.NewDecoder().Reader(input), nil
}
