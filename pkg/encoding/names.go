// Package encoding provides text utilities for FBX object names and file
// references: class suffix stripping, path separators and legacy
// charset repair.
package encoding

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	textenc "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"
)

// ErrUnknownCharset is returned for charsets without a decoder.
var ErrUnknownCharset = errors.New("unknown charset")

// classSeparator splits "Name\x00\x01Class" in binary FBX object names.
const classSeparator = "\x00\x01"

// ObjectName returns the display name of an FBX object. Binary files store
// "Name\x00\x01Class", ASCII files "Class::Name"; both reduce to "Name".
func ObjectName(s string) string {
	if i := strings.Index(s, classSeparator); i >= 0 {
		return s[:i]
	}
	if i := strings.Index(s, "::"); i >= 0 {
		return s[i+2:]
	}
	return strings.TrimRight(s, "\x00")
}

// NormalizePath converts Windows separators in a file reference to
// forward slashes. Case is kept; file systems differ on it.
func NormalizePath(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}

// NameDecoder repairs a name that was read with the wrong charset.
type NameDecoder func(string) string

// NewNameDecoder returns the decoder for a charset name. Empty and UTF-8
// charsets return the identity decoder.
func NewNameDecoder(charset string) (NameDecoder, error) {
	var enc textenc.Encoding
	switch strings.ToLower(strings.ReplaceAll(charset, "-", "_")) {
	case "", "utf8", "utf_8":
		return func(s string) string { return s }, nil
	case "euc_kr", "euckr", "cp949":
		enc = korean.EUCKR
	case "shift_jis", "sjis", "cp932":
		enc = japanese.ShiftJIS
	case "gbk", "cp936":
		enc = simplifiedchinese.GBK
	case "big5", "cp950":
		enc = traditionalchinese.Big5
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCharset, charset)
	}
	return func(s string) string { return decodeLatin1(enc, s) }, nil
}

// decodeLatin1 takes a string whose runes are the raw bytes of a legacy
// encoding (as produced by a Latin-1 read) and decodes those bytes.
// Strings that are plain ASCII, contain runes above U+00FF or fail to
// decode are returned as-is.
func decodeLatin1(enc textenc.Encoding, s string) string {
	raw := make([]byte, 0, len(s))
	ascii := true
	for _, r := range s {
		if r > 0xFF {
			return s
		}
		if r >= utf8.RuneSelf {
			ascii = false
		}
		raw = append(raw, byte(r))
	}
	if ascii {
		return s
	}
	result, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil || !utf8.Valid(result) {
		return s
	}
	return string(result)
}
