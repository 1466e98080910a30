package encoding

import (
	"errors"
	"testing"
)

func TestObjectName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Arm\x00\x01Model", "Arm"},
		{"Model::Arm", "Arm"},
		{"Arm", "Arm"},
		{"Arm\x00\x00", "Arm"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ObjectName(tt.in); got != tt.want {
			t.Errorf("ObjectName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizePath(t *testing.T) {
	if got := NormalizePath(`textures\Wood\crate.PNG`); got != "textures/Wood/crate.PNG" {
		t.Errorf("NormalizePath() = %q", got)
	}
}

// latin1 spreads raw bytes over runes the way a Latin-1 read would.
func latin1(b []byte) string {
	r := make([]rune, len(b))
	for i, c := range b {
		r[i] = rune(c)
	}
	return string(r)
}

func TestNameDecoder(t *testing.T) {
	tests := []struct {
		charset string
		in      string
		want    string
	}{
		{"euc-kr", latin1([]byte{0xB0, 0xA1}), "가"},
		{"CP949", latin1([]byte{0xB0, 0xA1}), "가"},
		{"shift_jis", latin1([]byte{0x82, 0xA0}), "あ"},
		{"euc-kr", "Bone01", "Bone01"},
		{"euc-kr", "가", "가"},
		{"", latin1([]byte{0xB0, 0xA1}), latin1([]byte{0xB0, 0xA1})},
	}
	for _, tt := range tests {
		dec, err := NewNameDecoder(tt.charset)
		if err != nil {
			t.Fatalf("NewNameDecoder(%q): %v", tt.charset, err)
		}
		if got := dec(tt.in); got != tt.want {
			t.Errorf("%s: decode(%q) = %q, want %q", tt.charset, tt.in, got, tt.want)
		}
	}
}

func TestNameDecoderUnknown(t *testing.T) {
	if _, err := NewNameDecoder("koi8-r"); !errors.Is(err, ErrUnknownCharset) {
		t.Errorf("err = %v, want ErrUnknownCharset", err)
	}
}
