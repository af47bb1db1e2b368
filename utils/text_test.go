package utils_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/kabarportal/portal/utils"
)

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"berita", 10, "berita"},
		{"berita", 6, "berita"},
		{"berita", 3, "ber"},
		{"café", 4, "caf"},
		{"café", 5, "café"},
		{"日本語", 4, "日"},
		{"日本語", 2, ""},
		{"abc", 0, ""},
	}
	for _, tc := range cases {
		got := utils.Truncate(tc.in, tc.n)
		assert.Equal(t, tc.want, got, "Truncate(%q, %d)", tc.in, tc.n)
		assert.True(t, utf8.ValidString(got))
	}
}

func TestTruncateLongUserAgent(t *testing.T) {
	ua := strings.Repeat("a", 511) + "é"
	got := utils.Truncate(ua, 512)
	assert.Len(t, got, 511)
	assert.True(t, utf8.ValidString(got))
}
