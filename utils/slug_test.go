package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "contoh-berita", Slugify("Contoh Berita"))
	assert.Equal(t, "banjir-di-jakarta-2026", Slugify("  Banjir di Jakarta, 2026!  "))
	assert.Equal(t, "a-b", Slugify("--a__b--"))
	assert.Equal(t, "", Slugify("!!!"))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "<p>halo</p>", SanitizeHTML(`<p onclick="x()">halo</p><script>alert(1)</script>`))
	assert.Equal(t, "Judul", SanitizeText("<b>Judul</b>"))
}
