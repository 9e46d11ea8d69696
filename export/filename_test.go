package export_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"viewport-preview/export"
)

func TestExtensionFor(t *testing.T) {
	cases := map[string]string{
		"image/jpeg":               "jpg",
		"image/png":                "png",
		"image/webp":               "webp",
		"image/gif":                "gif",
		"image/svg+xml":            "svg",
		"image/avif":               "avif",
		"image/jpeg; charset=utf8": "jpg",
		"IMAGE/JPEG":               "jpg",
		"":                         "png",
		"garbage":                  "png",
		"text/html":                "png",
		"application/octet-stream": "png",
		"image/":                   "png",
	}
	for in, want := range cases {
		assert.Equal(t, want, export.ExtensionFor(in), "content type %q", in)
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "image-1.jpg", export.FileName(0, "jpg"))
	assert.Equal(t, "image-12.png", export.FileName(11, "png"))
}
