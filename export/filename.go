package export

import (
	"fmt"
	"mime"
	"strings"
)

// FallbackExt is used when no extension can be derived from a content type.
const FallbackExt = "png"

var subtypeExt = map[string]string{
	"jpeg":               "jpg",
	"pjpeg":              "jpg",
	"svg+xml":            "svg",
	"x-icon":             "ico",
	"vnd.microsoft.icon": "ico",
	"tiff":               "tif",
	"x-ms-bmp":           "bmp",
	"apng":               "png",
}

// ExtensionFor derives a file extension from an image content type such as
// "image/jpeg". Absent, unparseable or non-image types yield FallbackExt.
func ExtensionFor(contentType string) string {
	if contentType == "" {
		return FallbackExt
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return FallbackExt
	}
	typ, sub, ok := strings.Cut(mediaType, "/")
	if !ok || typ != "image" || sub == "" {
		return FallbackExt
	}
	if ext, ok := subtypeExt[sub]; ok {
		return ext
	}
	if !isToken(sub) {
		return FallbackExt
	}
	return sub
}

func isToken(s string) bool {
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// FileName returns the suggested name for the asset at a zero-based index.
func FileName(index int, ext string) string {
	return fmt.Sprintf("image-%d.%s", index+1, ext)
}
