package storage

import (
	"bytes"
	"image"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rwcarlsen/goexif/exif"

	"telecompm_backend/platform/apperr"
)

// inspectPhoto decodes the image header for pixel dimensions and, when EXIF
// data is present, extracts the capture timestamp. A missing or unreadable
// EXIF block is not an error; CapturedAt stays nil and the validation layer
// falls back to the upload time.
func inspectPhoto(data []byte) (PhotoMeta, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return PhotoMeta{}, apperr.Validation("file is not a decodable image")
	}

	meta := PhotoMeta{Width: cfg.Width, Height: cfg.Height}

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return meta, nil
	}
	if captured, err := x.DateTime(); err == nil {
		meta.CapturedAt = &captured
	}
	return meta, nil
}

// HasEXIF reports whether the content type can carry EXIF metadata at all.
func HasEXIF(contentType string) bool {
	normalized := strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0]))
	return normalized == "image/jpeg"
}
