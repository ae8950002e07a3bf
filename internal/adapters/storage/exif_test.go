package storage

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/google/uuid"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestInspectPhotoReadsDimensions(t *testing.T) {
	data := encodePNG(t, 1280, 960)

	meta, err := inspectPhoto(data)
	if err != nil {
		t.Fatalf("inspectPhoto: %v", err)
	}
	if meta.Width != 1280 || meta.Height != 960 {
		t.Errorf("dimensions = %dx%d, want 1280x960", meta.Width, meta.Height)
	}
	if meta.CapturedAt != nil {
		t.Errorf("CapturedAt = %v, want nil for PNG without EXIF", meta.CapturedAt)
	}
}

func TestInspectPhotoRejectsNonImages(t *testing.T) {
	if _, err := inspectPhoto([]byte("definitely not an image")); err == nil {
		t.Fatal("expected error for non-image bytes")
	}
}

func TestObjectKeyScopesByVisit(t *testing.T) {
	visitID := uuid.New()

	first := objectKey(visitID, "power-before.jpg")
	second := objectKey(visitID, "power-before.jpg")

	prefix := "visits/" + visitID.String() + "/"
	if !bytes.HasPrefix([]byte(first), []byte(prefix)) {
		t.Errorf("key %q missing visit prefix %q", first, prefix)
	}
	if first == second {
		t.Error("repeated uploads of the same file name must not collide")
	}
}

func TestHasEXIF(t *testing.T) {
	if !HasEXIF("image/jpeg; charset=binary") {
		t.Error("jpeg should carry EXIF")
	}
	if HasEXIF("image/png") {
		t.Error("png should not carry EXIF")
	}
}
