package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"telecompm_backend/internal/visits/domain"
	"telecompm_backend/internal/visits/service"
	"telecompm_backend/internal/visits/transport"
	"telecompm_backend/platform/httpkit"
)

// UploadPhoto receives a photo as multipart form data, stores it and records
// the evidence in one call. Dimensions and the EXIF capture time come from
// the bytes themselves rather than from the client.
// POST /api/v1/visits/:id/photos/upload
func (h *Handler) UploadPhoto(c *gin.Context) {
	id, ok := visitID(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	category := c.PostForm("category")
	phase := c.PostForm("phase")
	if category == "" || phase == "" {
		httpkit.Error(c, http.StatusBadRequest, "category and phase form fields are required", nil)
		return
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "photo file is required", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "cannot read uploaded photo", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "cannot read uploaded photo", nil)
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	key, meta, err := h.store.Upload(c.Request.Context(), id, fileHeader.Filename, contentType, data)
	if httpkit.HandleError(c, err) {
		return
	}

	photo, err := h.svc.AddPhoto(c.Request.Context(), id, actor, service.PhotoParams{
		Category:   category,
		Phase:      domain.PhotoPhase(phase),
		Width:      meta.Width,
		Height:     meta.Height,
		StorageKey: key,
		CapturedAt: meta.CapturedAt,
	})
	if err != nil {
		// The visit rejected the evidence; don't leave the object orphaned.
		if delErr := h.store.Delete(c.Request.Context(), key); delErr != nil {
			h.log.Error("failed to delete rejected photo object", "storageKey", key, "error", delErr)
		}
		httpkit.HandleError(c, err)
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.FromPhoto(photo))
}

// PresignPhotoUpload hands out a presigned PUT URL so the client can push
// the photo straight to the bucket, then register it via POST /photos.
// POST /api/v1/visits/:id/photos/presign
func (h *Handler) PresignPhotoUpload(c *gin.Context) {
	id, ok := visitID(c)
	if !ok {
		return
	}
	var req transport.PresignPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	presigned, err := h.store.PresignUpload(c.Request.Context(), id, req.FileName, req.ContentType, req.SizeBytes)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.PresignPhotoResponse{
		URL:        presigned.URL,
		StorageKey: presigned.StorageKey,
		ExpiresAt:  presigned.ExpiresAt,
	})
}

// PhotoURL returns a short-lived download URL for a recorded photo.
// GET /api/v1/visits/:id/photos/:photoId/url
func (h *Handler) PhotoURL(c *gin.Context) {
	id, ok := visitID(c)
	if !ok {
		return
	}
	photoID, err := uuid.Parse(c.Param("photoId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid photo id", nil)
		return
	}

	v, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	var key string
	for i := range v.Photos {
		if v.Photos[i].ID == photoID {
			key = v.Photos[i].StorageKey
			break
		}
	}
	if key == "" {
		httpkit.Error(c, http.StatusNotFound, "photo not found", nil)
		return
	}

	presigned, err := h.store.PresignDownload(c.Request.Context(), key)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.PresignPhotoResponse{
		URL:        presigned.URL,
		StorageKey: presigned.StorageKey,
		ExpiresAt:  presigned.ExpiresAt,
	})
}
