package controller

import (
	"io"
	"net/http"
	"strings"

	"taller-backend/models"
	"taller-backend/services"
	"taller-backend/utils/logger"

	"github.com/gin-gonic/gin"
)

// maxPhotoBytes bounds a single multipart upload
const maxPhotoBytes = 10 << 20

type PhotoController struct {
	photos services.PhotoServiceInterface
	logger logger.Logger
}

func NewPhotoController(photos services.PhotoServiceInterface, log logger.Logger) *PhotoController {
	return &PhotoController{
		photos: photos,
		logger: log,
	}
}

// ListPhotos handles GET /services/:id/photos
func (h *PhotoController) ListPhotos(c *gin.Context) {
	photos, err := h.photos.ListPhotos(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "Failed to list photos", err)
		return
	}
	respond(c, http.StatusOK, "Photos retrieved successfully", photos)
}

// AddPhoto handles POST /services/:id/photos. The image is either a multipart "file"
// field or a JSON body with base64 data.
func (h *PhotoController) AddPhoto(c *gin.Context) {
	upload, err := h.readUpload(c)
	if err != nil {
		respondBadRequest(c, h.logger, err)
		return
	}

	photo, err := h.photos.AddPhoto(c.Request.Context(), c.Param("id"), upload)
	if err != nil {
		respondError(c, h.logger, "Failed to add photo", err)
		return
	}
	respond(c, http.StatusCreated, "Photo added successfully", photo)
}

func (h *PhotoController) readUpload(c *gin.Context) (models.PhotoUpload, error) {
	var upload models.PhotoUpload
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		err := c.ShouldBindJSON(&upload)
		return upload, err
	}

	header, err := c.FormFile("file")
	if err != nil {
		return upload, err
	}
	file, err := header.Open()
	if err != nil {
		return upload, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxPhotoBytes+1))
	if err != nil {
		return upload, err
	}
	if len(data) > maxPhotoBytes {
		return upload, &models.ValidationError{Fields: []models.FieldError{{Field: "file", Message: "photo is larger than 10 MB"}}}
	}

	upload.FileName = header.Filename
	upload.ContentType = header.Header.Get("Content-Type")
	upload.Data = data
	return upload, nil
}

// RemovePhoto handles DELETE /services/:id/photos/:photoId
func (h *PhotoController) RemovePhoto(c *gin.Context) {
	if err := h.photos.RemovePhoto(c.Request.Context(), c.Param("id"), c.Param("photoId")); err != nil {
		respondError(c, h.logger, "Failed to remove photo", err)
		return
	}
	respond(c, http.StatusOK, "Photo removed successfully", nil)
}
