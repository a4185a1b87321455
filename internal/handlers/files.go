package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/filevault/filevault/internal/middleware"
	"github.com/filevault/filevault/internal/models"
	"github.com/filevault/filevault/internal/services"
	appErrors "github.com/filevault/filevault/pkg/errors"
	"github.com/filevault/filevault/pkg/response"
)

// maxUploadBytes bounds multipart uploads.
const maxUploadBytes = 64 << 20

// FileHandler exposes the file record surface. Route guards (the
// declarative and interception adapters) run before any of these.
type FileHandler struct {
	files *services.FileService
}

func NewFileHandler(files *services.FileService) *FileHandler {
	return &FileHandler{files: files}
}

type filePayload struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	ContentType string         `json:"content_type"`
	Size        int64          `json:"size"`
	OwnerID     string         `json:"owner_id"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// POST /api/files accepts a multipart upload in the "file" field.
func (h *FileHandler) Upload(c *gin.Context) {
	identity := middleware.IdentityFrom(c)

	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.NewBadRequest("multipart field 'file' is required"))
		return
	}
	if header.Size > maxUploadBytes {
		response.Error(c, appErrors.NewBadRequest("file exceeds the upload size limit"))
		return
	}

	opened, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, "failed to read upload"))
		return
	}
	defer opened.Close()

	data, err := io.ReadAll(io.LimitReader(opened, maxUploadBytes+1))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, "failed to read upload"))
		return
	}

	file, err := h.files.Upload(c.Request.Context(), identity, services.UploadInput{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, toFilePayload(file))
}

// GET /api/files
func (h *FileHandler) List(c *gin.Context) {
	files, err := h.files.ListAccessible(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	payload := make([]filePayload, 0, len(files))
	for i := range files {
		payload = append(payload, toFilePayload(&files[i]))
	}
	response.Success(c, http.StatusOK, payload)
}

// GET /api/files/:fileId
func (h *FileHandler) Get(c *gin.Context) {
	file, err := h.files.Get(c.Request.Context(), c.Param("fileId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, toFilePayload(file))
}

// GET /api/files/:fileId/content
func (h *FileHandler) Download(c *gin.Context) {
	file, data, err := h.files.Download(c.Request.Context(), c.Param("fileId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	c.Data(http.StatusOK, contentType, data)
}

type updateFileRequest struct {
	Name     string         `json:"name"`
	Metadata map[string]any `json:"metadata"`
}

// PUT /api/files/:fileId
func (h *FileHandler) Update(c *gin.Context) {
	var req updateFileRequest
	if !bindAndValidate(c, &req) {
		return
	}

	file, err := h.files.Update(c.Request.Context(), middleware.IdentityFrom(c), c.Param("fileId"), services.UpdateInput{
		Name:     req.Name,
		Metadata: req.Metadata,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, toFilePayload(file))
}

// DELETE /api/files/:fileId
func (h *FileHandler) Delete(c *gin.Context) {
	err := h.files.SoftDelete(c.Request.Context(), middleware.IdentityFrom(c), c.Param("fileId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func toFilePayload(file *models.File) filePayload {
	return filePayload{
		ID:          file.ID,
		Name:        file.Name,
		ContentType: file.ContentType,
		Size:        file.Size,
		OwnerID:     file.OwnerID,
		Metadata:    file.Metadata,
	}
}
