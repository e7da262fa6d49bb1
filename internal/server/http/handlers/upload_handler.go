package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"posterbot/internal/server/http/dto"
)

// UploadsPath is the URL prefix uploaded files are served from.
const UploadsPath = "/uploads"

type UploadHandler struct {
	dir    string
	logger *zap.Logger
}

func NewUploadHandler(dir string, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{dir: dir, logger: logger}
}

// Upload handles POST /upload. The multipart "file" part is stored under
// the upload directory with a random prefix and its public URL returned.
func (h *UploadHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "No file part"})
			return
		}
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid upload"})
		return
	}

	base := filepath.Base(header.Filename)
	if header.Filename == "" || base == "." || base == string(filepath.Separator) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "No selected file"})
		return
	}

	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		h.logger.Error("Failed to create upload directory",
			zap.String("dir", h.dir),
			zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}

	name := uuid.NewString() + "_" + base
	if err := c.SaveUploadedFile(header, filepath.Join(h.dir, name)); err != nil {
		h.logger.Error("Failed to save upload",
			zap.String("file", name),
			zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}

	h.logger.Info("File uploaded",
		zap.String("file", name),
		zap.Int64("size", header.Size))
	c.JSON(http.StatusOK, dto.UploadResponse{URL: UploadsPath + "/" + name})
}
