package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/loandesk/document-service/internal/queue"
	"github.com/loandesk/document-service/internal/services"
)

// Intake accepts a dropped batch of files for a lead's upload queue.
// Supports both single and multiple file uploads.
func (h *Handlers) Intake(c *gin.Context) {
	if _, ok := userIDFromContext(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	leadID := c.Param("leadId")

	form, err := c.MultipartForm()
	if err != nil {
		// fallback: maybe a single file
		if f, ferr := c.FormFile("file"); ferr == nil && f != nil {
			form = &multipart.Form{
				File: map[string][]*multipart.FileHeader{
					"file": {f},
				},
			}
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse multipart form: " + err.Error()})
			return
		}
	}

	var files []*multipart.FileHeader

	// Preferred: "files"
	if fs, found := form.File["files"]; found && len(fs) > 0 {
		files = fs
	}

	// Fallback: "file"
	if len(files) == 0 {
		if f, found := form.File["file"]; found && len(f) > 0 {
			files = f
		}
	}

	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
		return
	}

	intake := make([]queue.IntakeFile, 0, len(files))
	for _, fh := range files {
		data, err := readFileHeader(fh)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read " + fh.Filename + ": " + err.Error()})
			return
		}
		mimeType := fh.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = services.GetContentType(strings.ToLower(filepath.Ext(fh.Filename)))
		}
		intake = append(intake, queue.IntakeFile{
			Name:     fh.Filename,
			Size:     fh.Size,
			MimeType: mimeType,
			Data:     data,
		})
	}

	results := h.Queue.Intake(c.Request.Context(), leadID, intake)
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
