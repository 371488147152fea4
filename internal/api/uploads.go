package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/JaeTrim/Traffic-AI/internal/apperrors"
	"github.com/gin-gonic/gin"
)

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// limitBody caps the request body before any multipart parsing happens
func limitBody(c *gin.Context, max int64) {
	if max > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
	}
}

// errNoUpload marks a request that parsed cleanly but carried no file part
var errNoUpload = errors.New("no file part")

func fileTooLarge(max int64) error {
	return apperrors.ClientInput(fmt.Sprintf("file too large, max size is %d MB", max/(1024*1024)))
}

// formFile opens an uploaded file, rejecting missing or oversized parts.
// A missing part is a client input error wrapping errNoUpload.
func formFile(c *gin.Context, field string, max int64) (multipart.File, *multipart.FileHeader, error) {
	if max > 0 && c.Request.ContentLength > max {
		return nil, nil, fileTooLarge(max)
	}
	file, header, err := c.Request.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, fileTooLarge(max)
		}
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, apperrors.Wrap(apperrors.KindClientInput, fmt.Sprintf("Missing required field: %s", field), errNoUpload)
		}
		return nil, nil, apperrors.Wrap(apperrors.KindClientInput, "Invalid multipart body", err)
	}
	if max > 0 && header.Size > max {
		file.Close()
		return nil, nil, fileTooLarge(max)
	}
	return file, header, nil
}
