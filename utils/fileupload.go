package utils

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
)

const (
	// MaxEbookFileSize is 50MB in bytes
	MaxEbookFileSize = 50 * 1024 * 1024
)

// AllowedEbookFormats are the file extensions accepted for ebook uploads
var AllowedEbookFormats = map[string]bool{
	".pdf":  true,
	".epub": true,
	".zip":  true,
}

// FileUploadError represents a file upload validation error
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

// ValidateEbookFile validates the uploaded file format and size
func ValidateEbookFile(fileHeader *multipart.FileHeader) error {
	// Check file size
	if fileHeader.Size > MaxEbookFileSize {
		return &FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", MaxEbookFileSize/(1024*1024)),
		}
	}

	// Check file extension
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !AllowedEbookFormats[ext] {
		return &FileUploadError{
			Code:    "INVALID_FILE_FORMAT",
			Message: "Only .pdf, .epub and .zip files are allowed",
		}
	}

	return nil
}
