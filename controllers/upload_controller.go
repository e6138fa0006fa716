package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/premstore/premstore-api/services"
	"github.com/premstore/premstore-api/utils"
)

// UploadEbook handles POST /api/v1/admin/uploads/ebook - stores an ebook
// file on S3 and returns a presigned download URL the admin can paste into
// the product's file_url
func UploadEbook(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "A file is required",
			},
		})
		return
	}

	if err := utils.ValidateEbookFile(fileHeader); err != nil {
		var uploadErr *utils.FileUploadError
		code := "INVALID_FILE"
		if errors.As(err, &uploadErr) {
			code = uploadErr.Code
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    code,
				"message": err.Error(),
			},
		})
		return
	}

	s3Service := services.GetS3Service()

	s3Key, err := s3Service.UploadFile(fileHeader)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_ERROR",
				"message": "Failed to store file",
			},
		})
		return
	}

	downloadURL, err := s3Service.GetPresignedURL(s3Key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_ERROR",
				"message": "Failed to generate download URL",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":     true,
		"s3Key":       s3Key,
		"downloadUrl": downloadURL,
	})
}
