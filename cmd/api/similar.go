package main

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// registerSimilarImageRoutes initializes the stand-alone photo check route.
func registerSimilarImageRoutes(r *gin.Engine) {
	r.POST("/v1/similar_images", checkSimilarImages)
}

// checkSimilarImages evaluates a single photo without storing anything.
//
// @Summary Check Photo
// @Description Run the quality gate, fingerprinting, and similarity search for one photo.
// @Description Nothing is stored; matches are advisory.
// @Tags Photo
// @Accept multipart/form-data
// @Produce json
// @Param photo formData file true "Photo (JPEG, PNG, GIF, WebP)"
// @Success 200 {object} ingest.ImageCheck "Metadata, quality, hashes, and similar photos"
// @Failure 400 {object} APIEvent "Bad Request (missing photo)"
// @Failure 422 {object} APIEvent "Undecodable or rejected photo"
// @Failure 500 {object} APIEvent "Internal Server Error"
// @Router /v1/similar_images [post]
func checkSimilarImages(c *gin.Context) {
	fh, err := c.FormFile("photo")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("bad request: missing photo: %w", err))
		return
	}
	if fh.Size > api.IngestConfig.MaxImageBytes {
		abortWithError(c, http.StatusUnprocessableEntity,
			fmt.Errorf("unprocessable entity: image size %d bytes exceeds %d bytes", fh.Size, api.IngestConfig.MaxImageBytes))
		return
	}
	f, err := fh.Open()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("bad request: unreadable photo: %w", err))
		return
	}
	defer f.Close()
	blob, err := io.ReadAll(f)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("bad request: unreadable photo: %w", err))
		return
	}
	check, err := api.Ingest.CheckImage(c.Request.Context(), blob)
	if err != nil {
		abortWithIngestError(c, err)
		return
	}
	c.JSON(http.StatusOK, check)
}
