package main

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"civic-api/pkg/ingest"
	"civic-api/pkg/report"
	"civic-api/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/voxtechnica/tuid-go"
	v "github.com/voxtechnica/versionary"
)

// registerIssueRoutes initializes the Issue routes.
func registerIssueRoutes(r *gin.Engine) {
	r.POST("/v1/issues", createIssue)
	r.GET("/v1/issues", readIssues)
	r.GET("/v1/issues/:id", readIssue)
	r.HEAD("/v1/issues/:id", existsIssue)
	r.GET("/v1/issues/:id/versions", readIssueVersions)
	r.GET("/v1/issues/:id/fingerprints", readIssueFingerprints)
	r.DELETE("/v1/issues/:id", deleteIssue)
	r.GET("/v1/issue_categories", readIssueCategories)
	r.GET("/v1/issue_statuses", readIssueStatuses)
	r.GET("/v1/issue_labels", readIssueLabels)
}

// createIssue submits a new Issue with its photos.
//
// @Summary Submit Issue
// @Description Submit a new Issue with photo evidence. Photos are checked, fingerprinted, and stored in order.
// @Description If a recent Issue in the same category describes the same problem, nothing is created.
// @Tags Issue
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param description formData string true "Description"
// @Param category formData string true "Category (e.g. pothole, lighting, graffiti)"
// @Param lat formData number true "Latitude"
// @Param lng formData number true "Longitude"
// @Param address formData string false "Street Address"
// @Param photos formData file false "Photos (JPEG, PNG, GIF, WebP), in order"
// @Success 201 {object} ingest.Result "Newly-created Issue, with advisory warnings"
// @Failure 400 {object} APIEvent "Bad Request (invalid form data)"
// @Failure 409 {object} ingest.Result "Duplicate of a recent Issue"
// @Failure 422 {object} APIEvent "Issue validation errors, or a rejected photo"
// @Failure 502 {object} APIEvent "Photo storage failure"
// @Failure 500 {object} APIEvent "Internal Server Error"
// @Header 201 {string} Location "URL of the newly created Issue"
// @Router /v1/issues [post]
func createIssue(c *gin.Context) {
	// Parse the form fields
	lat, err := formFloat(c, "lat")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	lng, err := formFloat(c, "lng")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	issue := report.Issue{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Category:    c.PostForm("category"),
		Location: report.Location{
			Latitude:  lat,
			Longitude: lng,
			Address:   c.PostForm("address"),
		},
	}
	// Save the photos to temporary files, which the pipeline removes
	var files []*multipart.FileHeader
	form, err := c.MultipartForm()
	if err == nil {
		files = form.File["photos"]
	} else if !errors.Is(err, http.ErrNotMultipart) {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("bad request: invalid multipart form: %w", err))
		return
	}
	uploads, err := saveUploads(c, files)
	if err != nil {
		abortWithServerError(c, "", "Issue", err)
		return
	}
	// Run the ingestion pipeline
	result, err := api.Ingest.Ingest(c.Request.Context(), ingest.Request{Issue: issue, Uploads: uploads})
	if err != nil {
		abortWithIngestError(c, err)
		return
	}
	if result.Outcome == ingest.DuplicateFound {
		c.JSON(http.StatusConflict, result)
		return
	}
	c.Header("Location", c.Request.URL.String()+"/"+result.Issue.ID)
	c.JSON(http.StatusCreated, result)
}

// formFloat parses an optional numeric form field. A missing field is zero.
func formFloat(c *gin.Context, key string) (float64, error) {
	s := strings.TrimSpace(c.PostForm(key))
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad request: invalid %s: %s", key, s)
	}
	return f, nil
}

// saveUploads writes each uploaded file to a temporary file. On failure, the files already written are removed.
func saveUploads(c *gin.Context, files []*multipart.FileHeader) ([]ingest.Upload, error) {
	uploads := make([]ingest.Upload, 0, len(files))
	for _, fh := range files {
		path := filepath.Join(os.TempDir(), "civic-upload-"+tuid.NewID().String()+strings.ToLower(filepath.Ext(fh.Filename)))
		if err := c.SaveUploadedFile(fh, path); err != nil {
			_ = os.Remove(path)
			for _, u := range uploads {
				_ = os.Remove(u.Path)
			}
			return nil, fmt.Errorf("save upload %s: %w", fh.Filename, err)
		}
		uploads = append(uploads, ingest.Upload{FileName: fh.Filename, Path: path})
	}
	return uploads, nil
}

// readIssues returns a paginated list of Issues.
//
// @Summary List Issues
// @Description List Issues, paging with reverse, limit, and offset. Optionally, filter by category or status.
// @Description A from/to date range returns Issues created in that range, oldest first.
// @Tags Issue
// @Produce json
// @Param category query string false "Category"
// @Param status query string false "Status" Enums(PHOTOS_PENDING, PHOTOS_COMMITTED)
// @Param from query string false "Created on or after date (YYYY-MM-DD)"
// @Param to query string false "Created before date (YYYY-MM-DD)"
// @Param reverse query bool false "Reverse Order (default: false)"
// @Param limit query int false "Limit (default: 100)"
// @Param offset query string false "Offset (default: forward/reverse alphanumeric)"
// @Success 200 {array} report.Issue "Issues"
// @Failure 400 {object} APIEvent "Bad Request (invalid parameter)"
// @Failure 500 {object} APIEvent "Internal Server Error"
// @Router /v1/issues [get]
func readIssues(c *gin.Context) {
	reverse, limit, offset, err := paginationParams(c, false, 100)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	category := c.Query("category")
	status := strings.ToUpper(c.Query("status"))
	if status != "" && !report.Status(status).IsValid() {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("bad request: invalid status: %s", status))
		return
	}
	from, to := c.Query("from"), c.Query("to")
	if (from == "") != (to == "") {
		abortWithError(c, http.StatusBadRequest, errors.New("bad request: from and to dates are required together"))
		return
	}
	if from != "" {
		issues, err := api.IssueService.ReadIssuesByDateRange(c, from, to, limit)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, fmt.Errorf("bad request: %w", err))
			return
		}
		c.JSON(http.StatusOK, issues)
	} else if category != "" {
		issues, err := api.IssueService.ReadIssuesByCategoryAsJSON(c, category, reverse, limit, offset)
		if err != nil {
			abortWithServerError(c, "", "Issue", fmt.Errorf("read issues by category %s: %w", category, err))
			return
		}
		c.Data(http.StatusOK, "application/json;charset=UTF-8", issues)
	} else if status != "" {
		issues, err := api.IssueService.ReadIssuesByStatus(c, status, reverse, limit, offset)
		if err != nil {
			abortWithServerError(c, "", "Issue", fmt.Errorf("read issues by status %s: %w", status, err))
			return
		}
		c.JSON(http.StatusOK, issues)
	} else {
		issues := api.IssueService.ReadIssues(c, reverse, limit, offset)
		c.JSON(http.StatusOK, issues)
	}
}

// validIssueID aborts with 400 Bad Request and returns false if the path parameter ID is not a TUID.
func validIssueID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if !tuid.IsValid(tuid.TUID(id)) {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("bad request: invalid path parameter ID: %s", id))
		return id, false
	}
	return id, true
}

// readIssue returns the current version of the specified Issue.
//
// @Summary Read Issue
// @Description Get the current version of an Issue by ID.
// @Tags Issue
// @Produce json
// @Param id path string true "Issue ID"
// @Success 200 {object} report.Issue "Issue"
// @Failure 400 {object} APIEvent "Bad Request (invalid path parameter ID)"
// @Failure 404 {object} APIEvent "Not Found"
// @Failure 500 {object} APIEvent "Internal Server Error"
// @Router /v1/issues/{id} [get]
func readIssue(c *gin.Context) {
	id, ok := validIssueID(c)
	if !ok {
		return
	}
	j, err := api.IssueService.ReadAsJSON(c, id)
	if errors.Is(err, v.ErrNotFound) {
		abortWithError(c, http.StatusNotFound, errNotFound("issue "+id))
		return
	}
	if err != nil {
		abortWithServerError(c, id, "Issue", fmt.Errorf("read issue %s: %w", id, err))
		return
	}
	c.Data(http.StatusOK, "application/json;charset=UTF-8", j)
}

// existsIssue checks if the specified Issue exists.
//
// @Summary Issue Exists
// @Description Check if the specified Issue exists.
// @Tags Issue
// @Param id path string true "Issue ID"
// @Success 204 "Issue Exists"
// @Failure 400 "Bad Request (invalid path parameter ID)"
// @Failure 404 "Not Found"
// @Router /v1/issues/{id} [head]
func existsIssue(c *gin.Context) {
	id := c.Param("id")
	if !tuid.IsValid(tuid.TUID(id)) {
		c.Status(http.StatusBadRequest)
	} else if !api.IssueService.Exists(c, id) {
		c.Status(http.StatusNotFound)
	} else {
		c.Status(http.StatusNoContent)
	}
}

// readIssueVersions returns the versions of the specified Issue.
//
// @Summary List Issue Versions
// @Description List the versions of an Issue; photos are committed in a later version than the one created.
// @Tags Issue
// @Produce json
// @Param id path string true "Issue ID"
// @Param reverse query bool false "Reverse Order (default: false)"
// @Param limit query int false "Limit (default: 100)"
// @Param offset query string false "Offset (default: forward/reverse alphanumeric)"
// @Success 200 {array} report.Issue "Issue Versions"
// @Failure 400 {object} APIEvent "Bad Request (invalid parameter)"
// @Failure 404 {object} APIEvent "Not Found"
// @Failure 500 {object} APIEvent "Internal Server Error"
// @Router /v1/issues/{id}/versions [get]
func readIssueVersions(c *gin.Context) {
	id, ok := validIssueID(c)
	if !ok {
		return
	}
	reverse, limit, offset, err := paginationParams(c, false, 100)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	versions, err := api.IssueService.ReadVersions(c, id, reverse, limit, offset)
	if err != nil && !errors.Is(err, v.ErrNotFound) {
		abortWithServerError(c, id, "Issue", fmt.Errorf("read issue %s versions: %w", id, err))
		return
	}
	if len(versions) == 0 {
		abortWithError(c, http.StatusNotFound, errNotFound("issue "+id))
		return
	}
	c.JSON(http.StatusOK, versions)
}

// readIssueFingerprints returns the photo fingerprints of the specified Issue.
//
// @Summary List Issue Fingerprints
// @Description List the perceptual fingerprints of an Issue's photos.
// @Tags Issue
// @Produce json
// @Param id path string true "Issue ID"
// @Success 200 {array} fingerprint.Fingerprint "Fingerprints"
// @Failure 400 {object} APIEvent "Bad Request (invalid path parameter ID)"
// @Failure 404 {object} APIEvent "Not Found"
// @Failure 500 {object} APIEvent "Internal Server Error"
// @Router /v1/issues/{id}/fingerprints [get]
func readIssueFingerprints(c *gin.Context) {
	id, ok := validIssueID(c)
	if !ok {
		return
	}
	if !api.IssueService.Exists(c, id) {
		abortWithError(c, http.StatusNotFound, errNotFound("issue "+id))
		return
	}
	j, err := api.FingerprintService.ReadByReportAsJSON(c, id)
	if err != nil {
		abortWithServerError(c, id, "Fingerprint", fmt.Errorf("read issue %s fingerprints: %w", id, err))
		return
	}
	c.Data(http.StatusOK, "application/json;charset=UTF-8", j)
}

// deleteIssue deletes the specified Issue, with its photos and fingerprints.
//
// @Summary Delete Issue
// @Description Delete an Issue with its photos and fingerprints.
// @Tags Issue
// @Produce json
// @Param id path string true "Issue ID"
// @Success 200 {object} report.Issue "Deleted Issue"
// @Failure 400 {object} APIEvent "Bad Request (invalid path parameter ID)"
// @Failure 404 {object} APIEvent "Not Found"
// @Failure 500 {object} APIEvent "Internal Server Error"
// @Router /v1/issues/{id} [delete]
func deleteIssue(c *gin.Context) {
	id, ok := validIssueID(c)
	if !ok {
		return
	}
	issue, err := api.Ingest.Remove(c.Request.Context(), id)
	if errors.Is(err, v.ErrNotFound) {
		abortWithError(c, http.StatusNotFound, errNotFound("issue "+id))
		return
	}
	if err != nil {
		abortWithServerError(c, id, "Issue", err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// readIssueCategories returns a list of categories for which Issues exist.
//
// @Summary List Issue Categories
// @Description Get a complete, sorted list of Issue categories.
// @Tags Issue
// @Produce json
// @Success 200 {array} string "Categories"
// @Failure 500 {object} APIEvent "Internal Server Error"
// @Router /v1/issue_categories [get]
func readIssueCategories(c *gin.Context) {
	categories, err := api.IssueService.ReadAllCategories(c)
	if err != nil {
		abortWithServerError(c, "", "Issue", fmt.Errorf("read issue categories: %w", err))
		return
	}
	c.JSON(http.StatusOK, categories)
}

// readIssueStatuses returns a list of statuses for which Issues exist.
//
// @Summary List Issue Statuses
// @Description Get a complete, sorted list of Issue statuses.
// @Tags Issue
// @Produce json
// @Success 200 {array} string "Statuses"
// @Failure 500 {object} APIEvent "Internal Server Error"
// @Router /v1/issue_statuses [get]
func readIssueStatuses(c *gin.Context) {
	statuses, err := api.IssueService.ReadAllStatuses(c)
	if err != nil {
		abortWithServerError(c, "", "Issue", fmt.Errorf("read issue statuses: %w", err))
		return
	}
	c.JSON(http.StatusOK, statuses)
}

// readIssueLabels returns a filtered list of Issue IDs and titles.
//
// @Summary Filter Issue Labels
// @Description Filter Issue titles by words in a case-insensitive contains query.
// @Tags Issue
// @Produce json
// @Param contains query string true "Contains (space-separated words)"
// @Param any query bool false "Any Match (default: false, all words must match)"
// @Success 200 {array} versionary.TextValue "Issue ID and Title"
// @Failure 400 {object} APIEvent "Bad Request (invalid parameter)"
// @Failure 500 {object} APIEvent "Internal Server Error"
// @Router /v1/issue_labels [get]
func readIssueLabels(c *gin.Context) {
	contains := c.Query("contains")
	anyMatch, _ := strconv.ParseBool(c.DefaultQuery("any", "false"))
	labels, err := api.IssueService.FilterIssueLabels(c, contains, anyMatch)
	if errors.Is(err, util.ErrEmptyFilter) {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("bad request: missing contains query: %w", err))
		return
	}
	if err != nil {
		abortWithServerError(c, "", "Issue", fmt.Errorf("filter issue labels: %w", err))
		return
	}
	c.JSON(http.StatusOK, labels)
}
