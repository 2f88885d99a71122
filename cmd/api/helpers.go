package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"civic-api/pkg/event"
	"civic-api/pkg/ingest"

	"github.com/gin-gonic/gin"
	"github.com/voxtechnica/tuid-go"
	user_agent "github.com/voxtechnica/user-agent"
)

// APIEvent is the body of every error response.
type APIEvent struct {
	CreatedAt time.Time `json:"createdAt"`
	LogLevel  string    `json:"logLevel"`
	Code      int       `json:"code"`
	Message   string    `json:"message"`
	URI       string    `json:"uri"`
	Problems  []string  `json:"problems,omitempty"`
}

// abortWithError aborts the request with the specified error code and error.
func abortWithError(c *gin.Context, code int, err error) {
	abortWithProblems(c, code, err, nil)
}

// abortWithProblems aborts the request, listing the validation problems in the response body.
func abortWithProblems(c *gin.Context, code int, err error, problems []string) {
	c.AbortWithStatusJSON(code, APIEvent{
		CreatedAt: time.Now(),
		LogLevel:  "ERROR",
		Code:      code,
		Message:   err.Error(),
		URI:       c.Request.URL.String(),
		Problems:  problems,
	})
}

// errNotFound is the error for an unknown route or entity.
func errNotFound(what string) error {
	return fmt.Errorf("not found: %s", what)
}

// abortWithServerError records an error Event and aborts with 500 Internal Server Error.
func abortWithServerError(c *gin.Context, entityID, entityType string, err error) {
	e := event.Event{
		EntityID:   entityID,
		EntityType: entityType,
		LogLevel:   event.ERROR,
		Message:    err.Error(),
	}.WithData(gin.H{
		"uri":       c.Request.URL.String(),
		"method":    c.Request.Method,
		"userAgent": user_agent.Parse(c.Request.UserAgent()),
	})
	api.EventBus.Publish(c.Request.Context(), "api.error", e)
	abortWithError(c, http.StatusInternalServerError, err)
}

// abortWithIngestError maps the pipeline error taxonomy to HTTP status codes.
func abortWithIngestError(c *gin.Context, err error) {
	var ve *ingest.ValidationError
	var de *ingest.DecodeError
	var qe *ingest.QualityError
	var ue *ingest.UploadError
	switch {
	case errors.As(err, &ve):
		abortWithProblems(c, http.StatusUnprocessableEntity, fmt.Errorf("unprocessable entity: %w", err), ve.Problems)
	case errors.As(err, &qe):
		abortWithProblems(c, http.StatusUnprocessableEntity, fmt.Errorf("unprocessable entity: %w", err), qe.Problems)
	case errors.As(err, &de):
		abortWithError(c, http.StatusUnprocessableEntity, fmt.Errorf("unprocessable entity: %w", err))
	case errors.As(err, &ue):
		abortWithError(c, http.StatusBadGateway, fmt.Errorf("bad gateway: %w", err))
	default:
		abortWithServerError(c, "", "Issue", err)
	}
}

// paginationParams parses the reverse, limit, and offset query parameters, with defaults.
// The default offset starts at the beginning (or end, if reversed) of the list.
func paginationParams(c *gin.Context, defaultReverse bool, defaultLimit int) (bool, int, string, error) {
	reverse := defaultReverse
	if s := c.Query("reverse"); s != "" {
		r, err := strconv.ParseBool(s)
		if err != nil {
			return reverse, defaultLimit, "", fmt.Errorf("bad request: invalid reverse: %s", s)
		}
		reverse = r
	}
	limit := defaultLimit
	if s := c.Query("limit"); s != "" {
		l, err := strconv.Atoi(s)
		if err != nil || l < 1 || l > 1000 {
			return reverse, defaultLimit, "", fmt.Errorf("bad request: invalid limit (1-1000): %s", s)
		}
		limit = l
	}
	offset := c.Query("offset")
	if offset == "" {
		if reverse {
			offset = tuid.MaxID
		} else {
			offset = tuid.MinID
		}
	}
	return reverse, limit, offset, nil
}
