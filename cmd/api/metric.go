package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"civic-api/pkg/metric"

	"github.com/gin-gonic/gin"
	"github.com/voxtechnica/tuid-go"
	v "github.com/voxtechnica/versionary"
)

// registerMetricRoutes initializes the Metric routes with the Gin router.
func registerMetricRoutes(r *gin.Engine) {
	r.GET("/v1/metrics", readMetrics)
	r.GET("/v1/metrics/:id", readMetric)
	r.GET("/v1/metric_titles", readMetricTitles)
	r.GET("/v1/metric_stats", readMetricStats)
}

// readMetrics returns a paginated list of Metrics.
//
// @Summary List Metrics
// @Description List Metrics for an entity, or with a title (and optional tag), paging with reverse, limit, and offset.
// @Tags Metric
// @Produce json
// @Param entity query string false "Entity ID (a TUID)"
// @Param title query string false "Metric Title (e.g. Ingest Latency)"
// @Param tag query string false "Tag (e.g. created, rejected, or a category)"
// @Param reverse query bool false "Reverse Order (default: true)"
// @Param limit query int false "Limit (default: 100)"
// @Param offset query string false "Offset (default: forward/reverse alphanumeric)"
// @Success 200 {array} metric.Metric "Metrics"
// @Failure 400 {object} APIEvent "Bad Request (invalid parameter)"
// @Failure 500 {object} APIEvent "Internal Server Error"
// @Router /v1/metrics [get]
func readMetrics(c *gin.Context) {
	if entityID := c.Query("entity"); entityID != "" {
		if !tuid.IsValid(tuid.TUID(entityID)) {
			abortWithError(c, http.StatusBadRequest, fmt.Errorf("bad request: invalid TUID parameter, entity: %s", entityID))
			return
		}
		j, err := api.MetricService.ReadMetricsByEntityIDAsJSON(c, entityID)
		if err != nil {
			abortWithServerError(c, entityID, "Metric", fmt.Errorf("read metrics by entity %s: %w", entityID, err))
			return
		}
		c.Data(http.StatusOK, "application/json;charset=UTF-8", j)
		return
	}
	title := strings.TrimSpace(c.Query("title"))
	if title == "" {
		abortWithError(c, http.StatusBadRequest, errors.New("bad request: an entity or title parameter is required"))
		return
	}
	reverse, limit, offset, err := paginationParams(c, true, 100)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	var ms []metric.Metric
	if tag := strings.TrimSpace(c.Query("tag")); tag != "" {
		ms, err = api.MetricService.ReadMetricsByTitleTag(c, title, tag, reverse, limit, offset)
	} else {
		ms, err = api.MetricService.ReadMetricsByTitle(c, title, reverse, limit, offset)
	}
	if err != nil {
		abortWithServerError(c, "", "Metric", fmt.Errorf("read metrics %s: %w", title, err))
		return
	}
	c.JSON(http.StatusOK, ms)
}

// readMetric returns the specified Metric.
//
// @Summary Read Metric
// @Description Get a Metric by ID.
// @Tags Metric
// @Produce json
// @Param id path string true "Metric ID"
// @Success 200 {object} metric.Metric "Metric"
// @Failure 400 {object} APIEvent "Bad Request (invalid path parameter ID)"
// @Failure 404 {object} APIEvent "Not Found"
// @Failure 500 {object} APIEvent "Internal Server Error"
// @Router /v1/metrics/{id} [get]
func readMetric(c *gin.Context) {
	id := c.Param("id")
	if !tuid.IsValid(tuid.TUID(id)) {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("bad request: invalid path parameter ID: %s", id))
		return
	}
	j, err := api.MetricService.ReadAsJSON(c, id)
	if errors.Is(err, v.ErrNotFound) {
		abortWithError(c, http.StatusNotFound, errNotFound("metric "+id))
		return
	}
	if err != nil {
		abortWithServerError(c, id, "Metric", fmt.Errorf("read metric %s: %w", id, err))
		return
	}
	c.Data(http.StatusOK, "application/json;charset=UTF-8", j)
}

// readMetricTitles returns the titles for which Metrics exist.
//
// @Summary List Metric Titles
// @Description Get a complete, sorted list of Metric titles.
// @Tags Metric
// @Produce json
// @Success 200 {array} string "Metric Titles"
// @Failure 500 {object} APIEvent "Internal Server Error"
// @Router /v1/metric_titles [get]
func readMetricTitles(c *gin.Context) {
	titles, err := api.MetricService.ReadAllTitles(c)
	if err != nil {
		abortWithServerError(c, "", "Metric", fmt.Errorf("read metric titles: %w", err))
		return
	}
	c.JSON(http.StatusOK, titles)
}

// readMetricStats summarizes recent Metrics.
//
// @Summary Metric Statistics
// @Description Summarize the Metrics with a title (and optional tag) recorded over the last few days.
// @Tags Metric
// @Produce json
// @Param title query string false "Metric Title (default: Ingest Latency)"
// @Param tag query string false "Tag (e.g. created, rejected, or a category)"
// @Param days query int false "Days (default: 7, maximum: 90)"
// @Success 200 {object} metric.Stat "Statistics"
// @Failure 400 {object} APIEvent "Bad Request (invalid parameter)"
// @Failure 500 {object} APIEvent "Internal Server Error"
// @Router /v1/metric_stats [get]
func readMetricStats(c *gin.Context) {
	title := strings.TrimSpace(c.DefaultQuery("title", metric.IngestLatency))
	tag := strings.TrimSpace(c.Query("tag"))
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days < 1 || days > 90 {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("bad request: days must be between 1 and 90: %s", c.Query("days")))
		return
	}
	stat, err := api.MetricService.ReadStat(c, title, tag, time.Now().AddDate(0, 0, -days))
	if err != nil {
		abortWithServerError(c, "", "Metric", err)
		return
	}
	c.JSON(http.StatusOK, stat)
}
