package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"civic-api/pkg/event"

	"github.com/gin-gonic/gin"
	"github.com/voxtechnica/tuid-go"
	v "github.com/voxtechnica/versionary"
)

// registerEventRoutes initializes the Event routes with the Gin router.
func registerEventRoutes(r *gin.Engine) {
	r.GET("/v1/events", readEvents)
	r.GET("/v1/events/:id", readEvent)
	r.GET("/v1/event_names", readEventNames)
	r.GET("/v1/event_dates", readEventDates)
}

// readEvents returns a paginated list of Events.
//
// @Summary List Events
// @Description List Events, paging with reverse, limit, and offset.
// @Description Optionally, filter by entity ID, name, log level, or date.
// @Description If no filter is specified, the default is to return up to limit recent Events in reverse order.
// @Tags Event
// @Produce json
// @Param entity query string false "Entity ID (a TUID)"
// @Param name query string false "Event Name (e.g. issue.created)"
// @Param log_level query string false "Log Level" Enums(DEBUG, INFO, WARN, ERROR)
// @Param date query string false "Date (YYYY-MM-DD)"
// @Param reverse query bool false "Reverse Order (default: false)"
// @Param limit query int false "Limit (default: 100)"
// @Param offset query string false "Offset (default: forward/reverse alphanumeric)"
// @Success 200 {array} event.Event "Events"
// @Failure 400 {object} APIEvent "Bad Request (invalid parameter)"
// @Failure 500 {object} APIEvent "Internal Server Error"
// @Router /v1/events [get]
func readEvents(c *gin.Context) {
	reverse, limit, offset, err := paginationParams(c, false, 100)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	entityID := c.Query("entity")
	if entityID != "" && !tuid.IsValid(tuid.TUID(entityID)) {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("bad request: invalid TUID parameter, entity: %s", entityID))
		return
	}
	name := strings.TrimSpace(c.Query("name"))
	logLevel := strings.ToUpper(c.Query("log_level"))
	if logLevel != "" && !event.LogLevel(logLevel).IsValid() {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("bad request: invalid log level: %s", logLevel))
		return
	}
	date := strings.TrimSpace(c.Query("date"))
	if date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			abortWithError(c, http.StatusBadRequest, fmt.Errorf("bad request: invalid date %s: %w", date, err))
			return
		}
	}
	switch {
	case entityID != "":
		es, err := api.EventService.ReadEventsByEntityIDAsJSON(c, entityID, reverse, limit, offset)
		if err != nil {
			abortWithServerError(c, entityID, "Event", fmt.Errorf("read events by entity %s: %w", entityID, err))
			return
		}
		c.Data(http.StatusOK, "application/json;charset=UTF-8", es)
	case name != "":
		es, err := api.EventService.ReadEventsByName(c, name, reverse, limit, offset)
		if err != nil {
			abortWithServerError(c, "", "Event", fmt.Errorf("read events by name %s: %w", name, err))
			return
		}
		c.JSON(http.StatusOK, es)
	case logLevel != "":
		es, err := api.EventService.ReadEventsByLogLevel(c, logLevel, reverse, limit, offset)
		if err != nil {
			abortWithServerError(c, "", "Event", fmt.Errorf("read events by log level %s: %w", logLevel, err))
			return
		}
		c.JSON(http.StatusOK, es)
	case date != "":
		es, err := api.EventService.ReadEventsByDate(c, date, reverse, limit, offset)
		if err != nil {
			abortWithServerError(c, "", "Event", fmt.Errorf("read events by date %s: %w", date, err))
			return
		}
		c.JSON(http.StatusOK, es)
	default:
		es, err := api.EventService.ReadRecentEvents(c, limit)
		if err != nil {
			abortWithServerError(c, "", "Event", fmt.Errorf("read recent events: %w", err))
			return
		}
		c.JSON(http.StatusOK, es)
	}
}

// readEvent returns the specified Event.
//
// @Summary Read Event
// @Description Get an Event by ID.
// @Tags Event
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} event.Event "Event"
// @Failure 400 {object} APIEvent "Bad Request (invalid path parameter ID)"
// @Failure 404 {object} APIEvent "Not Found"
// @Failure 500 {object} APIEvent "Internal Server Error"
// @Router /v1/events/{id} [get]
func readEvent(c *gin.Context) {
	id := c.Param("id")
	if !tuid.IsValid(tuid.TUID(id)) {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("bad request: invalid path parameter ID: %s", id))
		return
	}
	j, err := api.EventService.ReadAsJSON(c, id)
	if errors.Is(err, v.ErrNotFound) {
		abortWithError(c, http.StatusNotFound, errNotFound("event "+id))
		return
	}
	if err != nil {
		abortWithServerError(c, id, "Event", fmt.Errorf("read event %s: %w", id, err))
		return
	}
	c.Data(http.StatusOK, "application/json;charset=UTF-8", j)
}

// readEventNames returns a list of names for which Events exist.
//
// @Summary List Event Names
// @Description Get a complete, sorted list of Event names.
// @Tags Event
// @Produce json
// @Success 200 {array} string "Event Names"
// @Failure 500 {object} APIEvent "Internal Server Error"
// @Router /v1/event_names [get]
func readEventNames(c *gin.Context) {
	names, err := api.EventService.ReadAllNames(c)
	if err != nil {
		abortWithServerError(c, "", "Event", fmt.Errorf("read event names: %w", err))
		return
	}
	c.JSON(http.StatusOK, names)
}

// readEventDates returns a list of ISO dates for which Events exist.
//
// @Summary List Event Dates
// @Description Get a paginated list of ISO dates (e.g. yyyy-mm-dd) for which Events exist.
// @Tags Event
// @Produce json
// @Param reverse query bool false "Reverse Order (default: false)"
// @Param limit query int false "Limit (default: 100)"
// @Param offset query string false "Offset (default: forward/reverse alphanumeric)"
// @Success 200 {array} string "Dates"
// @Failure 400 {object} APIEvent "Bad Request (invalid pagination parameter)"
// @Failure 500 {object} APIEvent "Internal Server Error"
// @Router /v1/event_dates [get]
func readEventDates(c *gin.Context) {
	reverse, limit, offset, err := paginationParams(c, false, 100)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	if c.Query("offset") == "" {
		// dates are not TUIDs
		offset = ""
		if reverse {
			offset = "9999-99-99"
		}
	}
	dates, err := api.EventService.ReadDates(c, reverse, limit, offset)
	if err != nil {
		abortWithServerError(c, "", "Event", fmt.Errorf("read event dates: %w", err))
		return
	}
	c.JSON(http.StatusOK, dates)
}
