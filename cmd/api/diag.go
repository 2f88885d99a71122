package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	user_agent "github.com/voxtechnica/user-agent"
)

// initDiagRoutes initializes the diagnostic routes.
func initDiagRoutes(r *gin.Engine) {
	r.GET("/user_agent", userAgent)
	r.GET("/config", ingestConfig)
	r.GET("/", about)
}

// about handles a request for basic information about the API.
func about(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, api.About())
}

// userAgent echos a parsed User-Agent header.
func userAgent(c *gin.Context) {
	header := c.Request.Header.Get("User-Agent")
	ua := user_agent.Parse(header)
	c.IndentedJSON(http.StatusOK, ua)
}

// ingestConfig returns the resolved ingestion pipeline settings.
func ingestConfig(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, api.IngestConfig)
}
