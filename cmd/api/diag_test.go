package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"civic-api/pkg/app"
	"civic-api/pkg/ingest"

	"github.com/stretchr/testify/assert"
	user_agent "github.com/voxtechnica/user-agent"
)

func TestAbout(t *testing.T) {
	expect := assert.New(t)
	w := httptest.NewRecorder()
	req, err := http.NewRequest("GET", "/", nil)
	if expect.NoError(err) {
		r.ServeHTTP(w, req)
		expect.Equal(http.StatusOK, w.Code, "HTTP Status Code")
		var about app.About
		if expect.NoError(json.NewDecoder(w.Body).Decode(&about), "Decode JSON About") {
			expect.Equal(api.Name, about.Name, "Name")
			expect.Equal("test", about.Environment, "Environment")
		}
	}
}

func TestUserAgent(t *testing.T) {
	expect := assert.New(t)
	h := "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/104.0.0.0 Safari/537.36"
	w := httptest.NewRecorder()
	req, err := http.NewRequest("GET", "/user_agent", nil)
	req.Header.Set("User-Agent", h)
	if expect.NoError(err) {
		r.ServeHTTP(w, req)
		expect.Equal(http.StatusOK, w.Code, "HTTP Status Code")
		var ua user_agent.UserAgent
		if expect.NoError(json.NewDecoder(w.Body).Decode(&ua), "Decode JSON UserAgent") {
			expect.Equal("Browser", ua.ClientType, "Client Type")
			expect.Equal("Chrome", ua.ClientName, "Client Name")
		}
	}
}

func TestIngestConfig(t *testing.T) {
	expect := assert.New(t)
	w := httptest.NewRecorder()
	req, err := http.NewRequest("GET", "/config", nil)
	if expect.NoError(err) {
		r.ServeHTTP(w, req)
		expect.Equal(http.StatusOK, w.Code, "HTTP Status Code")
		var cfg ingest.Config
		if expect.NoError(json.NewDecoder(w.Body).Decode(&cfg), "Decode JSON Config") {
			expect.Equal(ingest.DefaultConfig(), cfg)
		}
	}
}

func TestNoRoute(t *testing.T) {
	expect := assert.New(t)
	w := httptest.NewRecorder()
	req, err := http.NewRequest("GET", "/v1/nothing", nil)
	if expect.NoError(err) {
		r.ServeHTTP(w, req)
		expect.Equal(http.StatusNotFound, w.Code, "HTTP Status Code")
		var e APIEvent
		if expect.NoError(json.NewDecoder(w.Body).Decode(&e), "Decode JSON Event") {
			expect.Equal("ERROR", e.LogLevel, "Event LogLevel")
			expect.Equal(http.StatusNotFound, e.Code, "Event Code")
			expect.Contains(e.Message, "/v1/nothing", "Event Message")
		}
	}
}
