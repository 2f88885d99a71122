package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"civic-api/pkg/metric"

	"github.com/stretchr/testify/assert"
	"github.com/voxtechnica/tuid-go"
)

func TestReadMetrics(t *testing.T) {
	expect := assert.New(t)
	id := submit(t, "Blocked storm drain", "Leaves are blocking the storm drain and the street floods when it rains.", "drainage-api")
	api.Wait()

	// Metrics for the new Issue
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/metrics?entity="+id, nil)
	r.ServeHTTP(w, req)
	expect.Equal(http.StatusOK, w.Code, "HTTP Status Code")
	var metrics []metric.Metric
	if !expect.NoError(json.NewDecoder(w.Body).Decode(&metrics), "Decode JSON Metrics") || !expect.Len(metrics, 2) {
		return
	}
	var titles []string
	for _, m := range metrics {
		titles = append(titles, m.Title)
		expect.Contains(m.Tags, "drainage-api")
	}
	expect.ElementsMatch([]string{metric.IngestLatency, metric.IngestPhotos}, titles)

	// Read one of them
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/v1/metrics/"+metrics[0].ID, nil)
	r.ServeHTTP(w, req)
	expect.Equal(http.StatusOK, w.Code, "HTTP Status Code")
	expect.Contains(w.Body.String(), metrics[0].ID)

	// By title and tag, most recent first
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/v1/metrics?title=Ingest+Latency&tag=drainage-api", nil)
	r.ServeHTTP(w, req)
	expect.Equal(http.StatusOK, w.Code, "HTTP Status Code")
	metrics = nil
	if expect.NoError(json.NewDecoder(w.Body).Decode(&metrics), "Decode JSON Metrics") && expect.Len(metrics, 1) {
		expect.Equal(id, metrics[0].EntityID)
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/v1/metric_titles", nil)
	r.ServeHTTP(w, req)
	expect.Equal(http.StatusOK, w.Code, "HTTP Status Code")
	expect.Contains(w.Body.String(), metric.IngestLatency)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/v1/metric_stats?tag=drainage-api&days=1", nil)
	r.ServeHTTP(w, req)
	expect.Equal(http.StatusOK, w.Code, "HTTP Status Code")
	var stat metric.Stat
	if expect.NoError(json.NewDecoder(w.Body).Decode(&stat), "Decode JSON Stat") {
		expect.Equal(metric.IngestLatency, stat.Title)
		expect.Equal(int64(1), stat.Count)
		expect.Equal("ms", stat.Units)
	}
}

func TestReadMetricsInvalid(t *testing.T) {
	expect := assert.New(t)
	for _, target := range []string{
		"/v1/metrics",
		"/v1/metrics?entity=bogus",
		"/v1/metrics?title=Ingest+Latency&limit=0",
		"/v1/metrics/bogus",
		"/v1/metric_stats?days=0",
		"/v1/metric_stats?days=week",
	} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", target, nil)
		r.ServeHTTP(w, req)
		expect.Equal(http.StatusBadRequest, w.Code, target)
	}
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/metrics/"+tuid.NewID().String(), nil)
	r.ServeHTTP(w, req)
	expect.Equal(http.StatusNotFound, w.Code, "HTTP Status Code")
}
