package app

import (
	"testing"

	"civic-api/pkg/client"
	"civic-api/pkg/ingest"
	"civic-api/pkg/report"

	"github.com/stretchr/testify/assert"
	"github.com/voxtechnica/tuid-go"
)

func TestInitMock(t *testing.T) {
	expect := assert.New(t)
	a := Application{Description: "test application"}
	if !expect.NoError(a.InitMock("test")) {
		return
	}
	about := a.About()
	expect.Equal("Civic API", about.Name)
	expect.Equal("test", about.Environment)
	expect.Contains(about.String(), "test application")
	expect.Equal("https://api-test.civic.example.org", a.APIURL)
	expect.ElementsMatch([]string{"Event", "Fingerprint", "Issue", "Metric"}, a.EntityTypes)
	expect.Equal(ingest.DefaultConfig(), a.IngestConfig)
	expect.NotNil(a.Ingest)

	result, err := a.Ingest.Ingest(ctx, ingest.Request{Issue: report.Issue{
		Title:       "Broken streetlight",
		Description: "The streetlight on the corner has been dark for a week.",
		Category:    "Lighting",
		Location:    report.Location{Latitude: 45.52, Longitude: -122.68},
	}})
	a.Wait()
	if expect.NoError(err) {
		expect.Equal(ingest.Created, result.Outcome)
		expect.True(a.IssueService.Exists(ctx, result.Issue.ID))
		events, err := a.EventService.ReadEventsByEntityID(ctx, result.Issue.ID, false, 10, tuid.MinID)
		if expect.NoError(err) && expect.Len(events, 1) {
			expect.Equal("issue.created", events[0].Name)
		}
		metrics, err := a.MetricService.ReadMetricsByEntityID(ctx, result.Issue.ID)
		if expect.NoError(err) {
			expect.Len(metrics, 2, "latency and photo count")
		}
	}
}

func TestInitMockWithParameters(t *testing.T) {
	expect := assert.New(t)
	ps := client.NewParameterStoreMock()
	_ = ps.SetParameter(ctx, client.Parameter{Name: "/civic/test/SimilarityThreshold", Value: "4"})
	a := Application{ParameterStore: ps}
	if expect.NoError(a.InitMock("test")) {
		expect.Equal(4, a.IngestConfig.SimilarityThreshold)
		expect.Equal(4, a.Ingest.Config.SimilarityThreshold)
	}

	_ = ps.SetParameter(ctx, client.Parameter{Name: "/civic/test/MaxDimension", Value: "10"})
	b := Application{ParameterStore: ps}
	expect.Error(b.InitMock("test"), "invalid configuration is rejected")
}
