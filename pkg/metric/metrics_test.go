package metric

import (
	"context"
	"log"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/voxtechnica/tuid-go"
	v "github.com/voxtechnica/versionary"
)

var (
	// Metric Service
	ctx     = context.Background()
	service = NewMockService("test")

	// Known timestamps, recent enough to be summarized
	now = time.Now()
	t1  = now.Add(-4 * time.Hour)
	t2  = now.Add(-3 * time.Hour)
	t3  = now.Add(-2 * time.Hour)
	t4  = now.Add(-1 * time.Hour)

	// Known Issue IDs
	issue1 = tuid.NewIDWithTime(t1).String()
	issue2 = tuid.NewIDWithTime(t2).String()

	// Known Metrics
	m1 = Metric{
		ID:         tuid.NewIDWithTime(t1).String(),
		CreatedAt:  t1,
		ExpiresAt:  t1.AddDate(0, 0, 90),
		Title:      IngestLatency,
		EntityID:   issue1,
		EntityType: "Issue",
		Tags:       []string{"created", "pothole"},
		Value:      100,
		Units:      "ms",
	}
	m2 = Metric{
		ID:         tuid.NewIDWithTime(t2).String(),
		CreatedAt:  t2,
		ExpiresAt:  t2.AddDate(0, 0, 90),
		Title:      IngestLatency,
		EntityID:   issue2,
		EntityType: "Issue",
		Tags:       []string{"created", "graffiti"},
		Value:      300,
		Units:      "ms",
	}
	m3 = Metric{
		ID:        tuid.NewIDWithTime(t3).String(),
		CreatedAt: t3,
		ExpiresAt: t3.AddDate(0, 0, 90),
		Title:     IngestLatency,
		Tags:      []string{"rejected", "pothole"},
		Value:     50,
		Units:     "ms",
	}
	m4 = Metric{
		ID:         tuid.NewIDWithTime(t4).String(),
		CreatedAt:  t4,
		ExpiresAt:  t4.AddDate(0, 0, 90),
		Title:      IngestPhotos,
		EntityID:   issue1,
		EntityType: "Issue",
		Tags:       []string{"created"},
		Value:      3,
		Units:      "photos",
	}
	knownMetrics = []Metric{m1, m2, m3, m4}
)

func TestMain(m *testing.M) {
	// Check the table/row definition
	if !service.Table.IsValid() {
		log.Fatal("invalid table definition")
	}
	// Write known Metrics to the database
	for _, m := range knownMetrics {
		if _, err := service.Write(ctx, m); err != nil {
			log.Fatal(err)
		}
	}
	// Run the tests
	m.Run()
}

func TestCreateReadAndDeleteMetric(t *testing.T) {
	expect := assert.New(t)
	m, problems, err := service.Create(ctx, Metric{
		Title:      "Check Image Latency",
		EntityType: "Photo",
		Value:      12.5,
		Units:      "ms",
	})
	expect.Empty(problems)
	if !expect.NoError(err) {
		return
	}
	expect.True(tuid.IsValid(tuid.TUID(m.ID)), "Valid ID")
	expect.Equal(m.CreatedAt.AddDate(0, 0, 90), m.ExpiresAt, "ExpiresAt")
	expect.True(service.Exists(ctx, m.ID))

	got, err := service.Read(ctx, m.ID)
	if expect.NoError(err) {
		expect.Equal(m.ID, got.ID)
		expect.Equal(m.Value, got.Value)
	}
	j, err := service.ReadAsJSON(ctx, m.ID)
	if expect.NoError(err) {
		expect.Contains(string(j), m.ID)
	}

	deleted, err := service.Delete(ctx, m.ID)
	if expect.NoError(err) {
		expect.Equal(m.ID, deleted.ID)
	}
	expect.False(service.Exists(ctx, m.ID))
	_, err = service.Read(ctx, m.ID)
	expect.ErrorIs(err, v.ErrNotFound)
}

func TestCreateInvalidMetric(t *testing.T) {
	expect := assert.New(t)
	_, problems, err := service.Create(ctx, Metric{Title: "Bad|Title", EntityID: "bogus", Value: math.NaN()})
	expect.Error(err)
	expect.Contains(problems, "Title contains '|'")
	expect.Contains(problems, "EntityID is not a valid TUID")
	expect.Contains(problems, "Units are missing")
	expect.Contains(problems, "Value is not a finite number")
}

func TestReadAllTitles(t *testing.T) {
	expect := assert.New(t)
	titles, err := service.ReadAllTitles(ctx)
	if expect.NoError(err) {
		expect.Contains(titles, IngestLatency)
		expect.Contains(titles, IngestPhotos)
	}
}

func TestReadMetricsByTitle(t *testing.T) {
	expect := assert.New(t)
	metrics, err := service.ReadMetricsByTitle(ctx, IngestLatency, false, 10, tuid.MinID)
	if expect.NoError(err) && expect.Len(metrics, 3) {
		expect.Equal(m1.ID, metrics[0].ID)
		expect.Equal(m2.ID, metrics[1].ID)
		expect.Equal(m3.ID, metrics[2].ID)
	}
	metrics, err = service.ReadMetricsByTitleTag(ctx, IngestLatency, "pothole", true, 10, tuid.MaxID)
	if expect.NoError(err) && expect.Len(metrics, 2) {
		expect.Equal(m3.ID, metrics[0].ID, "most recent first")
		expect.Equal(m1.ID, metrics[1].ID)
	}
}

func TestReadMetricsByEntityID(t *testing.T) {
	expect := assert.New(t)
	metrics, err := service.ReadMetricsByEntityID(ctx, issue1)
	if expect.NoError(err) && expect.Len(metrics, 2) {
		expect.Equal(m1.ID, metrics[0].ID)
		expect.Equal(m4.ID, metrics[1].ID)
	}
	j, err := service.ReadMetricsByEntityIDAsJSON(ctx, issue2)
	if expect.NoError(err) {
		expect.Contains(string(j), m2.ID)
		expect.NotContains(string(j), m1.ID)
	}
}

func TestReadStat(t *testing.T) {
	expect := assert.New(t)
	since := now.Add(-24 * time.Hour)

	stat, err := service.ReadStat(ctx, IngestLatency, "created", since)
	if expect.NoError(err) {
		expect.Equal(int64(2), stat.Count)
		expect.Equal("ms", stat.Units)
		expect.Equal(400.0, stat.Sum)
		expect.Equal(100.0, stat.Min)
		expect.Equal(300.0, stat.Max)
		expect.Equal(200.0, stat.Mean)
		expect.True(stat.FromTime.Before(stat.ToTime), "time range")
	}

	stat, err = service.ReadStat(ctx, IngestLatency, "", since)
	if expect.NoError(err) {
		expect.Equal(int64(3), stat.Count)
		expect.Equal(100.0, stat.Median)
	}

	// Nothing recorded after the known Metrics
	stat, err = service.ReadStat(ctx, IngestPhotos, "", now)
	if expect.NoError(err) {
		expect.Zero(stat.Count)
	}
}

func TestNewStat(t *testing.T) {
	expect := assert.New(t)
	empty := NewStat(IngestLatency, "", "ms", nil)
	expect.Zero(empty.Count)
	expect.Zero(empty.Mean)

	var values []v.NumValue
	for _, x := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		values = append(values, v.NumValue{Key: tuid.NewID().String(), Value: x})
	}
	s := NewStat(IngestLatency, "created", "ms", values)
	expect.Equal(int64(8), s.Count)
	expect.Equal(40.0, s.Sum)
	expect.Equal(5.0, s.Mean)
	expect.Equal(4.5, s.Median)
	expect.Equal(2.0, s.Min)
	expect.Equal(9.0, s.Max)
	expect.Equal(9.0, s.P95)
	expect.Equal(2.0, s.StdDev)
}

func TestMetricString(t *testing.T) {
	expect := assert.New(t)
	s := m1.String()
	expect.Contains(s, "100 ms")
	expect.Contains(s, "Issue-"+issue1)
	expect.Contains(s, "created, pothole")
	expect.Equal([]string{"Ingest Latency|created", "Ingest Latency|pothole"}, m1.TitleTags())
	expect.Empty(m3.EntityIDs())
}

func TestRecorder(t *testing.T) {
	expect := assert.New(t)
	svc := NewMockService("test")
	r := NewRecorder(svc, zerolog.Nop())
	entityID := tuid.NewID().String()
	r.Record(ctx, Metric{Title: IngestLatency, EntityID: entityID, EntityType: "Issue", Tags: []string{"created"}, Value: 42, Units: "ms"})
	r.Record(ctx, Metric{Title: IngestLatency}) // invalid: logged and dropped
	r.Wait()
	metrics, err := svc.ReadMetricsByEntityID(ctx, entityID)
	if expect.NoError(err) && expect.Len(metrics, 1) {
		expect.Equal(42.0, metrics[0].Value)
	}
	all, err := svc.ReadMetricsByTitle(ctx, IngestLatency, false, 10, tuid.MinID)
	if expect.NoError(err) {
		expect.Len(all, 1)
	}
}

func TestRecorderConcurrentWrites(t *testing.T) {
	expect := assert.New(t)
	svc := NewMockService("burst")
	r := NewRecorder(svc, zerolog.Nop())
	entityID := tuid.NewID().String()
	for i := 0; i < 40; i++ {
		r.Record(ctx, Metric{Title: IngestPhotos, EntityID: entityID, EntityType: "Issue", Tags: []string{"created"}, Value: float64(i), Units: "photos"})
	}
	r.Wait()
	metrics, err := svc.ReadMetricsByEntityID(ctx, entityID)
	if expect.NoError(err) {
		expect.Len(metrics, 40)
	}
}
