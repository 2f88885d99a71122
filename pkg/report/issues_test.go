package report

import (
	"context"
	"log"
	"testing"
	"time"

	"civic-api/pkg/photo"

	"github.com/stretchr/testify/assert"
	"github.com/voxtechnica/tuid-go"
)

var (
	ctx      = context.Background()
	service  = NewMockService("test")
	portland = Location{Latitude: 45.5152, Longitude: -122.6784, Address: "1120 SW 5th Ave"}
)

// fixedMetric scores every pair of strings the same.
type fixedMetric float64

func (m fixedMetric) Compare(a, b string) float64 {
	return float64(m)
}

// issueAt builds a committed Issue as if it had been created at the specified time.
func issueAt(at time.Time, category, title, description string) Issue {
	id := tuid.NewIDWithTime(at).String()
	return Issue{
		ID:          id,
		CreatedAt:   at,
		VersionID:   id,
		UpdatedAt:   at,
		Title:       title,
		Description: description,
		Category:    category,
		Location:    portland,
		Photos:      []photo.Ref{},
		Status:      PHOTOS_COMMITTED,
	}
}

func TestMain(m *testing.M) {
	if !service.Table.IsValid() {
		log.Fatal("invalid table configuration")
	}
	m.Run()
}

func TestCreate(t *testing.T) {
	expect := assert.New(t)
	i, problems, err := service.Create(ctx, Issue{
		Title:       " <b>Pothole</b> on 5th ",
		Description: "Deep pothole & standing water",
		Category:    " Roads ",
		Location:    portland,
	})
	if expect.NoError(err) && expect.Empty(problems) {
		expect.True(tuid.IsValid(tuid.TUID(i.ID)))
		expect.Equal(i.ID, i.VersionID)
		expect.Equal("Pothole on 5th", i.Title)
		expect.Equal("Deep pothole & standing water", i.Description)
		expect.Equal("roads", i.Category)
		expect.Equal(PHOTOS_PENDING, i.Status)
		expect.Empty(i.Photos)
		expect.True(service.Exists(ctx, i.ID))
	}
}

func TestCreateInvalid(t *testing.T) {
	expect := assert.New(t)
	_, problems, err := service.Create(ctx, Issue{Title: "<i></i>", Category: "roads"})
	expect.Error(err)
	expect.Contains(problems, "Title is missing")
	expect.Contains(problems, "Description is missing")
	expect.Contains(problems, "Location coordinates are missing")

	_, problems, err = service.Create(ctx, Issue{
		Title:       "Graffiti",
		Description: "On the bridge",
		Category:    "vandalism",
		Location:    Location{Latitude: 91, Longitude: 10},
	})
	expect.Error(err)
	expect.Equal([]string{"Location latitude must be between -90 and 90"}, problems)
}

func TestUpdateCommitsPhotos(t *testing.T) {
	expect := assert.New(t)
	i, _, err := service.Create(ctx, Issue{Title: "Broken light", Description: "Streetlight out", Category: "lighting", Location: portland})
	if !expect.NoError(err) {
		return
	}
	i.Photos = []photo.Ref{{FileName: "issues/a.jpeg", MediaType: photo.JPEG}}
	i.Status = PHOTOS_COMMITTED
	u, problems, err := service.Update(ctx, i)
	if expect.NoError(err) && expect.Empty(problems) {
		expect.NotEqual(i.VersionID, u.VersionID)
		read, err := service.Read(ctx, i.ID)
		if expect.NoError(err) {
			expect.Equal(PHOTOS_COMMITTED, read.Status)
			expect.Equal(1, len(read.Photos))
		}
		versions, err := service.ReadVersions(ctx, i.ID, false, 10, tuid.MinID)
		if expect.NoError(err) {
			expect.Equal(2, len(versions))
		}
	}

	// Empty photo references are rejected
	i.Photos = append(i.Photos, photo.Ref{})
	_, problems, err = service.Update(ctx, i)
	expect.Error(err)
	expect.Equal([]string{"Photo 2 reference is empty"}, problems)
}

func TestDelete(t *testing.T) {
	expect := assert.New(t)
	i, _, err := service.Create(ctx, Issue{Title: "Fallen tree", Description: "Blocking the sidewalk", Category: "parks", Location: portland})
	if !expect.NoError(err) {
		return
	}
	deleted, err := service.Delete(ctx, i.ID)
	if expect.NoError(err) {
		expect.Equal(i.ID, deleted.ID)
	}
	expect.False(service.Exists(ctx, i.ID))
}

func TestReadRecentInCategory(t *testing.T) {
	expect := assert.New(t)
	s := NewMockService("recent")
	now := time.Now()
	old := issueAt(now.Add(-8*24*time.Hour), "roads", "Old pothole", "Filled already")
	mid := issueAt(now.Add(-6*24*time.Hour), "roads", "Pothole", "Near the school")
	latest := issueAt(now.Add(-time.Hour), "roads", "Crack", "Across both lanes")
	other := issueAt(now.Add(-time.Hour), "parks", "Litter", "Overflowing bins")
	for _, i := range []Issue{old, mid, latest, other} {
		if _, err := s.Write(ctx, i); err != nil {
			t.Fatal(err)
		}
	}
	recent, err := s.ReadRecentInCategory(ctx, "Roads", now.Add(-7*24*time.Hour))
	if expect.NoError(err) && expect.Equal(2, len(recent)) {
		expect.Equal(latest.ID, recent[0].ID)
		expect.Equal(mid.ID, recent[1].ID)
	}
	none, err := s.ReadRecentInCategory(ctx, "sewers", now.Add(-7*24*time.Hour))
	expect.NoError(err)
	expect.Empty(none)

	categories, err := s.ReadAllCategories(ctx)
	if expect.NoError(err) {
		expect.ElementsMatch([]string{"parks", "roads"}, categories)
	}
	byCategory, err := s.ReadIssuesByCategory(ctx, "roads", true, 10, tuid.MaxID)
	if expect.NoError(err) {
		expect.Equal(3, len(byCategory))
	}
	byStatus, err := s.ReadIssuesByStatus(ctx, "photos_committed", false, 10, tuid.MinID)
	if expect.NoError(err) {
		expect.Equal(4, len(byStatus))
	}
}

func TestScoreDuplicatesWindow(t *testing.T) {
	expect := assert.New(t)
	s := NewMockService("window")
	now := time.Now()
	sixDays := issueAt(now.Add(-6*24*time.Hour), "roads", "Pothole on Main", "Deep pothole by the bus stop")
	eightDays := issueAt(now.Add(-8*24*time.Hour), "roads", "Pothole on Main", "Deep pothole by the bus stop")
	scorer := NewScorer(0.75)
	scorer.Metric = fixedMetric(0.76)

	if _, err := s.Write(ctx, eightDays); err != nil {
		t.Fatal(err)
	}
	candidates, err := s.ScoreDuplicates(ctx, scorer, "Pothole on Main", "Deep pothole", "roads", 0)
	expect.NoError(err)
	expect.Empty(candidates)

	if _, err := s.Write(ctx, sixDays); err != nil {
		t.Fatal(err)
	}
	candidates, err = s.ScoreDuplicates(ctx, scorer, "Pothole on Main", "Deep pothole", "roads", 0)
	if expect.NoError(err) && expect.Equal(1, len(candidates)) {
		expect.Equal(sixDays.ID, candidates[0].ReportID)
		expect.InDelta(0.76, candidates[0].Score, 1e-9)
	}

	// Other categories are never consulted
	candidates, err = s.ScoreDuplicates(ctx, scorer, "Pothole on Main", "Deep pothole", "parks", 0)
	expect.NoError(err)
	expect.Empty(candidates)
}

func TestScorerDice(t *testing.T) {
	expect := assert.New(t)
	scorer := NewScorer(0.75)
	prior := issueAt(time.Now(), "roads", "Pothole on Main Street", "A deep pothole next to the bus stop on Main Street")

	same := scorer.Score("POTHOLE on Main Street", "A deep pothole next to the bus stop on Main Street", prior)
	expect.InDelta(1.0, same.Score, 1e-9)

	different := scorer.Score("Graffiti", "Paint on the library wall", prior)
	expect.Less(different.Score, 0.75)

	qualifying := scorer.Qualifying("Pothole on Main Street", "A deep pothole next to the bus stop on Main St", []Issue{prior})
	if expect.Equal(1, len(qualifying)) {
		expect.Greater(qualifying[0].Score, 0.75)
		expect.Less(qualifying[0].Score, 1.0)
	}
}

func TestFilterIssueLabels(t *testing.T) {
	expect := assert.New(t)
	s := NewMockService("labels")
	for _, i := range []Issue{
		issueAt(time.Now(), "roads", "Pothole on Elm", "Deep"),
		issueAt(time.Now(), "roads", "Faded crosswalk on Elm", "Hard to see"),
		issueAt(time.Now(), "parks", "Broken swing", "Chain snapped"),
	} {
		if _, err := s.Write(ctx, i); err != nil {
			t.Fatal(err)
		}
	}
	labels, err := s.FilterIssueLabels(ctx, "elm", false)
	if expect.NoError(err) {
		expect.Equal(2, len(labels))
	}
	labels, err = s.FilterIssueLabels(ctx, "swing pothole", true)
	if expect.NoError(err) {
		expect.Equal(2, len(labels))
	}
	_, err = s.FilterIssueLabels(ctx, "", true)
	expect.Error(err)
}

func TestReadIssuesByDateRange(t *testing.T) {
	expect := assert.New(t)
	s := NewMockService("dates")
	day := func(d int) time.Time { return time.Date(2024, time.March, d, 12, 0, 0, 0, time.UTC) }
	first := issueAt(day(1), "roads", "Pothole", "Near the school")
	second := issueAt(day(2), "parks", "Litter", "Overflowing bins")
	third := issueAt(day(3), "roads", "Crack", "Across both lanes")
	for _, i := range []Issue{first, second, third} {
		if _, err := s.Write(ctx, i); err != nil {
			t.Fatal(err)
		}
	}
	issues, err := s.ReadIssuesByDateRange(ctx, "2024-03-01", "2024-03-03", 10)
	if expect.NoError(err) && expect.Equal(2, len(issues)) {
		expect.Equal(first.ID, issues[0].ID)
		expect.Equal(second.ID, issues[1].ID)
	}
	issues, err = s.ReadIssuesByDateRange(ctx, "2024-03-02", "2024-03-10", 1)
	if expect.NoError(err) && expect.Equal(1, len(issues)) {
		expect.Equal(second.ID, issues[0].ID)
	}
	_, err = s.ReadIssuesByDateRange(ctx, "2024-03-03", "2024-03-01", 10)
	expect.Error(err)
	_, err = s.ReadIssuesByDateRange(ctx, "March 1", "2024-03-03", 10)
	expect.Error(err)
}
