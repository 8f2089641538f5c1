package app

import (
	"bytes"
	"html/template"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natours/internal/models"
	"natours/internal/storage"
)

func parseTemplates(t *testing.T) *template.Template {
	t.Helper()
	funcs := templateFuncs(storage.NewLocalStore(t.TempDir(), "/img"))
	return template.Must(template.New("").Funcs(funcs).ParseGlob("../../web/templates/*.html"))
}

func sampleTour() models.Tour {
	return models.Tour{
		ID:            1,
		Name:          "The Forest Hiker",
		Slug:          "the-forest-hiker",
		Duration:      5,
		MaxGroupSize:  25,
		Difficulty:    models.DifficultyEasy,
		Price:         397,
		ImageCover:    "tour-1-cover.jpg",
		Images:        []string{"tour-1-1.jpg", "tour-1-2.jpg"},
		StartDates:    []time.Time{time.Date(2026, time.April, 25, 0, 0, 0, 0, time.UTC)},
		StartLocation: &models.Location{Description: "Banff, CAN"},
		Guides:        []models.Guide{{ID: 2, Name: "Lourdes Browning", Photo: "user-2.jpg", Role: "lead-guide"}},
		Reviews:       []models.Review{{Review: "Great!", Rating: 5, User: &models.ReviewAuthor{Name: "Sophie", Photo: "user-7.jpg"}}},
	}
}

func TestTemplateFuncs(t *testing.T) {
	funcs := templateFuncs(storage.NewLocalStore(t.TempDir(), "/img"))

	assert.Equal(t, "/img/tours/a.jpg", funcs["img"].(func(string, string) string)("tours", "a.jpg"))
	assert.Equal(t, "Leo", funcs["first"].(func(string) string)("Leo J Gillespie"))
	assert.Equal(t, "", funcs["first"].(func(string) string)(""))
	assert.Equal(t, "April 2026", funcs["monthYear"].(func(time.Time) string)(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 3, funcs["add"].(func(int, int) int)(1, 2))
}

func TestTemplates_Overview(t *testing.T) {
	var buf bytes.Buffer
	err := parseTemplates(t).ExecuteTemplate(&buf, "overview.html", map[string]any{
		"title": "All Tours",
		"tours": []models.Tour{sampleTour()},
		"user":  &models.User{Name: "Leo Gillespie", Photo: "user-1.jpg"},
		"alert": "Booked!",
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "<title>Natours | All Tours</title>")
	assert.Contains(t, out, `data-alert="Booked!"`)
	assert.Contains(t, out, `href="/tour/the-forest-hiker"`)
	assert.Contains(t, out, "/img/tours/tour-1-cover.jpg")
	assert.Contains(t, out, "April 2026")
	assert.Contains(t, out, "<span>Leo</span>")
}

func TestTemplates_TourBookButtonNeedsUser(t *testing.T) {
	tmpl := parseTemplates(t)

	var anon bytes.Buffer
	require.NoError(t, tmpl.ExecuteTemplate(&anon, "tour.html", map[string]any{"title": "x", "tour": sampleTour()}))
	assert.Contains(t, anon.String(), "Log in to book tour")
	assert.Contains(t, anon.String(), "Lead guide")
	assert.Contains(t, anon.String(), "picture-box__img--2")

	var signedIn bytes.Buffer
	require.NoError(t, tmpl.ExecuteTemplate(&signedIn, "tour.html", map[string]any{
		"title": "x",
		"tour":  sampleTour(),
		"user":  &models.User{ID: 5, Name: "Laura"},
	}))
	assert.Contains(t, signedIn.String(), `data-tour-id="1"`)
}

func TestTemplates_ErrorPage(t *testing.T) {
	var buf bytes.Buffer
	var noUser *models.User
	require.NoError(t, parseTemplates(t).ExecuteTemplate(&buf, "error.html", map[string]any{
		"title": "Something went wrong!",
		"msg":   "No tour found with that name",
		"user":  noUser,
	}))
	assert.Contains(t, buf.String(), "No tour found with that name")
	assert.Contains(t, buf.String(), `href="/login"`)
}
