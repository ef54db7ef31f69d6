package handlers

import (
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glucolog/internal/services"
)

func TestParseClientTime(t *testing.T) {
	want := time.Date(2025, 1, 31, 8, 30, 0, 0, time.UTC)
	for _, in := range []string{
		"2025-01-31T08:30",
		"2025-01-31T08:30:00",
		"2025-01-31 08:30:00",
		"2025-01-31T08:30:00Z",
		"2025-01-31T14:00:00+05:30",
	} {
		got, err := parseClientTime(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), in)
		assert.Equal(t, time.UTC, got.Location(), in)
	}

	for _, in := range []string{"", "31-01-2025", "noon"} {
		_, err := parseClientTime(in)
		assert.Error(t, err, in)
	}
}

func TestReadingRequestDecoding(t *testing.T) {
	var body readingRequest
	require.NoError(t, json.Unmarshal([]byte(`{"value_ng_ml": 90, "reading_type": "fasting", "created_at": "2025-01-31T08:30", "notes": null}`), &body))
	in := body.input()
	require.NotNil(t, in.CreatedAt)
	assert.Equal(t, time.Date(2025, 1, 31, 8, 30, 0, 0, time.UTC), *in.CreatedAt)
	assert.Nil(t, in.Notes)
	assert.Nil(t, in.StepCount)

	var nullTime readingRequest
	require.NoError(t, json.Unmarshal([]byte(`{"created_at": null}`), &nullTime))
	assert.Nil(t, nullTime.input().CreatedAt)

	var bad readingRequest
	assert.Error(t, json.Unmarshal([]byte(`{"created_at": "tomorrow"}`), &bad))
}

func TestParseListQuery(t *testing.T) {
	q, err := url.ParseQuery("page=2&size=25&reading_type=pp&min_step_count=100&max_sleep_hours=7.5&start=2025-01-01")
	require.NoError(t, err)

	req, err := parseListQuery(q)
	require.NoError(t, err)
	assert.Equal(t, 2, req.Page)
	assert.Equal(t, 25, req.Size)
	assert.Equal(t, "pp", *req.ReadingType)
	assert.Equal(t, 100, *req.StepCount.Min)
	assert.Nil(t, req.StepCount.Max)
	assert.Equal(t, 7.5, *req.SleepHours.Max)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), *req.Start)
	assert.Nil(t, req.End)

	defaults, err := parseListQuery(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, 1, defaults.Page)
	assert.Equal(t, services.DefaultPageSize, defaults.Size)

	_, err = parseListQuery(url.Values{"max_carb_intake_g": {"lots"}})
	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "max_carb_intake_g", verr.Field)
}
