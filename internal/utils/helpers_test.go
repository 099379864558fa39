package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/senyabanana/bid-engine/internal/models"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestParseLimitOffset(t *testing.T) {
	limit, offset, err := ParseLimitOffset("", "")
	assert.NoError(t, err)
	check.Equal(t, 5, limit)
	check.Equal(t, 0, offset)

	limit, offset, err = ParseLimitOffset("50", "10")
	assert.NoError(t, err)
	check.Equal(t, 50, limit)
	check.Equal(t, 10, offset)

	for _, tc := range [][2]string{{"0", ""}, {"51", ""}, {"x", ""}, {"", "-1"}, {"", "y"}} {
		_, _, err = ParseLimitOffset(tc[0], tc[1])
		check.NotNil(t, err)
	}
}

func TestParseTimeParam(t *testing.T) {
	got, err := ParseTimeParam("from", "")
	assert.NoError(t, err)
	check.True(t, got == nil)

	got, err = ParseTimeParam("from", "2024-05-01T10:00:00+02:00")
	assert.NoError(t, err)
	assert.NotNil(t, got)
	check.Equal(t, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), *got)

	got, err = ParseTimeParam("to", "2024-05-02")
	assert.NoError(t, err)
	assert.NotNil(t, got)
	check.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), *got)

	_, err = ParseTimeParam("to", "yesterday")
	check.NotNil(t, err)
}

func TestSendErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	SendErrorResponse(rec, http.StatusConflict, models.KindConflict, "bid was resolved by a concurrent accept")

	check.Equal(t, http.StatusConflict, rec.Code)
	check.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body models.ErrorResponse
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	check.Equal(t, models.KindConflict, body.Kind)
	check.Equal(t, "bid was resolved by a concurrent accept", body.Message)
}
