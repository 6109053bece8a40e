package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	UseJSONFieldNames()
}

func respond(t *testing.T, fn func(c *gin.Context)) (int, Envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	fn(c)

	var body Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestWrite_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		form       bool
		wantStatus int
		wantField  string
	}{
		{"not found on read", NotFound("routeId", "Route 7 not found."), false, http.StatusNotFound, "routeId"},
		{"not found on write", NotFound("airlineId", "Airline 3 not found."), true, http.StatusBadRequest, "airlineId"},
		{"validation", Validation("frequency", "Invalid frequency."), true, http.StatusBadRequest, "frequency"},
		{"conflict", Conflict("flightSeats", "seat no longer available"), true, http.StatusConflict, "flightSeats"},
		{"state", State("", "Cannot demote an administrator."), true, http.StatusBadRequest, GeneralField},
		{"unauthorized", Unauthorized("Sign in required."), false, http.StatusUnauthorized, GeneralField},
		{"forbidden", Forbidden("Not allowed."), false, http.StatusForbidden, GeneralField},
		{"wrapped", fmt.Errorf("create route: %w", Validation("flights", "bad")), true, http.StatusBadRequest, "flights"},
		{"unknown", errors.New("db down"), false, http.StatusInternalServerError, GeneralField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := respond(t, func(c *gin.Context) {
				if tt.form {
					WriteForm(c, tt.err)
				} else {
					Write(c, tt.err)
				}
			})
			assert.Equal(t, tt.wantStatus, status)
			assert.False(t, body.IsSuccessful)
			assert.Contains(t, body.Errors, tt.wantField)
		})
	}
}

func TestWrite_InternalErrorsAreNotLeaked(t *testing.T) {
	_, body := respond(t, func(c *gin.Context) {
		Write(c, errors.New("pq: password authentication failed"))
	})
	assert.NotContains(t, strings.Join(body.Errors[GeneralField], ""), "password")
}

func TestFields_GroupsMessages(t *testing.T) {
	err := Fields(
		Validation("email", "Email taken."),
		Validation("username", "Username taken."),
		Validation("email", "Email malformed."),
	)

	status, body := respond(t, func(c *gin.Context) { WriteForm(c, err) })
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, []string{"Email taken.", "Email malformed."}, body.Errors["email"])
	assert.Equal(t, []string{"Username taken."}, body.Errors["username"])
	assert.Nil(t, Fields())
}

func TestWrite_EchoesEntries(t *testing.T) {
	err := Validation("email", "You must verify your email before signing in.").
		WithEntries(map[string]any{"userId": "u-1"})

	_, body := respond(t, func(c *gin.Context) { WriteForm(c, err) })
	assert.Equal(t, "u-1", body.Entries["userId"])
}

func TestBindError_UsesJSONFieldNames(t *testing.T) {
	type request struct {
		DepartureAirportCode string `json:"departureAirportCode" binding:"required,len=3"`
		Seats                int    `json:"seats" binding:"min=1"`
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"seats":0}`))
	c.Request.Header.Set("Content-Type", "application/json")

	var req request
	err := c.ShouldBindJSON(&req)
	require.Error(t, err)
	BindError(c, err)

	var body Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body.Errors, "departureAirportCode")
	assert.Contains(t, body.Errors, "seats")
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("wrap: %w", Conflict("flightSeats", "seat no longer available"))
	assert.True(t, Is(err, KindConflict))
	assert.False(t, Is(err, KindNotFound))
	assert.False(t, Is(errors.New("plain"), KindConflict))
}
