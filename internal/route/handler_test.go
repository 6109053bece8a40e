package route

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"flightbooker/internal/apperr"
	"flightbooker/internal/auth"
	"flightbooker/internal/auth/authtest"
	"flightbooker/internal/seatclass"
	"flightbooker/pkg/cache"
	"flightbooker/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(repo *fakeRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	apperr.UseJSONFieldNames()

	l := logger.NewWithWriter("test", &bytes.Buffer{})
	clock := clockwork.NewFakeClock()
	svc := NewService(repo, NewSearchCache(cache.NewMemoryCache(clock), 5, l), &recordingNotifier{}, clock, sofia, l)

	r := gin.New()
	NewHandler(svc).RegisterRoutes(r, authtest.Guard{})
	return r
}

const createBody = `{
	"airlineId": 1,
	"isTransit": false,
	"repeating": false,
	"flights": [{
		"airplaneId": 10,
		"departureAirportCode": "SOF",
		"arrivalAirportCode": "IST",
		"departureTime": "2024-05-01T08:00:00+03:00",
		"arrivalTime": "2024-05-01T09:30:00+03:00"
	}],
	"prices": {"4": 100, "2": "300.50"}
}`

func TestHandler_CreateRequiresOperator(t *testing.T) {
	r := newTestRouter(newFakeRepository())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/routes", strings.NewReader(createBody)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, authtest.As(httptest.NewRequest(http.MethodPost, "/routes", strings.NewReader(createBody)), "u-1", auth.RoleUser))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandler_Create(t *testing.T) {
	repo := newFakeRepository()
	r := newTestRouter(repo)

	w := httptest.NewRecorder()
	req := authtest.As(httptest.NewRequest(http.MethodPost, "/routes", strings.NewReader(createBody)), "op-1", auth.RoleAirlineOperator)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var body struct {
		IsSuccessful bool `json:"isSuccessful"`
		Entries      struct {
			RouteGroupID int64   `json:"routeGroupId"`
			RouteIDs     []int64 `json:"routeIds"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.IsSuccessful)
	assert.Equal(t, []int64{1}, body.Entries.RouteIDs)

	require.Len(t, repo.created, 1)
	assert.Equal(t, "300.5", repo.created[0].Prices[seatclass.Business].String())
	assert.True(t, repo.created[0].Prices[seatclass.First].IsZero())
	assert.Equal(t, time.Date(2024, 5, 1, 5, 0, 0, 0, time.UTC), repo.created[0].DepartureTime.UTC())
}

func TestHandler_CreateUnknownAirlineIsFieldError(t *testing.T) {
	r := newTestRouter(newFakeRepository())
	body := strings.Replace(createBody, `"airlineId": 1`, `"airlineId": 9`, 1)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authtest.As(httptest.NewRequest(http.MethodPost, "/routes", strings.NewReader(body)), "admin", auth.RoleAdmin))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var env apperr.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.False(t, env.IsSuccessful)
	assert.Equal(t, []string{"Airline with id 9 not found."}, env.Errors["airlineId"])
}

func TestHandler_SearchIsPublic(t *testing.T) {
	repo := newFakeRepository()
	repo.candidates = []Candidate{sofIst(map[int]int{seatclass.Economy: 3})}
	r := newTestRouter(repo)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/routes/search?departureAirportCode=SOF&arrivalAirportCode=IST&departureDate=2024-05-01", nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 3, resp.Results[0].AvailableSeats)
	assert.Equal(t, 1, resp.Metadata.TotalResults)
}

func TestHandler_SearchBindingErrorsUseQueryNames(t *testing.T) {
	r := newTestRouter(newFakeRepository())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/routes/search?departureAirportCode=SOF&arrivalAirportCode=IST&sortOrder=up", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var env apperr.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Contains(t, env.Errors, "departureDate")
	assert.Contains(t, env.Errors, "sortOrder")
}

func TestHandler_UpdateDelay(t *testing.T) {
	repo := newFakeRepository()
	dep := time.Date(2024, 5, 1, 5, 0, 0, 0, time.UTC)
	repo.flights[5] = Flight{ID: 5, DepartureTime: dep, ArrivalTime: dep.Add(time.Hour)}
	r := newTestRouter(repo)

	w := httptest.NewRecorder()
	req := authtest.As(httptest.NewRequest(http.MethodPost, "/flights/5/delay", strings.NewReader(`{"delay": 30}`)), "op-1", auth.RoleAirlineOperator)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 30, *repo.flights[5].DelayMinutes)

	w = httptest.NewRecorder()
	req = authtest.As(httptest.NewRequest(http.MethodPost, "/flights/5/delay", strings.NewReader(`{"delay": -10}`)), "op-1", auth.RoleAirlineOperator)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, -10, *repo.flights[5].DelayMinutes)

	w = httptest.NewRecorder()
	req = authtest.As(httptest.NewRequest(http.MethodPost, "/flights/5/delay", strings.NewReader(`{}`)), "op-1", auth.RoleAirlineOperator)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	req = authtest.As(httptest.NewRequest(http.MethodPost, "/flights/6/delay", strings.NewReader(`{"delay": 30}`)), "op-1", auth.RoleAirlineOperator)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_ListFlightsForUnknownAirline(t *testing.T) {
	r := newTestRouter(newFakeRepository())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authtest.As(httptest.NewRequest(http.MethodGet, "/flights/airline/9", nil), "op-1", auth.RoleAirlineOperator))

	assert.Equal(t, http.StatusNotFound, w.Code)
	var env apperr.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, []string{"Airline with id 9 not found."}, env.Errors["airlineId"])
}

func TestHandler_DeleteMissingRouteIs404(t *testing.T) {
	r := newTestRouter(newFakeRepository())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authtest.As(httptest.NewRequest(http.MethodDelete, "/routes/3", nil), "admin", auth.RoleAdmin))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
