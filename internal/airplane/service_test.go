package airplane

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"flightbooker/internal/apperr"
	"flightbooker/internal/auth"
	"flightbooker/internal/auth/authtest"
	"flightbooker/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Create(ctx context.Context, a Airplane, seats []Seat) (int64, error) {
	args := m.Called(ctx, a, seats)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepository) List(ctx context.Context) ([]Airplane, error) {
	args := m.Called(ctx)
	return args.Get(0).([]Airplane), args.Error(1)
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*Airplane, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Airplane), args.Error(1)
}

func (m *mockRepository) UpdateDetails(ctx context.Context, id int64, brand, model string) error {
	return m.Called(ctx, id, brand, model).Error(0)
}

func (m *mockRepository) ReplaceLayout(ctx context.Context, a Airplane, seats []Seat) error {
	return m.Called(ctx, a, seats).Error(0)
}

func (m *mockRepository) InUse(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepository) Seats(ctx context.Context, id int64) ([]Seat, error) {
	args := m.Called(ctx, id)
	return args.Get(0).([]Seat), args.Error(1)
}

func (m *mockRepository) UpdateSeatClasses(ctx context.Context, id int64, rowClass []int) error {
	return m.Called(ctx, id, rowClass).Error(0)
}

type staticClasses map[int]string

func (s staticClasses) Names(context.Context) (map[int]string, error) {
	return s, nil
}

func newService(repo Repository) *Service {
	return NewService(repo, staticClasses(knownClasses), logger.NewWithWriter("test", &bytes.Buffer{}))
}

func TestCreate_PersistsFullLayout(t *testing.T) {
	repo := new(mockRepository)
	repo.On("Create", mock.Anything, Airplane{Brand: "Airbus", Model: "A320", NrRows: 30, NrColumns: 6},
		mock.MatchedBy(func(seats []Seat) bool { return len(seats) == 180 }),
	).Return(int64(7), nil)

	id, err := newService(repo).Create(context.Background(), CreateRequest{
		Brand: "Airbus", Model: "A320", NrRows: 30, NrColumns: 6,
		SeatConfiguration: []RowSeatClassMapping{{Rows: rows(1, 30), SeatClass: 4}},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	repo.AssertExpectations(t)
}

func TestUpdate_BrandOnlyWhileInUse(t *testing.T) {
	repo := new(mockRepository)
	repo.On("Get", mock.Anything, int64(3)).Return(&Airplane{ID: 3, NrRows: 30, NrColumns: 6}, nil)
	repo.On("UpdateDetails", mock.Anything, int64(3), "Boeing", "737").Return(nil)

	err := newService(repo).Update(context.Background(), 3, UpdateRequest{Brand: "Boeing", Model: "737", NrRows: 30, NrColumns: 6})

	require.NoError(t, err)
	repo.AssertNotCalled(t, "InUse", mock.Anything, mock.Anything)
}

func TestUpdate_LayoutChangeRejectedWhenInUse(t *testing.T) {
	repo := new(mockRepository)
	repo.On("Get", mock.Anything, int64(3)).Return(&Airplane{ID: 3, NrRows: 30, NrColumns: 6}, nil)
	repo.On("InUse", mock.Anything, int64(3)).Return(true, nil)

	err := newService(repo).Update(context.Background(), 3, UpdateRequest{
		Brand: "Boeing", Model: "737", NrRows: 32, NrColumns: 6,
		SeatConfiguration: []RowSeatClassMapping{{Rows: rows(1, 32), SeatClass: 4}},
	})

	assert.True(t, apperr.Is(err, apperr.KindState))
	repo.AssertNotCalled(t, "ReplaceLayout", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdate_UnchangedLayoutWhileInUse(t *testing.T) {
	repo := new(mockRepository)
	repo.On("Get", mock.Anything, int64(5)).Return(&Airplane{ID: 5, Brand: "Airbus", Model: "A220", NrRows: 2, NrColumns: 2}, nil)
	repo.On("Seats", mock.Anything, int64(5)).Return([]Seat{
		{ID: 1, AirplaneID: 5, Row: 1, Column: "A", SeatClassID: 4},
		{ID: 2, AirplaneID: 5, Row: 1, Column: "B", SeatClassID: 4},
		{ID: 3, AirplaneID: 5, Row: 2, Column: "A", SeatClassID: 4},
		{ID: 4, AirplaneID: 5, Row: 2, Column: "B", SeatClassID: 4},
	}, nil)
	repo.On("InUse", mock.Anything, int64(5)).Return(true, nil)
	repo.On("UpdateDetails", mock.Anything, int64(5), "Airbus", "A220-300").Return(nil)

	for _, mappings := range [][]RowSeatClassMapping{
		{{Rows: []int{1, 2}, SeatClass: 4}},
		{{Rows: []int{2}, SeatClass: 4}, {Rows: []int{1}, SeatClass: 4}},
	} {
		err := newService(repo).Update(context.Background(), 5, UpdateRequest{
			Brand: "Airbus", Model: "A220-300", NrRows: 2, NrColumns: 2,
			SeatConfiguration: mappings,
		})
		require.NoError(t, err)
	}

	repo.AssertNumberOfCalls(t, "UpdateDetails", 2)
	repo.AssertNotCalled(t, "InUse", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "ReplaceLayout", mock.Anything, mock.Anything, mock.Anything)

	err := newService(repo).Update(context.Background(), 5, UpdateRequest{
		Brand: "Airbus", Model: "A220-300", NrRows: 2, NrColumns: 2,
		SeatConfiguration: []RowSeatClassMapping{{Rows: []int{1}, SeatClass: 2}, {Rows: []int{2}, SeatClass: 4}},
	})
	assert.True(t, apperr.Is(err, apperr.KindState))
	repo.AssertNotCalled(t, "ReplaceLayout", mock.Anything, mock.Anything, mock.Anything)
}

func TestDelete_InUse(t *testing.T) {
	repo := new(mockRepository)
	repo.On("InUse", mock.Anything, int64(3)).Return(true, nil)

	err := newService(repo).Delete(context.Background(), 3)
	assert.True(t, apperr.Is(err, apperr.KindState))
}

func TestUpdateSeatConfiguration_PassesRowClasses(t *testing.T) {
	repo := new(mockRepository)
	repo.On("Get", mock.Anything, int64(3)).Return(&Airplane{ID: 3, NrRows: 3, NrColumns: 2}, nil)
	repo.On("UpdateSeatClasses", mock.Anything, int64(3), []int{0, 1, 4, 4}).Return(nil)

	err := newService(repo).UpdateSeatConfiguration(context.Background(), 3, []RowSeatClassMapping{
		{Rows: []int{1}, SeatClass: 1},
		{Rows: []int{2, 3}, SeatClass: 4},
	})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestHandler_GetMissingAirplane(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := new(mockRepository)
	repo.On("Get", mock.Anything, int64(42)).Return(nil, ErrNotFound)

	r := gin.New()
	NewHandler(newService(repo)).RegisterRoutes(r, authtest.Guard{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authtest.As(httptest.NewRequest(http.MethodGet, "/airplanes/42", nil), "admin", auth.RoleAdmin))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, authtest.As(httptest.NewRequest(http.MethodGet, "/airplanes/42", nil), "u", auth.RoleUser))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandler_CreateBindingErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	apperr.UseJSONFieldNames()
	r := gin.New()
	NewHandler(newService(new(mockRepository))).RegisterRoutes(r, authtest.Guard{})

	req := authtest.As(httptest.NewRequest(http.MethodPost, "/airplanes",
		strings.NewReader(`{"brand":"Airbus","model":"A320","nrRows":300,"nrColumns":6,"seatConfiguration":[{"rows":[1],"seatClass":4}]}`)),
		"admin", auth.RoleAdmin)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "nrRows")
}
