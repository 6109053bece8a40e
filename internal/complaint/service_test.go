package complaint

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"flightbooker/internal/apperr"
	"flightbooker/internal/auth"
	"flightbooker/internal/auth/authtest"
	"flightbooker/internal/notification"
	"flightbooker/pkg/db/dbtest"
	"flightbooker/pkg/idgen"
	"flightbooker/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) UserExists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepository) Create(ctx context.Context, c Complaint) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*Complaint, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Complaint), args.Error(1)
}

func (m *mockRepository) List(ctx context.Context) ([]Complaint, error) {
	args := m.Called(ctx)
	return args.Get(0).([]Complaint), args.Error(1)
}

func (m *mockRepository) Remove(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepository) Resolve(ctx context.Context, r Resolution) (*Resolved, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Resolved), args.Error(1)
}

func (m *mockRepository) Metrics(ctx context.Context, adminID string, monthAgo, weekAgo time.Time, recent int) (*Metrics, error) {
	args := m.Called(ctx, adminID, monthAgo, weekAgo, recent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Metrics), args.Error(1)
}

type recordingNotifier struct {
	sent []notification.ComplaintResponse
}

func (r *recordingNotifier) ComplaintAnswered(n notification.ComplaintResponse) {
	r.sent = append(r.sent, n)
}

var now = time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

func newService(repo Repository, n ResponseNotifier) *Service {
	return NewService(repo, idgen.NewSequence(42), n, clockwork.NewFakeClockAt(now),
		logger.NewWithWriter("test", &bytes.Buffer{}))
}

func TestCreate(t *testing.T) {
	repo := new(mockRepository)
	repo.On("UserExists", mock.Anything, "u-1").Return(true, nil)
	repo.On("Create", mock.Anything, Complaint{ID: 42, UserID: "u-1", Description: "Lost luggage", DateIssued: now}).Return(nil)

	id, err := newService(repo, &recordingNotifier{}).Create(context.Background(),
		CreateRequest{ComplainantID: "u-1", Description: "Lost luggage"})

	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	repo.AssertExpectations(t)
}

func TestCreate_UnknownComplainant(t *testing.T) {
	repo := new(mockRepository)
	repo.On("UserExists", mock.Anything, "ghost").Return(false, nil)

	_, err := newService(repo, &recordingNotifier{}).Create(context.Background(),
		CreateRequest{ComplainantID: "ghost", Description: "x"})

	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindNotFound, appErr.Kind)
	assert.Equal(t, "complainantId", appErr.Field)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRespond_ResolvesAndEmails(t *testing.T) {
	repo := new(mockRepository)
	repo.On("UserExists", mock.Anything, "admin").Return(true, nil)
	repo.On("Resolve", mock.Anything, Resolution{ComplaintID: 7, AdminID: "admin", Response: "Refunded.", ResolvedAt: now}).
		Return(&Resolved{
			Complainant: Contact{Email: "ana@example.com", FirstName: "Ana", LastName: "Petrova"},
			Description: "Lost luggage",
		}, nil)
	notifier := &recordingNotifier{}

	err := newService(repo, notifier).Respond(context.Background(), 7, RespondRequest{AdminID: "admin", Response: "Refunded."})

	require.NoError(t, err)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, notification.ComplaintResponse{
		ToAddress:   "ana@example.com",
		ToName:      "Ana Petrova",
		ComplaintID: 7,
		Description: "Lost luggage",
		Response:    "Refunded.",
	}, notifier.sent[0])
}

func TestRespond_UnknownComplaint(t *testing.T) {
	repo := new(mockRepository)
	repo.On("UserExists", mock.Anything, "admin").Return(true, nil)
	repo.On("Resolve", mock.Anything, mock.Anything).Return(nil, ErrNotFound)
	notifier := &recordingNotifier{}

	err := newService(repo, notifier).Respond(context.Background(), 9, RespondRequest{AdminID: "admin", Response: "ok"})

	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Contains(t, err.Error(), "complaintId")
	assert.Empty(t, notifier.sent)
}

func TestMetrics_Windows(t *testing.T) {
	repo := new(mockRepository)
	repo.On("UserExists", mock.Anything, "admin").Return(true, nil)
	monthAgo := time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC) // Feb 31 normalizes forward
	weekAgo := time.Date(2024, 3, 24, 12, 0, 0, 0, time.UTC)
	want := &Metrics{UnresolvedComplaints: 3, RecentComplaints: []Complaint{}}
	repo.On("Metrics", mock.Anything, "admin", monthAgo, weekAgo, 5).Return(want, nil)

	got, err := newService(repo, &recordingNotifier{}).Metrics(context.Background(), "admin")

	require.NoError(t, err)
	assert.Same(t, want, got)
	repo.AssertExpectations(t)
}

func TestDelete_NotFound(t *testing.T) {
	repo := new(mockRepository)
	repo.On("Remove", mock.Anything, int64(3)).Return(ErrNotFound)

	err := newService(repo, &recordingNotifier{}).Delete(context.Background(), 3)

	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestRepositoryRemove_NoRows(t *testing.T) {
	exec := new(dbtest.MockSQLExecutor)
	exec.On("ExecContext", mock.Anything, mock.Anything, []any{int64(3)}).Return(dbtest.Rows(0), nil)

	err := NewRepository(exec).Remove(context.Background(), 3)

	assert.ErrorIs(t, err, ErrNotFound)
}

func newRouter(repo Repository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(newService(repo, &recordingNotifier{})).RegisterRoutes(r, authtest.Guard{})
	return r
}

func TestHandler_CreateDefaultsToCaller(t *testing.T) {
	repo := new(mockRepository)
	repo.On("UserExists", mock.Anything, "u-2").Return(true, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(c Complaint) bool { return c.UserID == "u-2" })).Return(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/complaints", strings.NewReader(`{"description": "Seat was broken"}`))
	newRouter(repo).ServeHTTP(w, authtest.As(req, "u-2", auth.RoleUser))

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"complaintId":"42"`)
}

func TestHandler_CreateForSomeoneElse(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/complaints", strings.NewReader(`{"complainantId": "u-1", "description": "x"}`))
	newRouter(new(mockRepository)).ServeHTTP(w, authtest.As(req, "u-2", auth.RoleUser))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandler_AdminOnlyRoutes(t *testing.T) {
	r := newRouter(new(mockRepository))
	for _, target := range []string{"/complaints", "/complaints/1", "/complaints/metrics"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, authtest.As(httptest.NewRequest(http.MethodGet, target, nil), "u-1", auth.RoleUser))
		assert.Equal(t, http.StatusForbidden, w.Code, target)
	}
}

func TestHandler_RespondRequiresText(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/complaints/respond/1", strings.NewReader(`{}`))
	newRouter(new(mockRepository)).ServeHTTP(w, authtest.As(req, "admin", auth.RoleAdmin))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
