package route

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"flightbooker/internal/apperr"
	"flightbooker/internal/notification"
	"flightbooker/internal/seatclass"
	"flightbooker/pkg/cache"
	"flightbooker/pkg/logger"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type fakeRepository struct {
	*fakeLookups

	mu          sync.Mutex
	nextGroupID int64
	nextRouteID int64
	created     []NewRoute
	routes      map[int64]Route
	flights     map[int64]Flight
	passengers  map[int64][]Passenger
	candidates  []Candidate
	searchCalls int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		fakeLookups: newFakeLookups(),
		nextGroupID: 1,
		nextRouteID: 1,
		routes:      map[int64]Route{},
		flights:     map[int64]Flight{},
		passengers:  map[int64][]Passenger{},
	}
}

func (f *fakeRepository) CreateRoutes(_ context.Context, routes []NewRoute) (*CreateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	res := &CreateResult{RouteGroupID: f.nextGroupID}
	f.nextGroupID++
	for _, nr := range routes {
		id := f.nextRouteID
		f.nextRouteID++
		f.routes[id] = Route{
			ID:                   id,
			AirlineID:            nr.AirlineID,
			DepartureAirportCode: nr.DepartureAirportCode,
			ArrivalAirportCode:   nr.ArrivalAirportCode,
			DepartureTime:        nr.DepartureTime,
			ArrivalTime:          nr.ArrivalTime,
			RouteGroupID:         res.RouteGroupID,
		}
		res.RouteIDs = append(res.RouteIDs, id)
	}
	f.created = append(f.created, routes...)
	return res, nil
}

func (f *fakeRepository) GetRoute(_ context.Context, id int64) (*Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rt, ok := f.routes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rt, nil
}

func (f *fakeRepository) ListRoutes(_ context.Context, airlineID *int64) ([]Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []Route{}
	for _, rt := range f.routes {
		if airlineID == nil || rt.AirlineID == *airlineID {
			out = append(out, rt)
		}
	}
	return out, nil
}

func (f *fakeRepository) BookingData(ctx context.Context, id int64) (*BookingData, error) {
	rt, err := f.GetRoute(ctx, id)
	if err != nil {
		return nil, err
	}
	return &BookingData{Route: *rt}, nil
}

func (f *fakeRepository) ListFlights(_ context.Context, airlineID *int64) ([]Flight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []Flight{}
	for _, fl := range f.flights {
		if airlineID == nil || fl.AirlineID == *airlineID {
			out = append(out, fl)
		}
	}
	return out, nil
}

func (f *fakeRepository) DeleteRoute(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.routes[id]; !ok {
		return ErrNotFound
	}
	delete(f.routes, id)
	return nil
}

func (f *fakeRepository) DeleteRouteGroup(_ context.Context, groupID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	found := false
	for id, rt := range f.routes {
		if rt.RouteGroupID == groupID {
			delete(f.routes, id)
			found = true
		}
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

func (f *fakeRepository) SetFlightDelay(_ context.Context, flightID int64, minutes int) (*Flight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fl, ok := f.flights[flightID]
	if !ok {
		return nil, ErrFlightNotFound
	}
	fl.DelayMinutes = &minutes
	f.flights[flightID] = fl
	return &fl, nil
}

func (f *fakeRepository) BookedPassengers(_ context.Context, flightID int64) ([]Passenger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.passengers[flightID], nil
}

func (f *fakeRepository) SearchCandidates(_ context.Context, depCode string, from, to time.Time) ([]Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	var out []Candidate
	for _, c := range f.candidates {
		if c.DepartureAirportCode == depCode && !c.DepartureTime.Before(from) && c.DepartureTime.Before(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeRepository) searches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchCalls
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification.FlightDelay
}

func (r *recordingNotifier) FlightDelayed(n notification.FlightDelay) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

type ServiceSuite struct {
	suite.Suite
	repo     *fakeRepository
	cache    *cache.MemoryCache
	notifier *recordingNotifier
	svc      *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	l := logger.NewWithWriter("test", &bytes.Buffer{})
	clock := clockwork.NewFakeClockAt(time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC))
	s.repo = newFakeRepository()
	s.cache = cache.NewMemoryCache(clock)
	s.notifier = &recordingNotifier{}
	s.svc = NewService(s.repo, NewSearchCache(s.cache, 5, l), s.notifier, clock, sofia, l)
}

func (s *ServiceSuite) version() string {
	v, err := s.cache.Get(context.Background(), versionKey)
	if err != nil {
		return ""
	}
	return v
}

func (s *ServiceSuite) requireField(err error, kind apperr.Kind, field string) *apperr.Error {
	appErr, ok := apperr.As(err)
	s.Require().True(ok, "expected an application error, got %v", err)
	s.Equal(kind, appErr.Kind)
	s.Equal(field, appErr.Field)
	return appErr
}

func (s *ServiceSuite) TestCreateRoute_WeeklyShareOneGroup() {
	req := directRequest()
	req.Repeating = true
	req.Frequency = Weekly

	res, err := s.svc.CreateRoute(context.Background(), req)
	s.Require().NoError(err)

	s.Len(res.RouteIDs, 53)
	s.Len(s.repo.created, 53)
	for _, id := range res.RouteIDs {
		s.Equal(res.RouteGroupID, s.repo.routes[id].RouteGroupID)
	}
	last := s.repo.created[52]
	s.Equal(time.Date(2025, 4, 9, 8, 0, 0, 0, time.UTC), last.DepartureTime.UTC())
	s.Len(last.Prices, 4)
	s.Equal("1", s.version())
}

func (s *ServiceSuite) TestCreateRoute_MonthlyFollowsLocalCalendar() {
	req := directRequest()
	req.Repeating = true
	req.Frequency = Monthly
	// 10:00 in Sofia, winter time.
	req.Flights[0].DepartureTime = time.Date(2024, 1, 31, 8, 0, 0, 0, time.UTC)
	req.Flights[0].ArrivalTime = req.Flights[0].DepartureTime.Add(90 * time.Minute)

	_, err := s.svc.CreateRoute(context.Background(), req)
	s.Require().NoError(err)

	s.Require().Len(s.repo.created, 12)
	s.Equal(time.Date(2024, 2, 29, 10, 0, 0, 0, sofia), s.repo.created[1].DepartureTime.In(sofia))
	// Summer time starts on the last Sunday of March; the wall clock stays at 10:00.
	s.Equal(time.Date(2024, 3, 31, 10, 0, 0, 0, sofia), s.repo.created[2].DepartureTime.In(sofia))
	s.Equal(time.Date(2024, 3, 31, 11, 30, 0, 0, sofia), s.repo.created[2].ArrivalTime.In(sofia))
}

func (s *ServiceSuite) TestCreateRoute_InvalidRequestWritesNothing() {
	req := directRequest()
	req.Flights[0].AirplaneID = 404

	_, err := s.svc.CreateRoute(context.Background(), req)

	s.requireField(err, apperr.KindNotFound, "airplaneId")
	s.Empty(s.repo.created)
	s.Equal("", s.version())
}

func (s *ServiceSuite) searchRequest() SearchRequest {
	return SearchRequest{
		DepartureAirportCode: "sof",
		ArrivalAirportCode:   "ist",
		DepartureDate:        "2024-05-01",
		Seats:                2,
		CabinClass:           classPtr(seatclass.Economy),
	}
}

func (s *ServiceSuite) TestSearch_CachesUntilInventoryChanges() {
	s.repo.candidates = []Candidate{sofIst(map[int]int{seatclass.Economy: 180})}
	s.repo.routes[1] = Route{ID: 1}
	ctx := context.Background()

	first, err := s.svc.Search(ctx, s.searchRequest())
	s.Require().NoError(err)
	s.False(first.Metadata.CacheHit)
	s.Require().Len(first.Results, 1)
	s.Equal(180, first.Results[0].AvailableSeats)
	s.True(first.Results[0].PricePerSeat.Equal(decimal.NewFromInt(100)))

	s.Eventually(func() bool {
		resp, err := s.svc.Search(ctx, s.searchRequest())
		return err == nil && resp.Metadata.CacheHit
	}, time.Second, 10*time.Millisecond)
	calls := s.repo.searches()

	s.Require().NoError(s.svc.DeleteRoute(ctx, 1))

	after, err := s.svc.Search(ctx, s.searchRequest())
	s.Require().NoError(err)
	s.False(after.Metadata.CacheHit)
	s.NotEqual(first.Metadata.CacheKey, after.Metadata.CacheKey)
	s.Equal(calls+1, s.repo.searches())
}

func (s *ServiceSuite) TestSearch_SortsAfterTheCache() {
	cheap := sofIst(map[int]int{seatclass.Economy: 10})
	dear := sofIst(map[int]int{seatclass.Economy: 10})
	dear.RouteID = 2
	dear.Prices[seatclass.Economy] = decimal.NewFromInt(250)
	s.repo.candidates = []Candidate{dear, cheap}
	ctx := context.Background()

	req := s.searchRequest()
	req.SortBy = "price"
	req.SortOrder = "asc"
	asc, err := s.svc.Search(ctx, req)
	s.Require().NoError(err)
	s.Equal([]int64{1, 2}, routeIDs(asc.Results))

	req.SortOrder = "desc"
	s.Eventually(func() bool {
		resp, err := s.svc.Search(ctx, req)
		return err == nil && resp.Metadata.CacheHit
	}, time.Second, 10*time.Millisecond)

	desc, err := s.svc.Search(ctx, req)
	s.Require().NoError(err)
	s.True(desc.Metadata.CacheHit)
	s.Equal([]int64{2, 1}, routeIDs(desc.Results))
}

func (s *ServiceSuite) TestSearch_ReportsEveryInvalidField() {
	req := s.searchRequest()
	req.DepartureDate = "01/05/2024"
	req.IsRoundTrip = true

	_, err := s.svc.Search(context.Background(), req)

	appErr := s.requireField(err, apperr.KindValidation, "departureDate")
	s.Require().Len(appErr.Others, 1)
	s.Equal("returnDate", appErr.Others[0].Field)
	s.Zero(s.repo.searches())
}

func (s *ServiceSuite) TestSearch_UnknownCabinClass() {
	req := s.searchRequest()
	req.CabinClass = classPtr(9)

	_, err := s.svc.Search(context.Background(), req)

	s.requireField(err, apperr.KindValidation, "cabinClass")
}

func (s *ServiceSuite) TestSearch_ReturnBeforeDeparture() {
	req := s.searchRequest()
	req.IsRoundTrip = true
	req.ReturnDate = "2024-04-30"

	_, err := s.svc.Search(context.Background(), req)

	s.requireField(err, apperr.KindValidation, "returnDate")
}

func (s *ServiceSuite) TestUpdateFlightDelay_NotifiesEveryPassenger() {
	dep := time.Date(2024, 5, 1, 5, 0, 0, 0, time.UTC)
	s.repo.flights[5] = Flight{
		ID:                   5,
		DepartureAirportCode: "SOF",
		ArrivalAirportCode:   "IST",
		DepartureTime:        dep,
		ArrivalTime:          dep.Add(90 * time.Minute),
	}
	s.repo.passengers[5] = []Passenger{
		{UserID: "u-1", Email: "ana@example.com", FirstName: "Ana", LastName: "Petrova"},
		{UserID: "u-2", Email: "ivan@example.com", FirstName: "Ivan", LastName: "Ivanov"},
	}

	f, err := s.svc.UpdateFlightDelay(context.Background(), 5, 45)
	s.Require().NoError(err)

	s.Equal(45, *f.DelayMinutes)
	s.Require().Len(s.notifier.sent, 2)
	for _, n := range s.notifier.sent {
		s.Equal(int64(5), n.FlightID)
		s.Equal(45, n.DelayMinutes)
		s.True(dep.Add(45 * time.Minute).Equal(n.NewDepartureTime))
		s.Equal(sofia, n.NewDepartureTime.Location())
	}
	s.Equal("Ana Petrova", s.notifier.sent[0].ToName)
	s.Equal("1", s.version())
}

func (s *ServiceSuite) TestUpdateFlightDelay_UnknownFlight() {
	_, err := s.svc.UpdateFlightDelay(context.Background(), 99, 10)
	s.requireField(err, apperr.KindNotFound, "flightId")

	s.Empty(s.notifier.sent)
}

func (s *ServiceSuite) TestUpdateFlightDelay_NegativeMovesDepartureEarlier() {
	dep := time.Date(2024, 5, 1, 5, 0, 0, 0, time.UTC)
	s.repo.flights[5] = Flight{ID: 5, DepartureTime: dep, ArrivalTime: dep.Add(time.Hour)}
	s.repo.passengers[5] = []Passenger{{UserID: "u-1", Email: "ana@example.com", FirstName: "Ana", LastName: "Petrova"}}

	f, err := s.svc.UpdateFlightDelay(context.Background(), 5, -15)
	s.Require().NoError(err)

	s.Equal(-15, *f.DelayMinutes)
	s.True(dep.Add(-15 * time.Minute).Equal(f.EffectiveDeparture()))
	s.Require().Len(s.notifier.sent, 1)
	s.Equal(-15, s.notifier.sent[0].DelayMinutes)
	s.True(dep.Add(-15 * time.Minute).Equal(s.notifier.sent[0].NewDepartureTime))
}

func (s *ServiceSuite) TestListForAirline_UnknownAirline() {
	_, err := s.svc.ListForAirline(context.Background(), 9)
	s.requireField(err, apperr.KindNotFound, "airlineId")

	_, err = s.svc.ListFlightsForAirline(context.Background(), 9)
	s.requireField(err, apperr.KindNotFound, "airlineId")

	routes, err := s.svc.ListForAirline(context.Background(), 1)
	s.Require().NoError(err)
	s.Empty(routes)
}

func (s *ServiceSuite) TestDeleteRouteGroup() {
	req := directRequest()
	req.Repeating = true
	req.Frequency = Yearly
	res, err := s.svc.CreateRoute(context.Background(), req)
	s.Require().NoError(err)

	s.NoError(s.svc.DeleteRouteGroup(context.Background(), res.RouteGroupID))
	s.Empty(s.repo.routes)
	s.Equal("2", s.version())

	err = s.svc.DeleteRouteGroup(context.Background(), res.RouteGroupID)
	s.requireField(err, apperr.KindNotFound, "routeGroupId")
}

func (s *ServiceSuite) TestGet_NotFound() {
	_, err := s.svc.Get(context.Background(), 12)
	s.requireField(err, apperr.KindNotFound, "routeId")

	_, err = s.svc.BookingData(context.Background(), 12)
	s.requireField(err, apperr.KindNotFound, "routeId")
}
