package seatclass

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) List(ctx context.Context) ([]SeatClass, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]SeatClass), args.Error(1)
}

func seeded() []SeatClass {
	return []SeatClass{
		{ID: First, Name: "First"},
		{ID: Business, Name: "Business"},
		{ID: PremiumEconomy, Name: "PremiumEconomy"},
		{ID: Economy, Name: "Economy"},
	}
}

func TestService_Exists(t *testing.T) {
	repo := new(mockRepository)
	repo.On("List", mock.Anything).Return(seeded(), nil)
	svc := NewService(repo)

	ok, err := svc.Exists(context.Background(), Economy)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Exists(context.Background(), 9)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_NamesPropagatesErrors(t *testing.T) {
	repo := new(mockRepository)
	repo.On("List", mock.Anything).Return(nil, errors.New("db down"))

	_, err := NewService(repo).Names(context.Background())
	assert.EqualError(t, err, "db down")
}
