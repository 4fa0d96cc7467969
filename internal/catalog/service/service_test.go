package catalog_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	catalog "ms-reservation/internal/catalog/service"
	"ms-reservation/internal/models"
)

type MockCatalogDBLayer struct {
	mock.Mock
}

func (m *MockCatalogDBLayer) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockCatalogDBLayer) CreateEvent(ctx context.Context, event *models.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockCatalogDBLayer) UpsertEvent(ctx context.Context, event *models.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockCatalogDBLayer) ListEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Event), args.Error(1)
}

func validEvent() *models.Event {
	return &models.Event{
		Name:        "Summer Rock Festival",
		ScheduledAt: time.Date(2030, 7, 15, 18, 0, 0, 0, time.UTC),
		MinPrice:    50,
		Capacity:    1000,
	}
}

func TestGetEvent(t *testing.T) {
	mockDB := new(MockCatalogDBLayer)
	svc := catalog.NewCatalogService(mockDB)
	ctx := context.Background()

	mockDB.On("GetEvent", ctx, int64(1)).Return(&models.Event{ID: 1, Name: "Summer Rock Festival"}, nil)
	mockDB.On("GetEvent", ctx, int64(42)).Return(nil, sql.ErrNoRows)
	mockDB.On("GetEvent", ctx, int64(99)).Return(nil, errors.New("connection reset"))

	event, err := svc.GetEvent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Summer Rock Festival", event.Name)

	_, err = svc.GetEvent(ctx, 42)
	assert.ErrorIs(t, err, models.ErrEventNotFound)

	_, err = svc.GetEvent(ctx, 99)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrEventNotFound)

	mockDB.AssertExpectations(t)
}

func TestCreateEvent_Validation(t *testing.T) {
	cases := []struct {
		name   string
		modify func(e *models.Event)
	}{
		{"blank name", func(e *models.Event) { e.Name = "  " }},
		{"no schedule", func(e *models.Event) { e.ScheduledAt = time.Time{} }},
		{"zero capacity", func(e *models.Event) { e.Capacity = 0 }},
		{"negative price", func(e *models.Event) { e.MinPrice = -1 }},
		{"unknown tier", func(e *models.Event) { e.TierCapacities = map[models.Tier]int{"BALCONY": 10} }},
		{"tier over capacity", func(e *models.Event) { e.TierCapacities = map[models.Tier]int{models.TierVIP: 1001} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mockDB := new(MockCatalogDBLayer)
			svc := catalog.NewCatalogService(mockDB)

			event := validEvent()
			tc.modify(event)

			err := svc.CreateEvent(context.Background(), event)
			assert.ErrorIs(t, err, models.ErrInvalidArgument)
			mockDB.AssertNotCalled(t, "CreateEvent", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateEvent_Success(t *testing.T) {
	mockDB := new(MockCatalogDBLayer)
	svc := catalog.NewCatalogService(mockDB)

	event := validEvent()
	event.TierCapacities = map[models.Tier]int{models.TierBackstage: 20}
	mockDB.On("CreateEvent", mock.Anything, event).Return(nil)

	require.NoError(t, svc.CreateEvent(context.Background(), event))
	mockDB.AssertExpectations(t)
}

func TestUpsertEvent_RequiresID(t *testing.T) {
	mockDB := new(MockCatalogDBLayer)
	svc := catalog.NewCatalogService(mockDB)

	err := svc.UpsertEvent(context.Background(), validEvent())
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	event := validEvent()
	event.ID = 5
	mockDB.On("UpsertEvent", mock.Anything, event).Return(nil)
	require.NoError(t, svc.UpsertEvent(context.Background(), event))
	mockDB.AssertExpectations(t)
}

func TestListEvents_ClampsLimit(t *testing.T) {
	mockDB := new(MockCatalogDBLayer)
	svc := catalog.NewCatalogService(mockDB)
	ctx := context.Background()

	mockDB.On("ListEvents", ctx, mock.MatchedBy(func(f models.EventFilter) bool { return f.Limit == 10 })).Return([]models.Event{}, nil).Once()
	mockDB.On("ListEvents", ctx, mock.MatchedBy(func(f models.EventFilter) bool { return f.Limit == 100 })).Return([]models.Event{}, nil).Once()

	_, err := svc.ListEvents(ctx, models.EventFilter{})
	require.NoError(t, err)
	_, err = svc.ListEvents(ctx, models.EventFilter{Limit: 5000})
	require.NoError(t, err)

	_, err = svc.ListEvents(ctx, models.EventFilter{Skip: -1})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	mockDB.AssertExpectations(t)
}
