package services

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"

	"weddingplanners/api/internal/models"
)

// MockStore is a mock implementation of db.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) FindAll(ctx context.Context, collection string, limit int) ([]bson.M, error) {
	args := m.Called(ctx, collection, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]bson.M), args.Error(1)
}

func (m *MockStore) InsertOne(ctx context.Context, collection string, doc interface{}) (string, error) {
	args := m.Called(ctx, collection, doc)
	return args.String(0), args.Error(1)
}

func (m *MockStore) ListCollectionNames(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStore) Name() string {
	args := m.Called()
	return args.String(0)
}

// MockNotifier is a mock implementation of InquiryNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyInquiry(ctx context.Context, id string, inquiry *models.Inquiry) error {
	args := m.Called(ctx, id, inquiry)
	return args.Error(0)
}

// MockRecorder is a mock implementation of metrics.Recorder
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) ObservePlannersServed(source string, count int) {
	m.Called(source, count)
}

func (m *MockRecorder) IncPlannerDecodeFailure() {
	m.Called()
}

func (m *MockRecorder) IncInquiry(outcome string) {
	m.Called(outcome)
}

func (m *MockRecorder) ObserveRequest(method, route string, status int) {
	m.Called(method, route, status)
}
