package handlers_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"weddingplanners/api/internal/models"
)

// --- Mocks ---

// MockPlannerService
type MockPlannerService struct {
	mock.Mock
}

func (m *MockPlannerService) ListPlanners(ctx context.Context, limit int) (*models.PlannerListing, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PlannerListing), args.Error(1)
}

// MockInquiryService
type MockInquiryService struct {
	mock.Mock
}

func (m *MockInquiryService) SubmitInquiry(ctx context.Context, in models.InquiryInput) (*models.InquiryReceipt, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InquiryReceipt), args.Error(1)
}

// MockDiagnosticsService
type MockDiagnosticsService struct {
	mock.Mock
}

func (m *MockDiagnosticsService) Check(ctx context.Context) *models.Diagnostics {
	args := m.Called(ctx)
	return args.Get(0).(*models.Diagnostics)
}
