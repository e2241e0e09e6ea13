package services

import (
	"context"

	"taller-backend/models"

	"github.com/stretchr/testify/mock"
)

// MockLogger implements the logger interface for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(args ...interface{}) {
	m.Called(args...)
}

func (m *MockLogger) Debugf(format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) Info(args ...interface{}) {
	m.Called(args...)
}

func (m *MockLogger) Infof(format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(args ...interface{}) {
	m.Called(args...)
}

func (m *MockLogger) Warnf(format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) Error(args ...interface{}) {
	m.Called(args...)
}

func (m *MockLogger) Errorf(format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) Fatal(args ...interface{}) {
	m.Called(args...)
}

func (m *MockLogger) Fatalf(format string, args ...interface{}) {
	m.Called(format, args)
}

func newQuietLogger() *MockLogger {
	l := &MockLogger{}
	l.On("Debug", mock.Anything).Return().Maybe()
	l.On("Debugf", mock.AnythingOfType("string"), mock.Anything).Return().Maybe()
	l.On("Info", mock.Anything).Return().Maybe()
	l.On("Infof", mock.AnythingOfType("string"), mock.Anything).Return().Maybe()
	l.On("Warn", mock.Anything).Return().Maybe()
	l.On("Warnf", mock.AnythingOfType("string"), mock.Anything).Return().Maybe()
	l.On("Error", mock.Anything).Return().Maybe()
	l.On("Errorf", mock.AnythingOfType("string"), mock.Anything).Return().Maybe()
	return l
}

// MockGateway implements ResourceGateway for testing
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateClient(ctx context.Context, client *models.Client) (string, error) {
	args := m.Called(ctx, client)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) DeleteClient(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockGateway) CreateVehicle(ctx context.Context, vehicle *models.Vehicle) (string, error) {
	args := m.Called(ctx, vehicle)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) DeleteVehicle(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockGateway) CreateService(ctx context.Context, service *models.Service) (string, error) {
	args := m.Called(ctx, service)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) GetService(ctx context.Context, id string) (*models.Service, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Service), args.Error(1)
}

func (m *MockGateway) UpdateService(ctx context.Context, id string, edits models.ServiceEdits) error {
	args := m.Called(ctx, id, edits)
	return args.Error(0)
}

func (m *MockGateway) ChangeServiceStatus(ctx context.Context, id string, change models.StatusChange) error {
	args := m.Called(ctx, id, change)
	return args.Error(0)
}

func (m *MockGateway) DeleteService(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockGateway) GetPhotoUploadTarget(ctx context.Context, serviceID, contentType string) (*models.UploadTarget, error) {
	args := m.Called(ctx, serviceID, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UploadTarget), args.Error(1)
}

func (m *MockGateway) TransferImage(ctx context.Context, uploadURL, contentType string, data []byte) error {
	args := m.Called(ctx, uploadURL, contentType, data)
	return args.Error(0)
}

func (m *MockGateway) DiscardUpload(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockGateway) RegisterPhoto(ctx context.Context, serviceID, key string) (string, error) {
	args := m.Called(ctx, serviceID, key)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) ListPhotos(ctx context.Context, serviceID string) ([]*models.Photo, error) {
	args := m.Called(ctx, serviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Photo), args.Error(1)
}

func (m *MockGateway) DeletePhoto(ctx context.Context, serviceID, photoID string) error {
	args := m.Called(ctx, serviceID, photoID)
	return args.Error(0)
}

// MockOrphanRecorder implements OrphanRecorder for testing
type MockOrphanRecorder struct {
	mock.Mock
}

func (m *MockOrphanRecorder) RecordOrphan(ctx context.Context, kind models.ResourceKind, resourceID, reason string) error {
	args := m.Called(ctx, kind, resourceID, reason)
	return args.Error(0)
}
