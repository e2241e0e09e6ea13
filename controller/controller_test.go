package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"taller-backend/billing"
	"taller-backend/middelware"
	"taller-backend/models"
	"taller-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(args ...interface{})                 {}
func (m *MockLogger) Debugf(format string, args ...interface{}) {}
func (m *MockLogger) Info(args ...interface{})                  {}
func (m *MockLogger) Infof(format string, args ...interface{})  {}
func (m *MockLogger) Warn(args ...interface{})                  {}
func (m *MockLogger) Warnf(format string, args ...interface{})  {}
func (m *MockLogger) Error(args ...interface{})                 {}
func (m *MockLogger) Errorf(format string, args ...interface{}) {}
func (m *MockLogger) Fatal(args ...interface{})                 {}
func (m *MockLogger) Fatalf(format string, args ...interface{}) {}

type MockIntakeService struct {
	mock.Mock
}

func (m *MockIntakeService) Commit(ctx context.Context, draft models.IntakeDraft, actor models.Actor) (string, error) {
	args := m.Called(ctx, draft, actor)
	return args.String(0), args.Error(1)
}

type MockLifecycleService struct {
	mock.Mock
}

func (m *MockLifecycleService) GetService(ctx context.Context, id string, actor models.Actor) (*models.Service, error) {
	args := m.Called(ctx, id, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Service), args.Error(1)
}

func (m *MockLifecycleService) RequestTransition(ctx context.Context, edited *models.Service, target models.ServiceStatus, actor models.Actor) (*models.Service, error) {
	args := m.Called(ctx, edited, target, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Service), args.Error(1)
}

func (m *MockLifecycleService) SaveEdits(ctx context.Context, edited *models.Service, actor models.Actor) (*models.Service, error) {
	args := m.Called(ctx, edited, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Service), args.Error(1)
}

func (m *MockLifecycleService) ComputeTotals(service *models.Service, actor models.Actor) (*billing.Totals, error) {
	args := m.Called(service, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Totals), args.Error(1)
}

type MockPhotoService struct {
	mock.Mock
}

func (m *MockPhotoService) AddPhoto(ctx context.Context, serviceID string, upload models.PhotoUpload) (*models.Photo, error) {
	args := m.Called(ctx, serviceID, upload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Photo), args.Error(1)
}

func (m *MockPhotoService) RemovePhoto(ctx context.Context, serviceID, photoID string) error {
	return m.Called(ctx, serviceID, photoID).Error(0)
}

func (m *MockPhotoService) ListPhotos(ctx context.Context, serviceID string) ([]*models.Photo, error) {
	args := m.Called(ctx, serviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Photo), args.Error(1)
}

// ControllerTestSuite drives the routes through a real gin engine and JWT middleware
type ControllerTestSuite struct {
	suite.Suite
	intake    *MockIntakeService
	lifecycle *MockLifecycleService
	photos    *MockPhotoService
	jwt       *middelware.JWTManager
	router    *gin.Engine
}

func (suite *ControllerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	cfg := &models.Config{AppName: "Taller Backend", AppVersion: "1.0.0", JWTSecret: "test-secret", JWTExpiresIn: time.Hour}
	log := &MockLogger{}

	suite.intake = &MockIntakeService{}
	suite.lifecycle = &MockLifecycleService{}
	suite.photos = &MockPhotoService{}
	suite.jwt = middelware.NewJWTManager(cfg, log)

	suite.router = gin.New()
	NewController(cfg, suite.intake, suite.lifecycle, suite.photos, suite.jwt, log).RegisterRoutes(suite.router, "/api/v1")
}

func (suite *ControllerTestSuite) TearDownTest() {
	suite.intake.AssertExpectations(suite.T())
	suite.lifecycle.AssertExpectations(suite.T())
	suite.photos.AssertExpectations(suite.T())
}

func (suite *ControllerTestSuite) do(method, path string, role models.Role, body interface{}) (*httptest.ResponseRecorder, models.APIResponse) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return suite.serve(req, role)
}

func (suite *ControllerTestSuite) serve(req *http.Request, role models.Role) (*httptest.ResponseRecorder, models.APIResponse) {
	if role != "" {
		token, err := suite.jwt.GenerateToken("u-1", "ana@taller.cr", role)
		suite.Require().NoError(err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	var resp models.APIResponse
	if w.Body.Len() > 0 {
		suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func (suite *ControllerTestSuite) TestHealthNeedsNoToken() {
	w, _ := suite.do(http.MethodGet, "/api/v1/health", "", nil)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *ControllerTestSuite) TestServiceRoutesNeedToken() {
	w, resp := suite.do(http.MethodGet, "/api/v1/services/s-1", "", nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal("AuthenticationError", resp.Error.Type)
}

func (suite *ControllerTestSuite) TestIntakeCreated() {
	draft := models.IntakeDraft{
		Client:  models.Client{ID: "c-1"},
		Vehicle: models.Vehicle{ID: "v-1"},
		Service: models.Service{OrderNumber: "OT-0001"},
	}
	suite.intake.On("Commit", mock.Anything, mock.MatchedBy(func(d models.IntakeDraft) bool {
		return d.Service.OrderNumber == "OT-0001" && d.Client.ID == "c-1"
	}), mock.MatchedBy(func(a models.Actor) bool {
		return a.Role == models.RoleReceptionist
	})).Return("s-1", nil).Once()

	w, resp := suite.do(http.MethodPost, "/api/v1/services/intake", models.RoleReceptionist, draft)

	suite.Equal(http.StatusCreated, w.Code)
	suite.Equal("success", resp.Status)
	suite.Equal(map[string]interface{}{"serviceId": "s-1"}, resp.Data)
}

func (suite *ControllerTestSuite) TestIntakeForbiddenForTechnician() {
	w, _ := suite.do(http.MethodPost, "/api/v1/services/intake", models.RoleTechnician, models.IntakeDraft{})
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *ControllerTestSuite) TestIntakeErrors() {
	testCases := []struct {
		name     string
		err      error
		code     int
		errType  string
		errField string
	}{
		{"duplicate", &models.DuplicateError{Resource: "client", Field: "email", Value: "a@b.cr"}, http.StatusConflict, "DuplicateError", "email"},
		{"validation", models.NewValidationError("vehicle.plate", "plate is required"), http.StatusBadRequest, "ValidationError", "vehicle.plate"},
		{"reference", &models.InvalidReferenceError{Resource: "client", Field: "canton", Value: "X"}, http.StatusBadRequest, "InvalidReferenceError", "canton"},
		{"upload", models.ErrUploadReverted, http.StatusBadGateway, "UploadError", ""},
		{"transport", &models.TransportError{Op: "create client", Err: errors.New("timeout")}, http.StatusBadGateway, "TransportError", ""},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "InternalError", ""},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			suite.intake.On("Commit", mock.Anything, mock.Anything, mock.Anything).Return("", tc.err).Once()

			w, resp := suite.do(http.MethodPost, "/api/v1/services/intake", models.RoleAdmin, models.IntakeDraft{})

			suite.Equal(tc.code, w.Code)
			suite.Equal("error", resp.Status)
			suite.Equal(tc.errType, resp.Error.Type)
			suite.Equal(tc.errField, resp.Error.Field)
		})
	}
}

func (suite *ControllerTestSuite) TestIntakeValidationListsFields() {
	valErr := &models.ValidationError{}
	valErr.Add("client.Identification", "identification is required")
	valErr.Add("photos", "at most 15 photos can be attached to a service")
	suite.intake.On("Commit", mock.Anything, mock.Anything, mock.Anything).Return("", valErr).Once()

	w, resp := suite.do(http.MethodPost, "/api/v1/services/intake", models.RoleAdmin, models.IntakeDraft{})

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Require().Len(resp.Error.Fields, 2)
	suite.Equal("client.Identification", resp.Error.Fields[0].Field)
	suite.Equal("photos", resp.Error.Fields[1].Field)
}

func (suite *ControllerTestSuite) TestIntakeMalformedBody() {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/services/intake", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")

	w, resp := suite.serve(req, models.RoleAdmin)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("ValidationError", resp.Error.Type)
}

func (suite *ControllerTestSuite) TestGetServiceNotFound() {
	suite.lifecycle.On("GetService", mock.Anything, "s-404", mock.Anything).Return(nil, models.ErrNotFound).Once()

	w, resp := suite.do(http.MethodGet, "/api/v1/services/s-404", models.RoleManager, nil)

	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal("NotFoundError", resp.Error.Type)
}

func (suite *ControllerTestSuite) TestSaveEditsUsesPathID() {
	saved := &models.Service{ID: "s-1", Observations: "ok"}
	suite.lifecycle.On("SaveEdits", mock.Anything, mock.MatchedBy(func(s *models.Service) bool {
		return s.ID == "s-1" && s.Observations == "ok"
	}), mock.MatchedBy(func(a models.Actor) bool { return a.Role == models.RoleAdmin })).Return(saved, nil).Once()

	w, _ := suite.do(http.MethodPut, "/api/v1/services/s-1", models.RoleAdmin, models.Service{ID: "other", Observations: "ok"})

	suite.Equal(http.StatusOK, w.Code)
}

func (suite *ControllerTestSuite) TestTransitionMissingFields() {
	rejection := &models.TransitionError{
		From:          models.StatusPending,
		To:            models.StatusInProcess,
		MissingFields: []string{"assignment", "end date"},
	}
	suite.lifecycle.On("RequestTransition", mock.Anything, mock.Anything, models.StatusInProcess, mock.Anything).Return(nil, rejection).Once()

	body := models.TransitionRequest{Target: models.StatusInProcess, Service: &models.Service{OrderNumber: "OT-0001"}}
	w, resp := suite.do(http.MethodPost, "/api/v1/services/s-1/transitions", models.RoleManager, body)

	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	suite.Equal("TransitionError", resp.Error.Type)
	suite.Equal([]string{"assignment", "end date"}, resp.Error.MissingFields)
}

func (suite *ControllerTestSuite) TestTransitionStatusCodes() {
	testCases := []struct {
		name string
		err  error
		code int
	}{
		{"stale", &models.TransitionError{From: models.StatusPending, To: models.StatusFinished}, http.StatusConflict},
		{"forbidden", &models.ForbiddenError{Action: "mark a service as delivered"}, http.StatusForbidden},
		{"inconsistent", &models.InconsistencyError{ServiceID: "s-1", Target: models.StatusFinished, Err: errors.New("timeout")}, http.StatusConflict},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			suite.lifecycle.On("RequestTransition", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, tc.err).Once()

			body := models.TransitionRequest{Target: models.StatusFinished, Service: &models.Service{OrderNumber: "OT-0001"}}
			w, _ := suite.do(http.MethodPost, "/api/v1/services/s-1/transitions", models.RoleReceptionist, body)

			suite.Equal(tc.code, w.Code)
		})
	}
}

func (suite *ControllerTestSuite) TestTransitionSuccess() {
	moved := &models.Service{ID: "s-1", Status: models.StatusInProcess}
	suite.lifecycle.On("RequestTransition", mock.Anything, mock.MatchedBy(func(s *models.Service) bool { return s.ID == "s-1" }), models.StatusInProcess, mock.Anything).Return(moved, nil).Once()

	body := models.TransitionRequest{Target: models.StatusInProcess, Service: &models.Service{OrderNumber: "OT-0001"}}
	w, resp := suite.do(http.MethodPost, "/api/v1/services/s-1/transitions", models.RoleManager, body)

	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("in_process", resp.Data.(map[string]interface{})["status"])
}

func (suite *ControllerTestSuite) TestTransitionRejectsUnknownTarget() {
	body := map[string]interface{}{"target": "archived", "service": map[string]interface{}{"orderNumber": "OT-1"}}

	w, _ := suite.do(http.MethodPost, "/api/v1/services/s-1/transitions", models.RoleManager, body)

	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *ControllerTestSuite) TestTotalsOfStoredService() {
	stored := &models.Service{ID: "s-1"}
	totals := &billing.Totals{Subtotal: decimal.NewFromInt(100), Total: decimal.NewFromInt(113)}
	suite.lifecycle.On("GetService", mock.Anything, "s-1", mock.Anything).Return(stored, nil).Once()
	suite.lifecycle.On("ComputeTotals", stored, mock.Anything).Return(totals, nil).Once()

	w, resp := suite.do(http.MethodGet, "/api/v1/services/s-1/totals", models.RoleManager, nil)

	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("113", resp.Data.(map[string]interface{})["total"])
}

func (suite *ControllerTestSuite) TestTotalsOfDraftRejectsDiscount() {
	suite.lifecycle.On("ComputeTotals", mock.Anything, mock.Anything).Return(nil, models.NewValidationError("discount", "discount cannot exceed the subtotal")).Once()

	w, resp := suite.do(http.MethodPost, "/api/v1/services/totals", models.RoleReceptionist, models.Service{Discount: 500})

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("discount", resp.Error.Field)
}

func (suite *ControllerTestSuite) TestChanges() {
	stored := &models.Service{ID: "s-1", OrderNumber: "OT-0001", Status: models.StatusPending}
	suite.lifecycle.On("GetService", mock.Anything, "s-1", mock.Anything).Return(stored, nil).Twice()

	w, resp := suite.do(http.MethodPost, "/api/v1/services/s-1/changes", models.RoleManager, models.Service{OrderNumber: "OT-0001", Status: models.StatusPending})
	suite.Equal(http.StatusOK, w.Code)
	suite.Equal(false, resp.Data.(map[string]interface{})["dirty"])

	_, resp = suite.do(http.MethodPost, "/api/v1/services/s-1/changes", models.RoleManager, models.Service{OrderNumber: "OT-0001", Status: models.StatusPending, Observations: "noise"})
	suite.Equal(true, resp.Data.(map[string]interface{})["dirty"])
}

func (suite *ControllerTestSuite) TestAddPhotoJSON() {
	upload := models.PhotoUpload{FileName: "front.jpg", ContentType: "image/jpeg", Data: []byte{0xff, 0xd8}}
	suite.photos.On("AddPhoto", mock.Anything, "s-1", upload).Return(&models.Photo{ID: "p-1", ServiceID: "s-1"}, nil).Once()

	w, _ := suite.do(http.MethodPost, "/api/v1/services/s-1/photos", models.RoleTechnician, upload)

	suite.Equal(http.StatusCreated, w.Code)
}

func (suite *ControllerTestSuite) TestAddPhotoMultipart() {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="rear.png"`)
	header.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(header)
	suite.Require().NoError(err)
	_, _ = part.Write([]byte("png-bytes"))
	suite.Require().NoError(writer.Close())

	expected := models.PhotoUpload{FileName: "rear.png", ContentType: "image/png", Data: []byte("png-bytes")}
	suite.photos.On("AddPhoto", mock.Anything, "s-1", expected).Return(&models.Photo{ID: "p-2"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/services/s-1/photos", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w, _ := suite.serve(req, models.RoleManager)

	suite.Equal(http.StatusCreated, w.Code)
}

func (suite *ControllerTestSuite) TestAddPhotoOverLimit() {
	suite.photos.On("AddPhoto", mock.Anything, "s-1", mock.Anything).Return(nil, models.NewValidationError("photos", "a service can have at most 15 photos")).Once()

	upload := models.PhotoUpload{FileName: "x.jpg", ContentType: "image/jpeg", Data: []byte{1}}
	w, resp := suite.do(http.MethodPost, "/api/v1/services/s-1/photos", models.RoleManager, upload)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("photos", resp.Error.Field)
}

func (suite *ControllerTestSuite) TestRemovePhoto() {
	suite.photos.On("RemovePhoto", mock.Anything, "s-1", "p-1").Return(nil).Once()
	suite.photos.On("RemovePhoto", mock.Anything, "s-2", "p-1").Return(&models.ForbiddenError{Action: "remove photos from a delivered service"}).Once()

	w, _ := suite.do(http.MethodDelete, "/api/v1/services/s-1/photos/p-1", models.RoleManager, nil)
	suite.Equal(http.StatusOK, w.Code)

	w, _ = suite.do(http.MethodDelete, "/api/v1/services/s-2/photos/p-1", models.RoleManager, nil)
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *ControllerTestSuite) TestListPhotos() {
	suite.photos.On("ListPhotos", mock.Anything, "s-1").Return([]*models.Photo{{ID: "p-1"}, {ID: "p-2"}}, nil).Once()

	w, resp := suite.do(http.MethodGet, "/api/v1/services/s-1/photos", models.RoleTechnician, nil)

	suite.Equal(http.StatusOK, w.Code)
	suite.Len(resp.Data, 2)
}

func TestControllerTestSuite(t *testing.T) {
	suite.Run(t, new(ControllerTestSuite))
}

func TestStatusFor(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), models.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, statusFor(wrapped))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("x")))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(&models.TransitionError{MissingFields: []string{"plate"}}))
}

// storedServices is a ServiceGateway holding a single record in memory
type storedServices struct {
	record *models.Service
	edits  []models.ServiceEdits
}

func (g *storedServices) CreateService(ctx context.Context, service *models.Service) (string, error) {
	return "", errors.New("not supported")
}

func (g *storedServices) GetService(ctx context.Context, id string) (*models.Service, error) {
	if g.record == nil || g.record.ID != id {
		return nil, models.ErrNotFound
	}
	return g.record.Clone(), nil
}

func (g *storedServices) UpdateService(ctx context.Context, id string, edits models.ServiceEdits) error {
	g.edits = append(g.edits, edits)
	g.record.Observations = edits.Observations
	g.record.PaidLabors = edits.PaidLabors
	return nil
}

func (g *storedServices) ChangeServiceStatus(ctx context.Context, id string, change models.StatusChange) error {
	g.record.Status = change.To
	return nil
}

func (g *storedServices) DeleteService(ctx context.Context, id string) error {
	return nil
}

func TestPaidLaborOnlyReachesProfitRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &models.Config{AppName: "Taller Backend", JWTSecret: "test-secret", JWTExpiresIn: time.Hour}
	log := &MockLogger{}
	store := &storedServices{record: &models.Service{
		ID:          "s-1",
		OrderNumber: "OT-0001",
		Status:      models.StatusPending,
		Labors:      []models.Labor{{Description: "Frenos", Quantity: 1, UnitPrice: 100}},
		PaidLabors:  []models.PaidLabor{{Description: "mec", Price: 50}},
	}}
	jwt := middelware.NewJWTManager(cfg, log)
	lifecycle := services.NewLifecycleService(store, billing.NewCalculator(0.13), log)
	router := gin.New()
	NewController(cfg, &MockIntakeService{}, lifecycle, &MockPhotoService{}, jwt, log).RegisterRoutes(router, "/api/v1")

	call := func(method string, role models.Role, body interface{}) map[string]interface{} {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		req := httptest.NewRequest(method, "/api/v1/services/s-1", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		token, err := jwt.GenerateToken("u-1", "ana@taller.cr", role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp struct {
			Data map[string]interface{} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp.Data
	}

	assert.Nil(t, call(http.MethodGet, models.RoleReceptionist, nil)["paidLabors"])
	assert.NotEmpty(t, call(http.MethodGet, models.RoleAdmin, nil)["paidLabors"])

	edited := store.record.Clone()
	edited.Observations = "Revisar pastillas"
	edited.PaidLabors = []models.PaidLabor{{Description: "mec", Price: 9999}}
	saved := call(http.MethodPut, models.RoleReceptionist, edited)

	assert.Nil(t, saved["paidLabors"])
	assert.Equal(t, "Revisar pastillas", saved["observations"])
	require.Len(t, store.edits, 1)
	assert.Equal(t, []models.PaidLabor{{Description: "mec", Price: 50}}, store.edits[0].PaidLabors)
}
