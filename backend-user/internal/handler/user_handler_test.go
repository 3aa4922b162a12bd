package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/D-Tasker207/gazpacho-backend/backend-user/internal/domain"
	"github.com/D-Tasker207/gazpacho-backend/pkg/dto"
	"github.com/D-Tasker207/gazpacho-backend/pkg/token"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockIdentityService is a mock implementation of IdentityService
type MockIdentityService struct {
	mock.Mock
}

func (m *MockIdentityService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.PublicUser, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.PublicUser), args.Error(1)
}

func (m *MockIdentityService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TokenResponse), args.Error(1)
}

func (m *MockIdentityService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TokenResponse), args.Error(1)
}

func (m *MockIdentityService) ResolveBearer(ctx context.Context, header string) (*token.Principal, error) {
	args := m.Called(ctx, header)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*token.Principal), args.Error(1)
}

func (m *MockIdentityService) GetPublicIdentity(ctx context.Context, id int64) (*dto.PublicUser, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.PublicUser), args.Error(1)
}

func (m *MockIdentityService) SetSavedRecipe(ctx context.Context, userID, recipeID int64, add bool) error {
	args := m.Called(ctx, userID, recipeID, add)
	return args.Error(0)
}

func (m *MockIdentityService) RemoveRecipeEverywhere(ctx context.Context, recipeID int64) (int64, error) {
	args := m.Called(ctx, recipeID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockIdentityService) PromoteAdmin(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

const validBearer = "Bearer valid-access"

func setupUserTestRouter(svc *MockIdentityService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterRoutes(router, NewUserHandler(svc), NewHealthHandler(stubPinger{}))

	svc.On("ResolveBearer", mock.Anything, validBearer).Return(&token.Principal{UserID: 7, Kind: token.KindAccess}, nil).Maybe()
	svc.On("ResolveBearer", mock.Anything, mock.Anything).Return(nil, domain.ErrTokenInvalid).Maybe()
	return router
}

func doRequest(router *gin.Engine, method, path, body, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUserHandler_Register(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "created",
			body:       `{"email":"a@x.com","password":"pw1"}`,
			wantStatus: http.StatusCreated,
			wantBody:   `{"success":true,"data":{"id":1,"email":"a@x.com","admin":false,"savedRecipeIds":[]}}`,
		},
		{
			name:       "duplicate email",
			body:       `{"email":"a@x.com","password":"pw2"}`,
			serviceErr: domain.ErrDuplicateEmail,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "invalid email",
			body:       `{"email":"not-an-email","password":"pw1"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing password",
			body:       `{"email":"a@x.com"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed json",
			body:       `{`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "store failure",
			body:       `{"email":"a@x.com","password":"pw1"}`,
			serviceErr: errors.New("connection refused"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockIdentityService)
			router := setupUserTestRouter(svc)

			if tt.serviceErr != nil {
				svc.On("Register", mock.Anything, mock.Anything).Return(nil, tt.serviceErr)
			} else {
				svc.On("Register", mock.Anything, &dto.RegisterRequest{Email: "a@x.com", Password: "pw1"}).
					Return(&dto.PublicUser{ID: 1, Email: "a@x.com", SavedRecipeIDs: []int64{}}, nil)
			}

			w := doRequest(router, http.MethodPost, "/users/register", tt.body, "")

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			}
			assert.NotContains(t, w.Body.String(), "connection refused")
		})
	}
}

func TestUserHandler_Login(t *testing.T) {
	svc := new(MockIdentityService)
	router := setupUserTestRouter(svc)

	svc.On("Login", mock.Anything, &dto.LoginRequest{Email: "a@x.com", Password: "pw1"}).
		Return(dto.NewTokenResponse("access", "refresh"), nil)
	svc.On("Login", mock.Anything, mock.Anything).Return(nil, domain.ErrInvalidCredentials)

	w := doRequest(router, http.MethodPost, "/users/login", `{"email":"a@x.com","password":"pw1"}`, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"tokenType":"Bearer","accessToken":"access","refreshToken":"refresh"}}`, w.Body.String())

	w = doRequest(router, http.MethodPost, "/users/login", `{"email":"a@x.com","password":"wrong"}`, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_CREDENTIALS")
}

func TestUserHandler_Refresh(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"rotated", nil, http.StatusOK},
		{"invalid token", domain.ErrTokenInvalid, http.StatusForbidden},
		{"identity gone", domain.ErrIdentityNotFound, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockIdentityService)
			router := setupUserTestRouter(svc)
			if tt.serviceErr != nil {
				svc.On("Refresh", mock.Anything, "r1").Return(nil, tt.serviceErr)
			} else {
				svc.On("Refresh", mock.Anything, "r1").Return(dto.NewTokenResponse("a2", "r2"), nil)
			}

			w := doRequest(router, http.MethodPost, "/users/refresh", `{"refreshToken":"r1"}`, "")
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}

	svc := new(MockIdentityService)
	router := setupUserTestRouter(svc)
	w := doRequest(router, http.MethodPost, "/users/refresh", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserHandler_Me(t *testing.T) {
	svc := new(MockIdentityService)
	router := setupUserTestRouter(svc)
	svc.On("GetPublicIdentity", mock.Anything, int64(7)).
		Return(&dto.PublicUser{ID: 7, Email: "a@x.com", Admin: true, SavedRecipeIDs: []int64{3}}, nil).Once()

	w := doRequest(router, http.MethodGet, "/users", "", validBearer)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"id":7,"email":"a@x.com","admin":true,"savedRecipeIds":[3]}}`, w.Body.String())

	w = doRequest(router, http.MethodGet, "/users", "", "Bearer refresh-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(router, http.MethodGet, "/users", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	svc.On("GetPublicIdentity", mock.Anything, int64(7)).Return(nil, domain.ErrIdentityNotFound)
	w = doRequest(router, http.MethodGet, "/users", "", validBearer)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUserHandler_SavedRecipes(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		auth       string
		serviceErr error
		callsSvc   bool
		wantStatus int
		wantBody   string
	}{
		{
			name: "save", method: http.MethodPost, path: "/users/recipes/3", auth: validBearer,
			callsSvc: true, wantStatus: http.StatusOK,
			wantBody: `{"success":true,"data":{"message":"Recipe saved successfully"}}`,
		},
		{
			name: "remove", method: http.MethodDelete, path: "/users/recipes/3", auth: validBearer,
			callsSvc: true, wantStatus: http.StatusOK,
			wantBody: `{"success":true,"data":{"message":"Recipe removed successfully"}}`,
		},
		{
			name: "unknown recipe", method: http.MethodPost, path: "/users/recipes/3", auth: validBearer,
			serviceErr: domain.ErrRecipeNotFound, callsSvc: true, wantStatus: http.StatusNotFound,
			wantBody: `{"success":false,"error":{"code":"NOT_FOUND","message":"Recipe with id 3 not found"}}`,
		},
		{
			name: "catalog down", method: http.MethodPost, path: "/users/recipes/3", auth: validBearer,
			serviceErr: domain.ErrRecipeCatalogUnavailable, callsSvc: true, wantStatus: http.StatusServiceUnavailable,
		},
		{
			name: "bad id", method: http.MethodPost, path: "/users/recipes/abc", auth: validBearer,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "no token", method: http.MethodPost, path: "/users/recipes/3",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockIdentityService)
			router := setupUserTestRouter(svc)
			if tt.callsSvc {
				svc.On("SetSavedRecipe", mock.Anything, int64(7), int64(3), tt.method == http.MethodPost).Return(tt.serviceErr)
			}

			w := doRequest(router, tt.method, tt.path, "", tt.auth)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			}
			if !tt.callsSvc {
				svc.AssertNotCalled(t, "SetSavedRecipe", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterRoutes(router, NewUserHandler(new(MockIdentityService)), NewHealthHandler(stubPinger{err: errors.New("down")}))

	w := doRequest(router, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
