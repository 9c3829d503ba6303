package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketplace-service/controllers"
	apperrors "marketplace-service/errors"
	"marketplace-service/middleware"
	"marketplace-service/models"
	"marketplace-service/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- Mocks ---

type mockListingService struct {
	services.ListingService
	listFn    func(ctx context.Context, actor models.Actor, filter models.ListingFilter) (*models.ListingPage, error)
	inquireFn func(ctx context.Context, actor models.Actor, id string, req *models.InquiryRequest) (*models.Message, error)
	viewFn    func(ctx context.Context, actor models.Actor, id string) (*models.Listing, error)
}

func (m *mockListingService) List(ctx context.Context, actor models.Actor, filter models.ListingFilter) (*models.ListingPage, error) {
	return m.listFn(ctx, actor, filter)
}

func (m *mockListingService) RecordInquiry(ctx context.Context, actor models.Actor, id string, req *models.InquiryRequest) (*models.Message, error) {
	return m.inquireFn(ctx, actor, id, req)
}

func (m *mockListingService) View(ctx context.Context, actor models.Actor, id string) (*models.Listing, error) {
	return m.viewFn(ctx, actor, id)
}

type mockAuthService struct {
	loginFn func(ctx context.Context, req *models.LoginRequest) (*services.AuthResult, error)
}

func (m *mockAuthService) Register(context.Context, *models.RegisterRequest) (*services.AuthResult, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) Login(ctx context.Context, req *models.LoginRequest) (*services.AuthResult, error) {
	return m.loginFn(ctx, req)
}

func (m *mockAuthService) Me(context.Context, models.Actor) (*models.User, error) {
	return nil, errors.New("not implemented")
}

type stubTokens struct{}

func (stubTokens) Validate(token string) (models.Actor, error) {
	if token == "" {
		return models.Actor{}, errors.New("invalid")
	}
	return models.Actor{UserID: token, Role: models.RoleBuyer}, nil
}

// --- Helpers ---

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(apperrors.ErrorMiddleware(zap.NewNop()))
	r.Use(middleware.Authenticate(stubTokens{}))
	return r
}

func perform(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// --- Tests ---

func TestListingController_List_ParsesFilter(t *testing.T) {
	supplierID := primitive.NewObjectID()
	var got models.ListingFilter
	svc := &mockListingService{
		listFn: func(_ context.Context, _ models.Actor, filter models.ListingFilter) (*models.ListingPage, error) {
			got = filter
			return &models.ListingPage{Listings: []models.Listing{}, Meta: models.NewPageMeta(2, 10, 0)}, nil
		},
	}
	r := newEngine()
	r.GET("/listings", controllers.NewListingController(svc).List)

	w := perform(r, http.MethodGet, "/listings?category=Textiles&minPrice=10&maxPrice=99.5&featured=true&sort=price_asc&page=2&limit=10&supplierId="+supplierID.Hex(), nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Textiles", got.Category)
	require.NotNil(t, got.MinPrice)
	assert.Equal(t, 10.0, *got.MinPrice)
	require.NotNil(t, got.MaxPrice)
	assert.Equal(t, 99.5, *got.MaxPrice)
	require.NotNil(t, got.Featured)
	assert.True(t, *got.Featured)
	assert.Equal(t, models.SortPriceAsc, got.Sort)
	require.NotNil(t, got.SupplierID)
	assert.Equal(t, supplierID, *got.SupplierID)
	assert.Equal(t, 2, got.Page)
	assert.Equal(t, 10, got.Limit)
}

func TestListingController_List_RejectsBadQuery(t *testing.T) {
	svc := &mockListingService{}
	r := newEngine()
	r.GET("/listings", controllers.NewListingController(svc).List)

	for _, q := range []string{"sort=cheapest", "minPrice=abc", "featured=maybe", "supplierId=xyz"} {
		w := perform(r, http.MethodGet, "/listings?"+q, nil, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestListingController_Get_NotFound(t *testing.T) {
	svc := &mockListingService{
		viewFn: func(context.Context, models.Actor, string) (*models.Listing, error) {
			return nil, apperrors.NotFound("Listing not found")
		},
	}
	r := newEngine()
	r.GET("/listings/:id", controllers.NewListingController(svc).Get)

	w := perform(r, http.MethodGet, "/listings/abc", nil, "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Listing not found")
}

func TestListingController_Inquire(t *testing.T) {
	var gotActor models.Actor
	var gotID string
	svc := &mockListingService{
		inquireFn: func(_ context.Context, actor models.Actor, id string, req *models.InquiryRequest) (*models.Message, error) {
			gotActor, gotID = actor, id
			return &models.Message{Text: req.Message}, nil
		},
	}
	r := newEngine()
	r.POST("/listings/:id/inquiries", controllers.NewListingController(svc).Inquire)

	w := perform(r, http.MethodPost, "/listings/l1/inquiries", map[string]interface{}{"message": "Need 500 units"}, "buyer-1")

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "buyer-1", gotActor.UserID)
	assert.Equal(t, "l1", gotID)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Inquiry sent", body["message"])
	assert.NotNil(t, body["chatMessage"])
}

func TestListingController_Inquire_InvalidBody(t *testing.T) {
	r := newEngine()
	r.POST("/listings/:id/inquiries", controllers.NewListingController(&mockListingService{}).Inquire)

	req := httptest.NewRequest(http.MethodPost, "/listings/l1/inquiries", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid request body")
}

func TestAuthController_Login_SetsCookie(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(_ context.Context, req *models.LoginRequest) (*services.AuthResult, error) {
			return &services.AuthResult{
				User:      &models.User{Email: req.Email},
				Token:     "signed-token",
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}
	r := newEngine()
	ac := controllers.NewAuthController(svc, true)
	r.POST("/login", ac.Login)
	r.POST("/logout", ac.Logout)

	w := perform(r, http.MethodPost, "/login", map[string]string{"email": "a@example.com", "password": "secret123"}, "")

	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.TokenCookie, cookies[0].Name)
	assert.Equal(t, "signed-token", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	w = perform(r, http.MethodPost, "/logout", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	cookies = w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestAuthController_Login_BadCredentials(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(context.Context, *models.LoginRequest) (*services.AuthResult, error) {
			return nil, apperrors.Unauthorized("Invalid email or password")
		},
	}
	r := newEngine()
	r.POST("/login", controllers.NewAuthController(svc, false).Login)

	w := perform(r, http.MethodPost, "/login", map[string]string{"email": "a@example.com", "password": "nope"}, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Result().Cookies())
}
