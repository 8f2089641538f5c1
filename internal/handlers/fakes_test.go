package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"natours/internal/apperror"
	"natours/internal/authz"
	"natours/internal/config"
	"natours/internal/middleware"
	"natours/internal/models"
	"natours/internal/query"
	"natours/internal/services"
	"natours/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	regularUser = &models.User{ID: 5, Name: "Laura", Email: "laura@example.com", Role: authz.RoleUser}
	adminUser   = &models.User{ID: 1, Name: "Admin", Email: "admin@natours.io", Role: authz.RoleAdmin}
)

// newEngine wires the production error handler and an optional signed-in user.
func newEngine(user *models.User) *gin.Engine {
	r := gin.New()
	r.SetHTMLTemplate(template.Must(template.New("error.html").Parse(`{{.msg}}`)))
	r.Use(middleware.ErrorHandler(config.EnvProduction))
	if user != nil {
		r.Use(func(c *gin.Context) {
			middleware.SetCurrentUser(c, user)
			c.Next()
		})
	}
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return serve(r, req)
}

func serve(r http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func raw(s string) json.RawMessage { return json.RawMessage(s) }

type fakeTours struct {
	services.TourService

	lastQuery   *query.Query
	created     *models.TourInput
	deleted     int64
	within      []any
	distanceArg []any
	cover       *storage.Upload
	images      []storage.Upload
}

func (f *fakeTours) Find(_ context.Context, q *query.Query) ([]json.RawMessage, error) {
	f.lastQuery = q
	return []json.RawMessage{raw(`{"id":1}`), raw(`{"id":2}`)}, nil
}

func (f *fakeTours) FindByID(_ context.Context, id int64) (json.RawMessage, error) {
	if id == 404 {
		return nil, apperror.NotFound("tour")
	}
	return raw(`{"id":3,"name":"The Sea Explorer"}`), nil
}

func (f *fakeTours) Create(_ context.Context, in models.TourInput) (json.RawMessage, error) {
	f.created = &in
	return raw(`{"id":9}`), nil
}

func (f *fakeTours) Delete(_ context.Context, id int64) error {
	f.deleted = id
	return nil
}

func (f *fakeTours) Within(_ context.Context, distance, lat, lng float64, unit string) ([]json.RawMessage, error) {
	f.within = []any{distance, lat, lng, unit}
	return nil, nil
}

func (f *fakeTours) Distances(_ context.Context, lat, lng float64, unit string) ([]models.TourDistance, error) {
	f.distanceArg = []any{lat, lng, unit}
	return []models.TourDistance{}, nil
}

func (f *fakeTours) UploadImages(_ context.Context, id int64, cover *storage.Upload, images []storage.Upload) (json.RawMessage, error) {
	f.cover = cover
	f.images = images
	return raw(`{"id":3}`), nil
}

type fakeReviews struct {
	services.ReviewService

	lastQuery *query.Query
	created   *models.ReviewInput
}

func (f *fakeReviews) Find(_ context.Context, q *query.Query) ([]json.RawMessage, error) {
	f.lastQuery = q
	return nil, nil
}

func (f *fakeReviews) Create(_ context.Context, in models.ReviewInput) (json.RawMessage, error) {
	f.created = &in
	return raw(`{"id":1}`), nil
}

type fakeUsers struct {
	services.UserService

	name, email *string
	photo       *storage.Upload
	photoBody   string
	deactivated int64
}

func (f *fakeUsers) UpdateMe(_ context.Context, user *models.User, name, email *string, photo *storage.Upload) (*models.User, error) {
	f.name, f.email, f.photo = name, email, photo
	if photo != nil {
		b, _ := io.ReadAll(photo.Body)
		f.photoBody = string(b)
	}
	out := *user
	if name != nil {
		out.Name = *name
	}
	return &out, nil
}

func (f *fakeUsers) DeactivateMe(_ context.Context, user *models.User) error {
	f.deactivated = user.ID
	return nil
}

type fakeAuthService struct {
	services.AuthService

	resetURL string
	signupIn models.SignupRequest
	welcome  string
}

func (f *fakeAuthService) VerifyCredentials(_ context.Context, email, password string) (*models.User, error) {
	if email == regularUser.Email && password == "test1234" {
		return regularUser, nil
	}
	return nil, apperror.ErrInvalidCredentials
}

func (f *fakeAuthService) IssueToken(userID int64) (string, error) {
	return "signed-token", nil
}

func (f *fakeAuthService) Signup(_ context.Context, in models.SignupRequest, welcomeURL string) (*models.User, string, error) {
	f.signupIn = in
	f.welcome = welcomeURL
	return &models.User{ID: 42, Name: in.Name, Email: in.Email, Role: authz.RoleUser}, "new-token", nil
}

func (f *fakeAuthService) RequestPasswordReset(_ context.Context, email string, buildURL func(raw string) string) error {
	if email == "" {
		return apperror.ErrNoSuchUser
	}
	f.resetURL = buildURL("raw-token")
	return nil
}

type fakeBookings struct {
	services.BookingService

	checkoutTour int64
	checkoutBase string
	payload      string
	signature    string
	completeErr  error
	receiptErr   error
}

func (f *fakeBookings) CheckoutSession(_ context.Context, _ *models.User, tourID int64, baseURL string) (*services.CheckoutSession, error) {
	f.checkoutTour = tourID
	f.checkoutBase = baseURL
	return &services.CheckoutSession{ID: "cs_test", URL: "https://checkout.stripe.com/pay/cs_test"}, nil
}

func (f *fakeBookings) CompleteCheckout(_ context.Context, payload []byte, signature string) error {
	f.payload = string(payload)
	f.signature = signature
	return f.completeErr
}

func (f *fakeBookings) Receipt(_ context.Context, w io.Writer, bookingID int64, user *models.User) error {
	if f.receiptErr != nil {
		return f.receiptErr
	}
	_, err := io.WriteString(w, "%PDF-1.3 receipt")
	return err
}
