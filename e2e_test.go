package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/FACorreiaa/fabrico-auth/config"
	"github.com/FACorreiaa/fabrico-auth/internal/api/auth"
	"github.com/FACorreiaa/fabrico-auth/internal/container"
	"github.com/FACorreiaa/fabrico-auth/internal/types"
)

const e2eExpirationMillis = 86400000

// E2ETestSuite drives the public router end to end over a real listener,
// backed by the in-memory user store.
type E2ETestSuite struct {
	suite.Suite
	container *container.Container
	server    *httptest.Server
	client    *http.Client
	token     string
}

func (s *E2ETestSuite) SetupSuite() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var cfg config.Config
	cfg.Mode = "test"
	cfg.Repositories.Driver = "memory"
	cfg.Server.Timeout = 5 * time.Second
	cfg.JWT = config.JWTConfig{
		Secret:     base64.StdEncoding.EncodeToString([]byte("e2e-signing-key-of-at-least-32-bytes!")),
		Expiration: e2eExpirationMillis,
	}
	cfg.Password = config.PasswordConfig{Cost: 4, Workers: 2}
	cfg.CORS.AllowedOrigins = []string{"http://localhost:5173"}
	s.Require().NoError(cfg.Validate())

	c, err := container.NewContainerWithStore(&cfg, logger, auth.NewMemoryUserStore(logger))
	s.Require().NoError(err)
	s.container = c
	s.server = httptest.NewServer(c.Router())
	s.client = &http.Client{Timeout: 10 * time.Second}
}

func (s *E2ETestSuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	s.container.Close()
}

func (s *E2ETestSuite) do(method, path, token string, body any) (*http.Response, []byte) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	s.Require().NoError(err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp, data
}

func (s *E2ETestSuite) registerAndLogin(name, email, password string) string {
	resp, body := s.do(http.MethodPost, "/api/auth/register", "", types.RegisterRequest{
		Name: name, Email: email, Password: password,
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode, string(body))
	var got types.AuthResponse
	s.Require().NoError(json.Unmarshal(body, &got))
	return got.Token
}

func (s *E2ETestSuite) Test1_HappyRegister() {
	resp, body := s.do(http.MethodPost, "/api/auth/register", "", types.RegisterRequest{
		Name:        "John Doe",
		Email:       "john@example.com",
		Password:    "password123",
		PhoneNumber: "1234567890",
	})

	s.Equal(http.StatusCreated, resp.StatusCode)
	s.Equal("application/json", resp.Header.Get("Content-Type"))
	var got types.AuthResponse
	s.Require().NoError(json.Unmarshal(body, &got))
	s.NotEmpty(got.Token)
	s.Equal("Bearer", got.Type)
	s.Equal(types.RoleUser, got.Role)
	s.Equal("Registration successful", got.Message)
	s.Equal("john@example.com", got.Email)
	s.NotZero(got.UserID)
	s.NotContains(string(body), "password")
}

func (s *E2ETestSuite) Test2_DuplicateRegister() {
	resp, body := s.do(http.MethodPost, "/api/auth/register", "", types.RegisterRequest{
		Name:        "John Doe",
		Email:       "John@Example.com",
		Password:    "password123",
		PhoneNumber: "1234567890",
	})

	s.Equal(http.StatusConflict, resp.StatusCode)
	s.JSONEq(`{"message":"Email already registered"}`, string(body))
}

func (s *E2ETestSuite) Test3_HappyLogin() {
	resp, body := s.do(http.MethodPost, "/api/auth/login", "", types.LoginRequest{
		Email:    "john@example.com",
		Password: "password123",
	})

	s.Require().Equal(http.StatusOK, resp.StatusCode, string(body))
	var got types.AuthResponse
	s.Require().NoError(json.Unmarshal(body, &got))
	s.Equal("Login successful", got.Message)

	claims, err := s.container.Codec.Parse(got.Token)
	s.Require().NoError(err)
	s.Equal("john@example.com", claims.Subject)
	s.Equal(int64(e2eExpirationMillis/1000), claims.ExpiresAt.Unix()-claims.IssuedAt.Unix())
	s.token = got.Token
}

func (s *E2ETestSuite) Test4_WrongPassword() {
	resp, body := s.do(http.MethodPost, "/api/auth/login", "", types.LoginRequest{
		Email:    "john@example.com",
		Password: "nope",
	})

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.JSONEq(`{"message":"Invalid email or password"}`, string(body))
}

func (s *E2ETestSuite) Test5_UnknownUser() {
	resp, body := s.do(http.MethodPost, "/api/auth/login", "", types.LoginRequest{
		Email:    "nobody@x.com",
		Password: "x",
	})

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.JSONEq(`{"message":"Invalid email or password"}`, string(body))
}

func (s *E2ETestSuite) Test6_ProtectedRoute() {
	resp, _ := s.do(http.MethodGet, "/api/cart", "", nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	s.Require().NotEmpty(s.token, "login scenario must run first")
	resp, body := s.do(http.MethodGet, "/api/cart", s.token, nil)
	s.NotEqual(http.StatusUnauthorized, resp.StatusCode)
	s.Equal(http.StatusNotFound, resp.StatusCode, string(body))
}

func (s *E2ETestSuite) Test7_PublicRoute() {
	resp, _ := s.do(http.MethodGet, "/api/products/42", "", nil)

	s.NotEqual(http.StatusUnauthorized, resp.StatusCode)
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *E2ETestSuite) Test8_ExpiredToken() {
	token, err := s.container.Codec.Mint("john@example.com", time.Now(), time.Millisecond)
	s.Require().NoError(err)
	time.Sleep(10 * time.Millisecond)

	resp, _ := s.do(http.MethodGet, "/api/cart", token, nil)

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *E2ETestSuite) TestCurrentUser() {
	token := s.registerAndLogin("Jane Doe", "jane@example.com", "secret-pass")

	resp, body := s.do(http.MethodGet, "/api/users/me", token, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(body))
	var me types.UserResponse
	s.Require().NoError(json.Unmarshal(body, &me))
	s.Equal("jane@example.com", me.Email)
	s.Equal("Jane Doe", me.Name)
	s.Equal(types.RoleUser, me.Role)

	resp, _ = s.do(http.MethodGet, "/api/users/me", "", nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *E2ETestSuite) TestForgedToken() {
	token := s.registerAndLogin("Mallory", "mallory@example.com", "secret-pass")
	parts := strings.Split(token, ".")
	s.Require().Len(parts, 3)

	// same subject, signed with a key the server does not know
	other, err := auth.NewTokenCodec([]byte(strings.Repeat("x", 32)), time.Hour)
	s.Require().NoError(err)
	forged, err := other.Issue("mallory@example.com")
	s.Require().NoError(err)

	resp, _ := s.do(http.MethodGet, "/api/users/me", forged, nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(http.MethodGet, "/api/users/me", parts[0]+"."+parts[1]+".", nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *E2ETestSuite) TestValidationErrors() {
	resp, body := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "J", "email": "not-an-email", "password": "123",
	})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	var got types.ErrorResponse
	s.Require().NoError(json.Unmarshal(body, &got))
	s.Equal("Validation failed", got.Message)
	s.Len(got.Fields, 3)

	resp, _ = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "john@example.com", "password": "password123", "role": "ADMIN",
	})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *E2ETestSuite) TestMethodNotAllowed() {
	resp, _ := s.do(http.MethodGet, "/api/auth/login", "", nil)

	s.Equal(http.StatusMethodNotAllowed, resp.StatusCode)
}

func (s *E2ETestSuite) TestCORSPreflight() {
	req, err := http.NewRequest(http.MethodOptions, s.server.URL+"/api/users/me", nil)
	s.Require().NoError(err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")

	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.NotEqual(http.StatusUnauthorized, resp.StatusCode)
	s.Equal("http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	s.Equal("true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func (s *E2ETestSuite) TestAdminRouter() {
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	admin := httptest.NewServer(adminRouter(metricsHandler))
	defer admin.Close()

	for path, want := range map[string]string{
		"/healthz":          "ok",
		"/metrics":          "# metrics",
		"/swagger/doc.json": "/auth/register",
	} {
		resp, err := s.client.Get(admin.URL + path)
		s.Require().NoError(err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		s.Require().NoError(err)
		s.Equal(http.StatusOK, resp.StatusCode, path)
		s.Contains(string(body), want, path)
	}
}

func TestE2ETestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E tests in short mode")
	}
	suite.Run(t, new(E2ETestSuite))
}
