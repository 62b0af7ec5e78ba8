package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/signalhunt/market/api"
	"github.com/signalhunt/market/pkg/models"
	"github.com/signalhunt/market/pkg/repository/mock"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthHandlers(t *testing.T) {
	secret := "testsecret"
	tokenDur := 1 * time.Hour

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		prepare    func(m *mock.Mocks)
		wantStatus int
		checkBody  func(t *testing.T, body []byte)
	}{
		{
			name:       "Signup_InvalidRequest",
			method:     http.MethodPost,
			path:       "/signup",
			body:       "not a json",
			prepare:    func(m *mock.Mocks) {},
			wantStatus: http.StatusBadRequest,
			checkBody:  func(t *testing.T, b []byte) {},
		},
		{
			name:       "Signup_MissingFields_Name",
			method:     http.MethodPost,
			path:       "/signup",
			body:       map[string]string{"email": "alice@example.com", "password": "s3cret", "role": models.RoleSignal},
			prepare:    func(m *mock.Mocks) {},
			wantStatus: http.StatusBadRequest,
			checkBody:  func(t *testing.T, b []byte) {},
		},
		{
			name:       "Signup_MissingFields_Email",
			method:     http.MethodPost,
			path:       "/signup",
			body:       map[string]string{"full_name": "Alice", "password": "s3cret", "role": models.RoleSignal},
			prepare:    func(m *mock.Mocks) {},
			wantStatus: http.StatusBadRequest,
			checkBody:  func(t *testing.T, b []byte) {},
		},
		{
			name:       "Signup_UnknownRole",
			method:     http.MethodPost,
			path:       "/signup",
			body:       map[string]string{"full_name": "Alice", "email": "alice@example.com", "password": "s3cret", "role": "ADMIN"},
			prepare:    func(m *mock.Mocks) {},
			wantStatus: http.StatusBadRequest,
			checkBody:  func(t *testing.T, b []byte) {},
		},
		{
			name:       "Signup_MissingRole",
			method:     http.MethodPost,
			path:       "/signup",
			body:       map[string]string{"full_name": "Alice", "email": "alice@example.com", "password": "s3cret"},
			prepare:    func(m *mock.Mocks) {},
			wantStatus: http.StatusBadRequest,
			checkBody:  func(t *testing.T, b []byte) {},
		},
		{
			name:       "Signup_Success_Signal",
			method:     http.MethodPost,
			path:       "/signup",
			body:       map[string]string{"full_name": "Alice", "email": "alice@example.com", "password": "s3cret", "role": models.RoleSignal, "company": "Nova Tech"},
			prepare:    func(m *mock.Mocks) {},
			wantStatus: http.StatusOK,
			checkBody: func(t *testing.T, b []byte) {
				var resp struct {
					Token     string `json:"token"`
					ProfileID string `json:"profile_id"`
					Role      string `json:"role"`
				}
				if err := json.Unmarshal(b, &resp); err != nil {
					t.Fatalf("unmarshal response: %v", err)
				}
				if resp.Token == "" || resp.ProfileID == "" {
					t.Fatalf("incomplete auth response: %+v", resp)
				}
				if resp.Role != models.RoleSignal {
					t.Fatalf("role = %s, want %s", resp.Role, models.RoleSignal)
				}

				token, err := jwt.Parse(resp.Token, func(tk *jwt.Token) (any, error) {
					return []byte(secret), nil
				})
				if err != nil || !token.Valid {
					t.Fatalf("issued token does not verify: %v", err)
				}
				claims := token.Claims.(jwt.MapClaims)
				if sub, _ := claims.GetSubject(); sub != resp.ProfileID {
					t.Fatalf("token sub = %s, want %s", sub, resp.ProfileID)
				}
				if claims["role"] != models.RoleSignal {
					t.Fatalf("token role = %v, want %s", claims["role"], models.RoleSignal)
				}
			},
		},
		{
			name:   "Signup_DuplicateEmail",
			method: http.MethodPost,
			path:   "/signup",
			body:   map[string]string{"full_name": "Alice", "email": "taken@example.com", "password": "s3cret", "role": models.RoleHunter},
			prepare: func(m *mock.Mocks) {
				m.Profiles.CreateProfile(context.Background(), &models.Profile{ID: "p1", Role: models.RoleHunter, Email: "taken@example.com"})
			},
			wantStatus: http.StatusInternalServerError,
			checkBody:  func(t *testing.T, b []byte) {},
		},
		{
			name:       "Signin_UnknownEmail",
			method:     http.MethodPost,
			path:       "/signin",
			body:       map[string]string{"email": "ghost@example.com", "password": "s3cret"},
			prepare:    func(m *mock.Mocks) {},
			wantStatus: http.StatusUnauthorized,
			checkBody:  func(t *testing.T, b []byte) {},
		},
		{
			name:   "Signin_WrongPassword",
			method: http.MethodPost,
			path:   "/signin",
			body:   map[string]string{"email": "bob@example.com", "password": "wrong"},
			prepare: func(m *mock.Mocks) {
				hash, _ := bcrypt.GenerateFromPassword([]byte("right"), bcrypt.DefaultCost)
				m.Profiles.CreateProfile(context.Background(), &models.Profile{ID: "p1", Role: models.RoleHunter, Email: "bob@example.com", PasswordHash: string(hash)})
			},
			wantStatus: http.StatusUnauthorized,
			checkBody:  func(t *testing.T, b []byte) {},
		},
		{
			name:   "Signin_Success",
			method: http.MethodPost,
			path:   "/signin",
			body:   map[string]string{"email": "bob@example.com", "password": "right"},
			prepare: func(m *mock.Mocks) {
				hash, _ := bcrypt.GenerateFromPassword([]byte("right"), bcrypt.DefaultCost)
				m.Profiles.CreateProfile(context.Background(), &models.Profile{ID: "p1", Role: models.RoleHunter, Email: "bob@example.com", PasswordHash: string(hash)})
			},
			wantStatus: http.StatusOK,
			checkBody: func(t *testing.T, b []byte) {
				var resp struct {
					Token     string `json:"token"`
					ProfileID string `json:"profile_id"`
				}
				if err := json.Unmarshal(b, &resp); err != nil {
					t.Fatalf("unmarshal response: %v", err)
				}
				if resp.ProfileID != "p1" || resp.Token == "" {
					t.Fatalf("auth response = %+v", resp)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mock.NewMocks()
			tt.prepare(m)
			h := api.NewAuthHandler(m.Profiles, secret, tokenDur)

			var buf bytes.Buffer
			if s, ok := tt.body.(string); ok {
				buf.WriteString(s)
			} else if err := json.NewEncoder(&buf).Encode(tt.body); err != nil {
				t.Fatalf("encode body: %v", err)
			}

			req := httptest.NewRequest(tt.method, tt.path, &buf)
			rec := httptest.NewRecorder()

			switch tt.path {
			case "/signup":
				h.Signup(rec, req)
			case "/signin":
				h.Signin(rec, req)
			}

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			tt.checkBody(t, rec.Body.Bytes())
		})
	}
}

func TestSignout(t *testing.T) {
	m := mock.NewMocks()
	h := api.NewAuthHandler(m.Profiles, "s", time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/signout", nil)
	rec := httptest.NewRecorder()
	h.Signout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
