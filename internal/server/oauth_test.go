package server

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/playlog/internal/models"
	tu "github.com/desertthunder/playlog/internal/testing"
)

func TestOAuthHandler(t *testing.T) {
	t.Run("Successful Callback", func(t *testing.T) {
		provider := &tu.MockProvider{
			ExchangeCodeFunc: func(ctx context.Context, code string) (*models.Tokens, error) {
				if code != "good-code" {
					t.Errorf("unexpected code %q", code)
				}
				return &models.Tokens{AccessToken: "at", RefreshToken: "rt"}, nil
			},
		}
		handler := NewOAuthHandler(provider, "state-1")

		req := httptest.NewRequest("GET", "/callback?state=state-1&code=good-code", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != 200 {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := <-handler.Result()
		if result.Error() != nil {
			t.Fatalf("expected success, got %v", result.Error())
		}
		if result.Tokens.RefreshToken != "rt" {
			t.Errorf("unexpected tokens: %+v", result.Tokens)
		}
	})

	t.Run("State Mismatch", func(t *testing.T) {
		handler := NewOAuthHandler(&tu.MockProvider{}, "expected-state")

		req := httptest.NewRequest("GET", "/callback?state=forged&code=x", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != 400 {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		result := <-handler.Result()
		if result.Error() == nil {
			t.Error("expected state error")
		}
	})

	t.Run("Provider Denied", func(t *testing.T) {
		handler := NewOAuthHandler(&tu.MockProvider{}, "s")

		req := httptest.NewRequest("GET", "/callback?state=s&error=access_denied&error_description=nope", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		result := <-handler.Result()
		if result.Error() == nil {
			t.Error("expected authorization error")
		}
	})

	t.Run("Exchange Failure", func(t *testing.T) {
		provider := &tu.MockProvider{
			ExchangeCodeFunc: func(ctx context.Context, code string) (*models.Tokens, error) {
				return nil, errors.New("exchange blew up")
			},
		}
		handler := NewOAuthHandler(provider, "s")

		req := httptest.NewRequest("GET", "/callback?state=s&code=c", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != 500 {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		result := <-handler.Result()
		if result.Error() == nil {
			t.Error("expected exchange error")
		}
	})

	t.Run("Second Callback Rejected", func(t *testing.T) {
		handler := NewOAuthHandler(&tu.MockProvider{}, "s")

		first := httptest.NewRequest("GET", "/callback?state=s&code=c1", nil)
		handler.ServeHTTP(httptest.NewRecorder(), first)

		second := httptest.NewRequest("GET", "/callback?state=s&code=c2", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, second)

		if rec.Code != 400 {
			t.Errorf("expected replay rejected with 400, got %d", rec.Code)
		}
	})
}
