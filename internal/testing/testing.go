// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/desertthunder/playlog/internal/models"
	"github.com/desertthunder/playlog/internal/services"
)

// MockProvider is a test double for [services.Provider]. Each method
// delegates to the corresponding func field when set and falls back to a
// benign zero answer otherwise, so tests only stub what they exercise.
type MockProvider struct {
	AuthURLFunc        func(state string) string
	ExchangeCodeFunc   func(ctx context.Context, code string) (*models.Tokens, error)
	RefreshTokenFunc   func(ctx context.Context, refreshToken string) (*models.Tokens, error)
	UserProfileFunc    func(ctx context.Context, accessToken string) (*services.UserProfile, error)
	RecentlyPlayedFunc func(ctx context.Context, accessToken string, afterMs int64, limit int) ([]models.PlayRecord, error)
	SeveralTracksFunc  func(ctx context.Context, accessToken string, ids []string) ([]services.SpotifyTrack, error)
	SeveralArtistsFunc func(ctx context.Context, accessToken string, ids []string) ([]services.SpotifyArtist, error)
}

func (m *MockProvider) AuthURL(state string) string {
	if m.AuthURLFunc != nil {
		return m.AuthURLFunc(state)
	}
	return "https://accounts.example.com/authorize?state=" + state
}

func (m *MockProvider) ExchangeCode(ctx context.Context, code string) (*models.Tokens, error) {
	if m.ExchangeCodeFunc != nil {
		return m.ExchangeCodeFunc(ctx, code)
	}
	return &models.Tokens{AccessToken: "mock-access", RefreshToken: "mock-refresh"}, nil
}

func (m *MockProvider) RefreshToken(ctx context.Context, refreshToken string) (*models.Tokens, error) {
	if m.RefreshTokenFunc != nil {
		return m.RefreshTokenFunc(ctx, refreshToken)
	}
	return &models.Tokens{AccessToken: "mock-access", RefreshToken: refreshToken}, nil
}

func (m *MockProvider) UserProfile(ctx context.Context, accessToken string) (*services.UserProfile, error) {
	if m.UserProfileFunc != nil {
		return m.UserProfileFunc(ctx, accessToken)
	}
	return &services.UserProfile{ID: "mock-user"}, nil
}

func (m *MockProvider) RecentlyPlayed(ctx context.Context, accessToken string, afterMs int64, limit int) ([]models.PlayRecord, error) {
	if m.RecentlyPlayedFunc != nil {
		return m.RecentlyPlayedFunc(ctx, accessToken, afterMs, limit)
	}
	return []models.PlayRecord{}, nil
}

func (m *MockProvider) SeveralTracks(ctx context.Context, accessToken string, ids []string) ([]services.SpotifyTrack, error) {
	if m.SeveralTracksFunc != nil {
		return m.SeveralTracksFunc(ctx, accessToken, ids)
	}
	return []services.SpotifyTrack{}, nil
}

func (m *MockProvider) SeveralArtists(ctx context.Context, accessToken string, ids []string) ([]services.SpotifyArtist, error) {
	if m.SeveralArtistsFunc != nil {
		return m.SeveralArtistsFunc(ctx, accessToken, ids)
	}
	return []services.SpotifyArtist{}, nil
}

func (m *MockProvider) Name() string { return "mock" }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
