package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/memeflux/internal/models"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func sampleHistory() models.HistoryData {
	at := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
	return models.HistoryData{}.
		Append(models.HistoryEntry{
			Narrative:      "Dog Renaissance",
			TokenName:      "Doge Reborn",
			Symbol:         "DREB",
			MintAddress:    "Mint111",
			TxSignature:    "Sig111",
			MatchingTokens: []string{"WIF", "BONK", "MYRO"},
			Confidence:     8,
			CreatedAt:      at,
		}).
		Append(models.HistoryEntry{
			Narrative:      "AI Agents",
			TokenName:      "Agent Swarm",
			Symbol:         "SWRM",
			MintAddress:    "Mint222",
			TxSignature:    "Sig222",
			MatchingTokens: []string{"GOAT", "ACT", "ZEREBRO"},
			Confidence:     9,
			CreatedAt:      at.Add(time.Hour),
		})
}

func roundTrip(t *testing.T, s Backend) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	want := sampleHistory()
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}

	// overwrite, not append
	shorter := models.HistoryData{Entries: want.Entries[:1]}
	require.NoError(t, s.Save(ctx, shorter))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())
}

func TestFileStore_RoundTrip(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "nested", "history.json"))
	roundTrip(t, s)
}

func TestFileStore_WritesIndentedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	s := NewFileStore(path)
	require.NoError(t, s.Save(context.Background(), models.HistoryData{}))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"entries": []}`, string(b))

	require.NoError(t, s.Save(context.Background(), sampleHistory()))
	b, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "\n  \"entries\"")
	assert.Contains(t, string(b), `"createdAt": "2025-03-01T12:30:00Z"`)
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).Load(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer s.Close()
	roundTrip(t, s)
}

// fakeUpstash mimics the Upstash REST GET/SET commands for a single key.
type fakeUpstash struct {
	mu    sync.Mutex
	value *string
	token string
}

func (f *fakeUpstash) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+f.token {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/get/"+HistoryKey:
		_ = json.NewEncoder(w).Encode(map[string]*string{"result": f.value})
	case r.Method == http.MethodPost && r.URL.Path == "/":
		var cmd []string
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil || len(cmd) != 3 || cmd[0] != "SET" || cmd[1] != HistoryKey {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"bad command"}`))
			return
		}
		f.value = &cmd[2]
		_, _ = w.Write([]byte(`{"result":"OK"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestUpstashStore_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(&fakeUpstash{token: "secret"})
	defer srv.Close()

	s, err := NewUpstashStore(srv.URL+"/", "secret")
	require.NoError(t, err)
	roundTrip(t, s)
}

func TestUpstashStore_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(&fakeUpstash{token: "secret"})
	defer srv.Close()

	s, err := NewUpstashStore(srv.URL, "wrong")
	require.NoError(t, err)

	_, err = s.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unauthorized")

	err = s.Save(context.Background(), sampleHistory())
	require.Error(t, err)
}

func TestNewUpstashStore_RequiresCredentials(t *testing.T) {
	_, err := NewUpstashStore("", "x")
	assert.Error(t, err)
	_, err = NewUpstashStore("https://example.upstash.io", "")
	assert.Error(t, err)
}

// fakeS3 serves path-style GetObject/PutObject for one bucket.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/")
	switch r.Method {
	case http.MethodPut:
		b, _ := io.ReadAll(r.Body)
		f.objects[key] = b
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		b, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3Store_RoundTrip(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s, err := NewS3Store(context.Background(), S3Options{
		Bucket:    "memeflux",
		Region:    "us-east-1",
		Endpoint:  srv.URL,
		AccessKey: "test",
		SecretKey: "test",
	})
	require.NoError(t, err)
	roundTrip(t, s)

	_, ok := fake.objects["memeflux/"+HistoryKey+".json"]
	assert.True(t, ok)
}

type failingStore struct {
	loadErr error
	saveErr error
}

func (f failingStore) Load(context.Context) (models.HistoryData, error) {
	return sampleHistory(), f.loadErr
}

func (f failingStore) Save(context.Context, models.HistoryData) error { return f.saveErr }

func TestResilient(t *testing.T) {
	tests := []struct {
		name     string
		store    failingStore
		wantLen  int
		wantSave bool
	}{
		{name: "healthy", store: failingStore{}, wantLen: 2},
		{name: "not found", store: failingStore{loadErr: ErrNotFound}, wantLen: 0},
		{name: "corrupt", store: failingStore{loadErr: errors.New("failed to decode history")}, wantLen: 0},
		{name: "save fails", store: failingStore{saveErr: errors.New("disk full")}, wantLen: 2, wantSave: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResilient(tt.store, discard)

			h, err := r.Load(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantLen, h.Len())

			err = r.Save(context.Background(), h)
			if tt.wantSave {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Resolve(t *testing.T) {
	tests := []struct {
		cfg  Config
		want string
	}{
		{Config{}, BackendFile},
		{Config{Backend: "auto", UpstashURL: "https://x"}, BackendFile},
		{Config{UpstashURL: "https://x", UpstashToken: "t"}, BackendUpstash},
		{Config{Backend: "SQLite", UpstashURL: "https://x", UpstashToken: "t"}, BackendSQLite},
		{Config{Backend: "postgres"}, BackendPostgres},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.cfg.Resolve(), "%+v", tt.cfg)
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(context.Background(), Config{Backend: "etcd"}, discard)
	assert.Error(t, err)
}

func TestNew_File(t *testing.T) {
	b, err := New(context.Background(), Config{Backend: "file", FilePath: filepath.Join(t.TempDir(), "h.json")}, discard)
	require.NoError(t, err)
	assert.Equal(t, BackendFile, b.Name())
	require.NoError(t, b.Close())
}
