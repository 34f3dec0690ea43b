package deepseek

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/memeflux/internal/ai"
	"github.com/songzhibin97/memeflux/internal/models"
)

func TestDeepSeekAnalyzer_Complete(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		want        string
		wantErr     bool
		rateLimited bool
	}{
		{
			name:   "ok",
			status: http.StatusOK,
			body:   `{"choices": [{"message": {"content": "[{\"name\": \"Dogs\"}]"}}]}`,
			want:   `[{"name": "Dogs"}]`,
		},
		{
			name:        "throttled",
			status:      http.StatusTooManyRequests,
			body:        `{"error": {"message": "slow down"}}`,
			wantErr:     true,
			rateLimited: true,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `oops`,
			wantErr: true,
		},
		{
			name:    "no choices",
			status:  http.StatusOK,
			body:    `{"choices": []}`,
			wantErr: true,
		},
		{
			name:    "error payload",
			status:  http.StatusOK,
			body:    `{"error": {"message": "bad model"}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got chatRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/chat/completions", r.URL.Path)
				assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			a := NewDeepSeekAnalyzer("key", "").WithEndpoint(srv.URL)
			out, err := a.Complete(context.Background(), "sys", "usr")

			assert.Equal(t, defaultModel, got.Model)
			require.Len(t, got.Messages, 2)
			assert.Equal(t, "system", got.Messages[0].Role)

			if tt.wantErr {
				require.Error(t, err)
				if tt.rateLimited {
					assert.ErrorIs(t, err, ai.ErrRateLimited)
				} else {
					assert.NotErrorIs(t, err, ai.ErrRateLimited)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestDeepSeekAnalyzer_DiscoverNarratives(t *testing.T) {
	apiKey := os.Getenv("DEEPSEEK_API_KEY")
	if testing.Short() || apiKey == "" {
		t.Skip("skipping live DeepSeek test")
	}

	oracle := ai.NewCompletionOracle(NewDeepSeekAnalyzer(apiKey, ""))
	tokens := []models.TokenData{
		{Address: "a1", Name: "Dogwifhat", Symbol: "WIF"},
		{Address: "a2", Name: "Bonk", Symbol: "BONK"},
		{Address: "a3", Name: "Shiba", Symbol: "SHIB"},
		{Address: "a4", Name: "Popcat", Symbol: "POPCAT"},
	}

	narratives, err := oracle.DiscoverNarratives(context.Background(), tokens)
	assert.NoError(t, err)
	for _, n := range narratives {
		assert.GreaterOrEqual(t, n.Confidence, 1)
		assert.LessOrEqual(t, n.Confidence, 10)
	}
}
