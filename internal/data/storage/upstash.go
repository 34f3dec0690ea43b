package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/songzhibin97/memeflux/internal/models"
	"github.com/songzhibin97/memeflux/internal/utils/request"
)

// UpstashStore keeps the history under one key of an Upstash Redis REST endpoint.
type UpstashStore struct {
	url        string
	token      string
	httpClient *resty.Client
}

type upstashResponse struct {
	Result *string `json:"result"`
	Error  string  `json:"error"`
}

func NewUpstashStore(url, token string) (*UpstashStore, error) {
	if url == "" || token == "" {
		return nil, fmt.Errorf("upstash url and token are required")
	}
	return &UpstashStore{
		url:        strings.TrimRight(url, "/"),
		token:      token,
		httpClient: request.New(10*time.Second, 0),
	}, nil
}

func (s *UpstashStore) Name() string { return BackendUpstash }

func (s *UpstashStore) Load(ctx context.Context) (models.HistoryData, error) {
	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetAuthToken(s.token).
		Get(s.url + "/get/" + HistoryKey)
	if err != nil {
		return models.HistoryData{}, fmt.Errorf("failed to execute request: %w", err)
	}

	result, err := s.parse(resp)
	if err != nil {
		return models.HistoryData{}, err
	}
	if result.Result == nil || *result.Result == "" {
		return models.HistoryData{}, ErrNotFound
	}
	return decode([]byte(*result.Result))
}

func (s *UpstashStore) Save(ctx context.Context, h models.HistoryData) error {
	payload, err := encode(h)
	if err != nil {
		return err
	}

	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetAuthToken(s.token).
		SetHeader("Content-Type", "application/json").
		SetBody([]string{"SET", HistoryKey, string(payload)}).
		Post(s.url)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}

	_, err = s.parse(resp)
	return err
}

func (s *UpstashStore) parse(resp *resty.Response) (*upstashResponse, error) {
	var result upstashResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil && resp.StatusCode() == http.StatusOK {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("upstash error: %s", result.Error)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode())
	}
	return &result, nil
}

func (s *UpstashStore) Close() error { return nil }
