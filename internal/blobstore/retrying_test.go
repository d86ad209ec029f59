package blobstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockUploadResponse struct {
	url string
	err error
}

type mockGetResponse struct {
	data []byte
	err  error
}

// mockStore returns scripted responses and counts calls.
type mockStore struct {
	uploadResponses []mockUploadResponse
	getResponses    []mockGetResponse
	uploadCalls     int
	getCalls        int
}

func (m *mockStore) Upload(ctx context.Context, key string, data []byte, mime string) (string, error) {
	i := m.uploadCalls
	m.uploadCalls++
	if i >= len(m.uploadResponses) {
		i = len(m.uploadResponses) - 1
	}
	r := m.uploadResponses[i]
	return r.url, r.err
}

func (m *mockStore) Get(ctx context.Context, url string) ([]byte, error) {
	i := m.getCalls
	m.getCalls++
	if i >= len(m.getResponses) {
		i = len(m.getResponses) - 1
	}
	r := m.getResponses[i]
	return r.data, r.err
}

func fastConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Multiplier:  2.0,
	}
}

func TestRetryingBasicSuccess(t *testing.T) {
	mock := &mockStore{
		uploadResponses: []mockUploadResponse{{url: "mem://k", err: nil}},
		getResponses:    []mockGetResponse{{data: []byte("d"), err: nil}},
	}
	r := NewRetrying(mock, fastConfig())

	url, err := r.Upload(context.Background(), "k", []byte("d"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "mem://k", url)
	assert.Equal(t, 1, mock.uploadCalls)

	data, err := r.Get(context.Background(), "mem://k")
	require.NoError(t, err)
	assert.Equal(t, []byte("d"), data)
	assert.Equal(t, 1, mock.getCalls)
}

func TestRetryingRetriesTransientErrors(t *testing.T) {
	mock := &mockStore{
		uploadResponses: []mockUploadResponse{
			{err: fmt.Errorf("connection refused")},
			{err: fmt.Errorf("connection refused")},
			{url: "mem://k"},
		},
	}
	r := NewRetrying(mock, fastConfig())

	url, err := r.Upload(context.Background(), "k", nil, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "mem://k", url)
	assert.Equal(t, 3, mock.uploadCalls)
}

func TestRetryingStopsOnNonRetryable(t *testing.T) {
	mock := &mockStore{
		getResponses: []mockGetResponse{{err: ErrNotFound}},
	}
	r := NewRetrying(mock, fastConfig())

	_, err := r.Get(context.Background(), "mem://missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, mock.getCalls)
}

func TestRetryingExhaustsAttempts(t *testing.T) {
	mock := &mockStore{
		uploadResponses: []mockUploadResponse{{err: fmt.Errorf("throttling: slow down")}},
	}
	r := NewRetrying(mock, fastConfig())

	_, err := r.Upload(context.Background(), "k", nil, "image/png")
	require.Error(t, err)
	assert.Equal(t, 3, mock.uploadCalls)
}
