package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTPInvalidatorPostsKey(t *testing.T) {
	var got invalidationRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	inv := NewHTTPInvalidator(srv.URL+"/", "secret", time.Second)
	require.NoError(t, inv.Invalidate(context.Background(), "gymapp_v2_manual_workouts"))
	require.Equal(t, "gymapp_v2_manual_workouts", got.Key)
	require.Equal(t, "Bearer secret", auth)
}

func TestHTTPInvalidatorReportsFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewHTTPInvalidator(srv.URL, "", time.Second).Invalidate(context.Background(), "k")
	var invErr *InvalidationError
	require.True(t, errors.As(err, &invErr))
	require.Equal(t, http.StatusServiceUnavailable, invErr.Status)
}

type recordingInvalidator struct {
	keys chan string
}

func (r recordingInvalidator) Invalidate(_ context.Context, key string) error {
	r.keys <- key
	return nil
}

func TestListenerDispatchesAsynchronously(t *testing.T) {
	rec := recordingInvalidator{keys: make(chan string, 1)}
	Listener(rec, time.Second, nil)("gymapp_v2_app_state")

	select {
	case key := <-rec.keys:
		require.Equal(t, "gymapp_v2_app_state", key)
	case <-time.After(2 * time.Second):
		t.Fatal("invalidation was not dispatched")
	}
}
