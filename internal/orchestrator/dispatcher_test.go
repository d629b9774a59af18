// Package orchestrator - Test Dispatcher: payload, retry một lần và phản hồi non-2xx.
package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	playbooksvc "playbook_engine/internal/api/playbook/service"
)

func sampleNotification() playbooksvc.StepCompletionNotification {
	confidence := 0.92
	return playbooksvc.StepCompletionNotification{
		RunID:          "68a1f00000000000000000aa",
		StepID:         "verify-payment",
		StepSequence:   3,
		OrganizationID: "68a1f00000000000000000bb",
		Outputs:        map[string]interface{}{"amount": 12000.0},
		AIConfidence:   &confidence,
	}
}

func TestNewDispatcher_EmptyURLDisabled(t *testing.T) {
	assert.Nil(t, NewDispatcher("", 1000, true), "URL rỗng phải trả về nil (dispatch disabled)")
}

func TestNotifyStepCompletion_PostsJSONPayload(t *testing.T) {
	var got playbooksvc.StepCompletionNotification
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewDispatcher(server.URL, 2000, false)
	require.NotNil(t, d)

	err := d.NotifyStepCompletion(context.Background(), sampleNotification())
	require.NoError(t, err)
	assert.Equal(t, "verify-payment", got.StepID)
	assert.Equal(t, 3, got.StepSequence)
	require.NotNil(t, got.AIConfidence)
	assert.InDelta(t, 0.92, *got.AIConfidence, 0.0001)
}

func TestNotifyStepCompletion_Non2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	d := NewDispatcher(server.URL, 2000, false)
	err := d.NotifyStepCompletion(context.Background(), sampleNotification())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestNotifyStepCompletion_RetriesOnce(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewDispatcher(server.URL, 2000, true)
	err := d.NotifyStepCompletion(context.Background(), sampleNotification())
	require.NoError(t, err, "lần retry thành công thì tổng thể phải thành công")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestNotifyStepCompletion_NoRetryWhenDisabled(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	d := NewDispatcher(server.URL, 2000, false)
	err := d.NotifyStepCompletion(context.Background(), sampleNotification())
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "retry tắt thì chỉ gọi một lần")
}
