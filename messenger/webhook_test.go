package messenger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"syscall"
	"testing"
	"time"

	"caloriebot"
	"caloriebot/messenger"
	"caloriebot/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockDoer struct {
	calls  int
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockDoer) Do(req *http.Request) (*http.Response, error) {
	m.calls++
	return m.doFunc(req)
}

func response(code int, body string) *http.Response {
	return &http.Response{StatusCode: code, Body: io.NopCloser(bytes.NewBufferString(body))}
}

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func TestNewWebhookClient(t *testing.T) {
	client := messenger.NewWebhookClient("http://chat.example.com/webhook", &mockDoer{})
	require.NotNil(t, client, "expected non-nil client")
}

func TestSendMessage(t *testing.T) {
	tests := []struct {
		name      string
		doFunc    func(n *int) func(req *http.Request) (*http.Response, error)
		wantCalls int
		wantCode  int
		wantErr   error
	}{
		{
			name: "success",
			doFunc: func(n *int) func(req *http.Request) (*http.Response, error) {
				return func(req *http.Request) (*http.Response, error) {
					return response(http.StatusOK, "ok"), nil
				}
			},
			wantCalls: 1,
		},
		{
			name: "bad request is not retried",
			doFunc: func(n *int) func(req *http.Request) (*http.Response, error) {
				return func(req *http.Request) (*http.Response, error) {
					return response(http.StatusBadRequest, "bad request"), nil
				}
			},
			wantCalls: 1,
			wantCode:  http.StatusBadRequest,
		},
		{
			name: "connection reset then success",
			doFunc: func(n *int) func(req *http.Request) (*http.Response, error) {
				return func(req *http.Request) (*http.Response, error) {
					*n++
					if *n < 3 {
						return nil, syscall.ECONNRESET
					}
					return response(http.StatusOK, "ok"), nil
				}
			},
			wantCalls: 3,
		},
		{
			name: "server errors exhaust attempts",
			doFunc: func(n *int) func(req *http.Request) (*http.Response, error) {
				return func(req *http.Request) (*http.Response, error) {
					return response(http.StatusBadGateway, "upstream"), nil
				}
			},
			wantCalls: retry.MaxAttempts,
			wantCode:  http.StatusBadGateway,
		},
		{
			name: "do error",
			doFunc: func(n *int) func(req *http.Request) (*http.Response, error) {
				return func(req *http.Request) (*http.Response, error) {
					return nil, errors.New("permission denied")
				}
			},
			wantCalls: 1,
			wantErr:   errors.New("permission denied"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n int
			doer := &mockDoer{doFunc: tt.doFunc(&n)}
			client := messenger.NewWebhookClient("http://example.com/webhook", doer,
				messenger.WithRetry(retry.New("messenger-test", retry.WithSleep(noSleep))))

			err := client.SendMessage(context.Background(), "42", "Привет")
			assert.Equal(t, tt.wantCalls, doer.calls)

			switch {
			case tt.wantCode != 0:
				var se *caloriebot.StatusError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, tt.wantCode, se.StatusCode)
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestSendMessage_Payload(t *testing.T) {
	var got map[string]string
	doer := &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
		return response(http.StatusOK, ""), nil
	}}

	err := messenger.NewWebhookClient("http://example.com/webhook", doer).SendMessage(context.Background(), "42", "Привет")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"subject_id": "42", "text": "Привет"}, got)
}

func TestWriterMessenger(t *testing.T) {
	var buf strings.Builder
	m := messenger.NewWriterMessenger(&buf)
	require.NoError(t, m.SendMessage(context.Background(), "cli", "hello"))
	assert.Equal(t, "[cli]\nhello\n\n", buf.String())
}
