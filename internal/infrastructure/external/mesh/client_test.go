package mesh

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/parent"
	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/shared"
	"github.com/mesh-hub/mesh-schedule-bot/pkg/timeutil"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultClientConfig(srv.URL)
	cfg.TokenTTL = 24 * time.Hour
	return NewClient(cfg)
}

func testChild() *parent.Child {
	return &parent.Child{
		StudentID:        1001,
		ParentTelegramID: 42,
		PersonID:         "abc-def-123",
		FirstName:        "Мария",
		LastName:         "Иванова",
		ClassName:        "5А",
	}
}

func TestAuthenticate_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/signin", r.URL.Path)

		login, password, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "parent@mos.ru", login)
		assert.Equal(t, "secret", password)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-123","expires_at":"2026-03-01T10:00:00+03:00"}`))
	})

	token, expiresAt, err := client.Authenticate(context.Background(), parent.Credentials{
		Login:    "parent@mos.ru",
		Password: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
	want := timeutil.Date(2026, 3, 1).Add(10 * time.Hour)
	assert.True(t, want.Equal(expiresAt), "want %s, got %s", want, expiresAt)
}

func TestAuthenticate_MissingExpiryFallsBackToTTL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"tok-123"}`))
	})

	before := time.Now()
	_, expiresAt, err := client.Authenticate(context.Background(), parent.Credentials{Login: "a", Password: "b"})
	require.NoError(t, err)

	assert.WithinDuration(t, before.Add(24*time.Hour), expiresAt, time.Minute)
}

func TestAuthenticate_RejectedCredentials(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})

		_, _, err := client.Authenticate(context.Background(), parent.Credentials{Login: "a", Password: "wrong"})
		assert.ErrorIs(t, err, shared.ErrAuthenticationFailed, "status %d", status)
	}
}

func TestAuthenticate_PortalDownIsNotWrongPassword(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"garbage body": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>gateway timeout</html>`))
		},
		"empty token": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"access_token":""}`))
		},
	}

	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, handler)

			_, _, err := client.Authenticate(context.Background(), parent.Credentials{Login: "a", Password: "b"})
			require.Error(t, err)
			assert.ErrorIs(t, err, shared.ErrUnavailable)
			assert.NotErrorIs(t, err, shared.ErrAuthenticationFailed)
		})
	}
}

func TestQuerySchedule_FiltersSortsAndNumbers(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/eventcalendar/v1/api/events", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.Equal(t, "abc-def-123", r.URL.Query().Get("person_ids"))
		assert.Equal(t, "2026-02-23", r.URL.Query().Get("begin_date"))
		assert.Equal(t, "2026-02-23", r.URL.Query().Get("end_date"))

		w.Write([]byte(`{"response":[
			{"subject_name":"История","start_at":"2026-02-23T09:30:00+03:00","finish_at":"2026-02-23T10:15:00+03:00","source":"PLAN","room_number":"204"},
			{"subject_name":"Кружок","start_at":"2026-02-23T15:00:00+03:00","finish_at":"2026-02-23T16:00:00+03:00","source":"EC"},
			{"subject":{"subject_name":"Математика"},"start_at":"2026-02-23T08:30:00+03:00","finish_at":"2026-02-23T09:15:00+03:00","source":"PLAN","lesson_type":"Контрольная работа","teachers":[{"last_name":"Петрова","first_name":"Анна"}]},
			{"subject_name":"Сломанный","start_at":"not-a-time","source":"PLAN"}
		]}`))
	})

	lessons, err := client.QuerySchedule(context.Background(), "tok-123", testChild(), timeutil.Date(2026, 2, 23))
	require.NoError(t, err)
	require.Len(t, lessons, 2)

	assert.Equal(t, 1, lessons[0].Number)
	assert.Equal(t, "Математика", lessons[0].Subject)
	assert.Equal(t, "08:30", lessons[0].StartTime)
	assert.Equal(t, "09:15", lessons[0].EndTime)
	assert.Equal(t, "Петрова Анна", lessons[0].Teacher)
	assert.Equal(t, "Контрольная работа", lessons[0].Kind)

	assert.Equal(t, 2, lessons[1].Number)
	assert.Equal(t, "История", lessons[1].Subject)
	assert.Equal(t, "204", lessons[1].Room)
}

func TestQuerySchedule_EmptyDayIsNotAnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":[]}`))
	})

	lessons, err := client.QuerySchedule(context.Background(), "tok", testChild(), timeutil.Date(2026, 2, 23))
	require.NoError(t, err)
	assert.Empty(t, lessons)
}

func TestQuerySchedule_ErrorClassification(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"expired token", http.StatusUnauthorized, "", shared.ErrAuthenticationFailed},
		{"forbidden", http.StatusForbidden, "", shared.ErrAuthenticationFailed},
		{"rate limited", http.StatusTooManyRequests, "", shared.ErrUnavailable},
		{"server error", http.StatusBadGateway, "", shared.ErrUnavailable},
		{"unexpected status", http.StatusConflict, "", shared.ErrInvalidResponse},
		{"garbage body", http.StatusOK, `<html>not json</html>`, shared.ErrInvalidResponse},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				if tc.body != "" {
					w.Write([]byte(tc.body))
				}
			})

			_, err := client.QuerySchedule(context.Background(), "tok", testChild(), timeutil.Date(2026, 2, 23))
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}
