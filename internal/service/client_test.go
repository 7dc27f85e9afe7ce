package service_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/CZERTAINLY/golinter/internal/model"
	"github.com/CZERTAINLY/golinter/internal/service"

	"github.com/stretchr/testify/require"
)

func TestNewReportRepoUploader(t *testing.T) {
	t.Parallel()

	var testCases = []struct {
		scenario string
		given    string
		ok       bool
	}{
		{scenario: "host", given: "http://localhost:8080", ok: true},
		{scenario: "trailing slash", given: "https://repo.example.com/", ok: true},
		{scenario: "no scheme", given: "localhost:8080"},
		{scenario: "path", given: "http://localhost:8080/api"},
		{scenario: "garbage", given: "://"},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			_, err := service.NewReportRepoUploader(tc.given)
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestReportRepoUploader(t *testing.T) {
	t.Parallel()

	var testCases = []struct {
		scenario    string
		status      int
		contentType string
		body        string
		then        string
	}{
		{
			scenario:    "created",
			status:      http.StatusCreated,
			contentType: "application/json",
			body:        `{"id":"42"}`,
		},
		{
			scenario: "accepted without body",
			status:   http.StatusAccepted,
		},
		{
			scenario:    "conflict",
			status:      http.StatusConflict,
			contentType: "application/problem+json",
			body:        `{"detail":"report already exists"}`,
			then:        "status code: 409, detail: report already exists",
		},
		{
			scenario:    "bad request without problem",
			status:      http.StatusBadRequest,
			contentType: "text/plain",
			body:        "nope",
			then:        "expected `application/problem+json` content type, got: text/plain",
		},
		{
			scenario: "server error",
			status:   http.StatusInternalServerError,
			body:     "boom",
			then:     "unknown error, status: 500, body: boom",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			var got model.Report
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, http.MethodPost, r.Method)
				require.Equal(t, "/api/v1/reports", r.URL.Path)
				require.Equal(t, "application/json", r.Header.Get("Content-Type"))
				if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
					w.WriteHeader(http.StatusTeapot)
					return
				}
				if tc.contentType != "" {
					w.Header().Set("Content-Type", tc.contentType)
				}
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			t.Cleanup(srv.Close)

			u, err := service.NewReportRepoUploader(srv.URL)
			require.NoError(t, err)
			err = u.Upload(t.Context(), testReport())
			if tc.then == "" {
				require.NoError(t, err)
			} else {
				require.EqualError(t, err, tc.then)
			}
			require.Equal(t, testReport().RunID, got.RunID)
		})
	}
}
