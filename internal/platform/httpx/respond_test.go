package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestJSONSetsContentType(t *testing.T) {
	rr := httptest.NewRecorder()
	JSON(rr, http.StatusCreated, map[string]string{"id": "x"})

	if rr.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("unexpected content type: %q", got)
	}
}

func TestProblemUsesProblemMediaType(t *testing.T) {
	rr := httptest.NewRecorder()
	Problem(rr, http.StatusForbidden, "Forbidden", "no scope")

	if got := rr.Header().Get("Content-Type"); got != "application/problem+json" {
		t.Fatalf("unexpected content type: %q", got)
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var payload struct {
		Name string `json:"name"`
	}
	body := strings.NewReader(`{"name":"x","nmae":"typo"}`)
	req := httptest.NewRequest(http.MethodPost, "/", body)

	if err := DecodeJSON(req, &payload); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
}

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("school: %w", ErrNotFound), http.StatusNotFound},
		{ErrDuplicate, http.StatusConflict},
		{ErrConflict, http.StatusConflict},
		{ErrValidation, http.StatusBadRequest},
		{ErrForbidden, http.StatusForbidden},
		{ErrUnauthorized, http.StatusUnauthorized},
		{errors.New("anything else"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)
		if rr.Code != tc.want {
			t.Errorf("RespondError(%v) status = %d, want %d", tc.err, rr.Code, tc.want)
		}
		var problem ProblemDetail
		if err := json.NewDecoder(rr.Body).Decode(&problem); err != nil {
			t.Fatalf("decode problem: %v", err)
		}
		if problem.Status != tc.want {
			t.Errorf("problem status = %d, want %d", problem.Status, tc.want)
		}
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, errors.New("pq: connection refused"))

	var problem ProblemDetail
	if err := json.NewDecoder(rr.Body).Decode(&problem); err != nil {
		t.Fatalf("decode problem: %v", err)
	}
	if problem.Detail != "" {
		t.Fatalf("internal errors must not leak detail, got %q", problem.Detail)
	}
}
