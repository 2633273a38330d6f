package tableau

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const exportCSV = "Conversation Id,Message Sent Time,Sent By,Message Type,Skill,TEXT,Message Id,AGENT NAME ,Customer Name\n" +
	"c1,2025-05-01 10:00:00,Consumer,Normal Message,,hello,m1,,Jane\n" +
	"c1,2025-05-01 10:00:05,Agent,Normal Message,GPT_Doctors,hi there,m2,Sam Agent,Jane\n"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/3.16/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"credentials":{"token":"tok-1","site":{"id":"site-1"}}}`)
	})
	mux.HandleFunc("/api/3.16/sites/site-1/workbooks", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("X-Tableau-Auth") != "tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"workbooks":{"workbook":[{"id":"wb-1","name":"Dept Tables"}]}}`)
	})
	mux.HandleFunc("/api/3.16/sites/site-1/workbooks/wb-1/views", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"views":{"view":[{"id":"v-1","name":"GPT_Doctors"},{"id":"v-2","name":"Other"}]}}`)
	})
	mux.HandleFunc("/api/3.16/sites/site-1/views/v-1/data", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("vf_From") != "2025-05-01" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("vf_ActionDate") != "2025-05-01:2025-05-01" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, exportCSV)
	})
	mux.HandleFunc("/api/3.16/auth/signout", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return httptest.NewServer(mux)
}

func newTestClient(baseURL string) *Client {
	return &Client{
		BaseURL:      baseURL,
		APIVersion:   "3.16",
		TokenName:    "audit",
		TokenValue:   "secret",
		WorkbookName: "Dept Tables",
		HTTPClient:   &http.Client{Timeout: 5 * time.Second},
		MaxRetryTime: 2 * time.Second,
		Logger:       zerolog.Nop(),
	}
}

func TestFetchEvents(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	c := newTestClient(srv.URL)
	events, err := c.FetchEvents(context.Background(), "GPT_Doctors", "2025-05-01")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].ConversationID != "c1" || events[1].AgentName != "Sam Agent" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestFetchEventsViewNotFound(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.FetchEvents(context.Background(), "Missing_View", "2025-05-01")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fe.Op != "view lookup" {
		t.Fatalf("unexpected op: %s", fe.Op)
	}
}

func TestFetchEventsAuthFailureIsPermanent(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.FetchEvents(context.Background(), "GPT_Doctors", "2025-05-01")
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt on 401, got %d", calls)
	}
}
