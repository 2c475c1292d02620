package forms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	c, err := NewClient(Config{BaseURL: ts.URL, Token: "tok", PageSize: 2})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClient_MissingToken(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "http://localhost"})
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("err = %v, want ErrMissingToken", err)
	}
}

func TestListForms_Paginates(t *testing.T) {
	var pages []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Path != "/forms" {
			t.Errorf("path = %s", r.URL.Path)
		}
		p := r.URL.Query().Get("page")
		pages = append(pages, p)
		switch p {
		case "1":
			fmt.Fprint(w, `{"page_count":2,"items":[{"id":"a","title":"A"},{"id":"b","title":"B"}]}`)
		case "2":
			fmt.Fprint(w, `{"page_count":2,"items":[{"id":"c","title":"C"}]}`)
		default:
			t.Errorf("unexpected page %s", p)
		}
	})

	got, err := c.ListForms(context.Background())
	if err != nil {
		t.Fatalf("ListForms: %v", err)
	}
	if len(got) != 3 || got[2].ID != "c" {
		t.Fatalf("forms = %+v", got)
	}
	if len(pages) != 2 {
		t.Errorf("requested pages %v, want [1 2]", pages)
	}
}

func TestListResponses_Limit(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		p, _ := strconv.Atoi(r.URL.Query().Get("page"))
		fmt.Fprintf(w, `{"page_count":5,"items":[{"response_id":"r%d-1","answers":[]},{"response_id":"r%d-2","answers":[]}]}`, p, p)
	})

	got, err := c.ListResponses(context.Background(), "F1", 3)
	if err != nil {
		t.Fatalf("ListResponses: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[2].ID != "r2-1" {
		t.Errorf("third response = %s, want r2-1", got[2].ID)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestGetForm_FlatFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forms/F1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"id":"F1","title":"Kurs","fields":[
			{"id":"g","title":"Gruppe","type":"group","properties":{"fields":[
				{"id":"q1","title":"Name","type":"short_text"}
			]}},
			{"id":"q2","title":"Hobby","type":"multiple_choice","properties":{"choices":[{"id":"c1","label":"Malen"}]}}
		]}`)
	})

	f, err := c.GetForm(context.Background(), "F1")
	if err != nil {
		t.Fatalf("GetForm: %v", err)
	}
	flat := f.FlatFields()
	var ids []string
	for _, fd := range flat {
		ids = append(ids, fd.ID)
	}
	if fmt.Sprint(ids) != "[g q1 q2]" {
		t.Errorf("flat ids = %v", ids)
	}
	if flat[2].Properties.Choices[0].Label != "Malen" {
		t.Errorf("choices not decoded: %+v", flat[2].Properties)
	}
}

func TestGetJSON_StatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	})

	_, err := c.ListForms(context.Background())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d", se.StatusCode)
	}
}

func TestGetJSON_NoRetry(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})

	if _, err := c.GetForm(context.Background(), "F1"); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
