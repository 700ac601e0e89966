package gis

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestEncodeQuery_PercentEncodesReservedAndCyrillic(t *testing.T) {
	enc := EncodeQuery("Москва", "кафе & ресторан")

	if !strings.Contains(enc, "%26") {
		t.Fatalf("encoded query %q should percent-encode '&'", enc)
	}
	if !strings.Contains(enc, "%D0") {
		t.Fatalf("encoded query %q should percent-encode Cyrillic octets", enc)
	}
	if strings.ContainsAny(enc, " &") {
		t.Fatalf("encoded query %q contains raw reserved characters", enc)
	}
}

func TestItemsURL_Shape(t *testing.T) {
	c := NewClient("https://catalog.example.com/3.0", "secret-key", 0)
	u := c.ItemsURL(EncodeQuery("Москва", "кафе"))

	for _, want := range []string{
		"https://catalog.example.com/3.0/items?q=",
		"type=branch",
		"page_size=10",
		"page=1",
		"key=secret-key",
	} {
		if !strings.Contains(u, want) {
			t.Errorf("URL %q missing %q", u, want)
		}
	}
}

func TestFetchItems_OK(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"result":{"items":[]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", time.Second)
	body, err := c.FetchItems(context.Background(), EncodeQuery("city", "text"))
	if err != nil {
		t.Fatalf("FetchItems: %v", err)
	}
	if string(body) != `{"result":{"items":[]}}` {
		t.Fatalf("body = %s", body)
	}
	for _, want := range []string{"q=city+text", "type=branch", "page_size=10", "page=1", "key=k"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("raw query %q missing %q", gotQuery, want)
		}
	}
}

func TestFetchItems_NonOKStatusIsStatusError(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", status)
		}))

		c := NewClient(srv.URL, "k", time.Second)
		_, err := c.FetchItems(context.Background(), "q")
		srv.Close()

		var se *StatusError
		if !errors.As(err, &se) {
			t.Fatalf("status %d: err = %v; want *StatusError", status, err)
		}
		if se.Code != status {
			t.Fatalf("StatusError.Code = %d; want %d", se.Code, status)
		}
	}
}

func TestFetchItems_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := NewClient(srv.URL, "k", time.Second)
	if _, err := c.FetchItems(context.Background(), "q"); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestFetchItems_ContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewClient(srv.URL, "k", 0)
	if _, err := c.FetchItems(ctx, "q"); err == nil {
		t.Fatal("expected context deadline error")
	}
}

func TestRedactKey(t *testing.T) {
	in := "https://x/items?q=a&type=branch&key=topsecret"
	got := RedactKey(in)
	if strings.Contains(got, "topsecret") {
		t.Fatalf("key leaked: %q", got)
	}
	if !strings.Contains(got, "key=***") {
		t.Fatalf("key not masked: %q", got)
	}
	// key in the middle of the query
	if got := RedactKey("https://x/items?key=s&page=1"); strings.Contains(got, "key=s&") {
		t.Fatalf("mid-query key leaked: %q", got)
	}
}
