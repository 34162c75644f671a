package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"consistentkv/internal/transport"
)

func TestSetPostsTypeKeyValue(t *testing.T) {
	var got transport.ClientRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		w.Write([]byte("success"))
	}))
	defer srv.Close()

	c := New(srv.Listener.Addr().String(), time.Second)
	reply, err := c.Set(context.Background(), "a", 7)
	if err != nil {
		t.Fatal(err)
	}
	if reply != "success" {
		t.Fatalf("reply = %q, want success", reply)
	}
	if got != (transport.ClientRequest{Type: "set", Key: "a", Value: 7}) {
		t.Fatalf("request body = %+v", got)
	}
}

func TestGetReturnsReplyVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("a:7"))
	}))
	defer srv.Close()

	c := New(srv.Listener.Addr().String(), time.Second)
	reply, err := c.Get(context.Background(), "a")
	if err != nil || reply != "a:7" {
		t.Fatalf("reply = (%q, %v), want (a:7, nil)", reply, err)
	}
}

func TestNonOKStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad request"))
	}))
	defer srv.Close()

	c := New(srv.Listener.Addr().String(), time.Second)
	if _, err := c.Get(context.Background(), "a"); err == nil {
		t.Fatal("expected an error for a 400 response")
	}
}
