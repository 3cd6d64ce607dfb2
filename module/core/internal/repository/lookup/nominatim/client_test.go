package nominatim

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestReverseGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reverse" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("format") != "jsonv2" || q.Get("lat") != "-6.2088" || q.Get("lon") != "106.8456" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if ua := r.Header.Get("User-Agent"); ua != "tracking-test" {
			t.Errorf("unexpected user agent %q", ua)
		}
		_, _ = w.Write([]byte(`{"display_name":"Monas, Jakarta, Indonesia"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tracking-test", time.Second)
	addr, ok := c.ReverseGeocode(context.Background(), -6.2088, 106.8456)
	if !ok || addr != "Monas, Jakarta, Indonesia" {
		t.Errorf("unexpected result %q %v", addr, ok)
	}
}

func TestReverseGeocode_DefaultUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != DefaultUserAgent {
			t.Errorf("expected default user agent, got %q", ua)
		}
		_, _ = w.Write([]byte(`{"display_name":"somewhere"}`))
	}))
	defer srv.Close()

	if _, ok := NewClient(srv.URL, "", 0).ReverseGeocode(context.Background(), 0, 0); !ok {
		t.Error("expected an address")
	}
}

func TestReverseGeocode_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"rate limited", http.StatusTooManyRequests, ``},
		{"provider error", http.StatusOK, `{"error":"Unable to geocode"}`},
		{"empty address", http.StatusOK, `{}`},
		{"bad json", http.StatusOK, `<html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			if _, ok := NewClient(srv.URL, "", time.Second).ReverseGeocode(context.Background(), 1, 2); ok {
				t.Error("expected no address")
			}
		})
	}
}

func TestReverseGeocode_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	if _, ok := NewClient(url, "", time.Second).ReverseGeocode(context.Background(), 1, 2); ok {
		t.Error("expected no address")
	}
}
