package client

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

const listingJSON = `{"data":[{"sonarrSeriesId":1,"title":"Severance"}],"total":1}`

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, _ = w.Write(data)
	if err := w.Close(); err != nil {
		t.Fatalf("gzip: %v", err)
	}
	return buf.Bytes()
}

func brotliBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	_, _ = w.Write(data)
	if err := w.Close(); err != nil {
		t.Fatalf("brotli: %v", err)
	}
	return buf.Bytes()
}

func zstdBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	_, _ = w.Write(data)
	if err := w.Close(); err != nil {
		t.Fatalf("zstd: %v", err)
	}
	return buf.Bytes()
}

func TestCompressionTransport_Decodes(t *testing.T) {
	payload := []byte(listingJSON)

	tests := []struct {
		name     string
		encoding string
		body     []byte
	}{
		{name: "gzip", encoding: "gzip", body: gzipBytes(t, payload)},
		{name: "brotli", encoding: "br", body: brotliBytes(t, payload)},
		{name: "zstd", encoding: "zstd", body: zstdBytes(t, payload)},
		{name: "identity", encoding: "", body: payload},
		{name: "comma list uses last coding", encoding: "identity, gzip", body: gzipBytes(t, payload)},
		{name: "whitespace and case", encoding: "  GZIP ", body: gzipBytes(t, payload)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("Accept-Encoding"); got != acceptEncoding {
					t.Errorf("Expected Accept-Encoding %q, got %q", acceptEncoding, got)
				}
				if tt.encoding != "" {
					w.Header().Set("Content-Encoding", tt.encoding)
				}
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write(tt.body)
			}))
			defer server.Close()

			httpClient := &http.Client{Transport: newCompressionTransport(nil)}
			resp, err := httpClient.Get(server.URL)
			if err != nil {
				t.Fatalf("Failed to make request: %v", err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				t.Fatalf("Failed to read response body: %v", err)
			}
			if !bytes.Equal(body, payload) {
				t.Errorf("Expected body %q, got %q", payload, body)
			}
			if resp.Header.Get("Content-Encoding") != "" {
				t.Errorf("Expected Content-Encoding header to be removed, got %q", resp.Header.Get("Content-Encoding"))
			}
		})
	}
}

func TestCompressionTransport_UnknownEncodingPassesThrough(t *testing.T) {
	raw := []byte("opaque")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "compress")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(raw)
	}))
	defer server.Close()

	httpClient := &http.Client{Transport: newCompressionTransport(nil)}
	resp, err := httpClient.Get(server.URL)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !bytes.Equal(body, raw) {
		t.Errorf("Expected untouched body %q, got %q", raw, body)
	}
	if resp.Header.Get("Content-Encoding") != "compress" {
		t.Errorf("Expected Content-Encoding to be preserved, got %q", resp.Header.Get("Content-Encoding"))
	}
}

func TestCompressionTransport_PreservesCallerAcceptEncoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept-Encoding"); got != "gzip" {
			t.Errorf("Expected caller Accept-Encoding to be kept, got %q", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	req.Header.Set("Accept-Encoding", "gzip")

	httpClient := &http.Client{Transport: newCompressionTransport(nil)}
	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	resp.Body.Close()
}

func TestCompressionTransport_DoesNotMutateRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	req, _ := http.NewRequest(http.MethodPatch, server.URL, nil)
	httpClient := &http.Client{Transport: newCompressionTransport(nil)}
	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	resp.Body.Close()

	if req.Header.Get("Accept-Encoding") != "" {
		t.Errorf("Expected original request headers untouched, got Accept-Encoding %q", req.Header.Get("Accept-Encoding"))
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", resp.StatusCode)
	}
}

func TestOutermostEncoding(t *testing.T) {
	tests := []struct {
		header   string
		expected string
	}{
		{"", ""},
		{"gzip", "gzip"},
		{"GZIP", "gzip"},
		{" br ", "br"},
		{"gzip, br", "br"},
		{"deflate,zstd", "zstd"},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			if got := outermostEncoding(tt.header); got != tt.expected {
				t.Errorf("outermostEncoding(%q) = %q, expected %q", tt.header, got, tt.expected)
			}
		})
	}
}
