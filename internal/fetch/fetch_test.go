// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/sim-agent/internal/httputil"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

func TestFetch(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte("%PDF-1.7\nbody"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "pdfs", "10.1000_x.pdf")
	d := &Downloader{Client: srv.Client(), UserAgent: "sim-agent/test"}
	require.NoError(t, d.Fetch(context.Background(), srv.URL, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7\nbody", string(data))
	assert.Equal(t, "sim-agent/test", gotUA)
	assert.Equal(t, "application/pdf", gotAccept)
}

func TestFetchFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name:    "not a pdf",
			handler: func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("<html>paywall</html>")) },
			check:   func(t *testing.T, err error) { assert.True(t, errors.Is(err, ErrNotPDF)) },
		},
		{
			name:    "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {},
			check:   func(t *testing.T, err error) { assert.True(t, errors.Is(err, ErrNotPDF)) },
		},
		{
			name:    "http error",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusForbidden) },
			check:   func(t *testing.T, err error) { assert.ErrorContains(t, err, "HTTP 403") },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			dir := t.TempDir()
			dest := filepath.Join(dir, "p.pdf")
			err := (&Downloader{Client: srv.Client()}).Fetch(context.Background(), srv.URL, dest)
			require.Error(t, err)
			tt.check(t, err)

			_, statErr := os.Stat(dest)
			assert.True(t, os.IsNotExist(statErr), "no file left at destination")
			entries, _ := os.ReadDir(dir)
			assert.Empty(t, entries, "no temp files left behind")
		})
	}
}

func TestFetchRetriesThrottled(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "p.pdf")
	require.NoError(t, (&Downloader{Client: srv.Client()}).Fetch(context.Background(), srv.URL, dest))
	assert.Equal(t, int32(2), calls.Load())
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"10.1021/acs.jctc.3c00123", "10.1021_acs.jctc.3c00123"},
		{"W2741809807", "W2741809807"},
		{"a b:c?d", "a_b_c_d"},
		{"über-id_1", "über-id_1"},
	}
	for _, tt := range tests {
		if got := SafeName(tt.in); got != tt.want {
			t.Errorf("SafeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
