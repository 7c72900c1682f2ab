// Package testutil holds helpers shared by tests.
package testutil

import (
	"net/http"
	"testing"

	"gopkg.in/dnaeon/go-vcr.v2/cassette"
	"gopkg.in/dnaeon/go-vcr.v2/recorder"
)

// credentialHeaders are stripped from every interaction before it is saved.
var credentialHeaders = []string{"Authorization", "X-Api-Key"}

// NewVCRRecorder creates a VCR recorder for the cassette at cassettePath
// (without the .yaml suffix). In recording mode requests go through
// realTransport.
func NewVCRRecorder(t *testing.T, cassettePath string, mode recorder.Mode, realTransport http.RoundTripper) (*recorder.Recorder, func()) {
	t.Helper()

	r, err := recorder.NewAsMode(cassettePath, mode, realTransport)
	if err != nil {
		t.Fatalf("Failed to create VCR recorder: %v", err)
	}

	// Don't match on request body for simplicity
	r.SetMatcher(func(r *http.Request, i cassette.Request) bool {
		return r.Method == i.Method && r.URL.String() == i.URL
	})

	r.AddSaveFilter(func(i *cassette.Interaction) error {
		for _, h := range credentialHeaders {
			delete(i.Request.Headers, h)
		}
		return nil
	})

	// Cleanup function
	cleanup := func() {
		if err := r.Stop(); err != nil {
			t.Errorf("Failed to stop VCR recorder: %v", err)
		}
	}

	return r, cleanup
}

// VCRHTTPClient returns an HTTP client configured to use the VCR recorder
func VCRHTTPClient(r *recorder.Recorder) *http.Client {
	return &http.Client{
		Transport: r,
	}
}
