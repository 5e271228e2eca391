// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNegotiateAPIVersion(t *testing.T) {
	tests := []struct {
		name   string
		accept string
		want   string
	}{
		{"no header", "", DefaultAPIVersion},
		{"plain json", "application/json", DefaultAPIVersion},
		{"vendor v1", "application/vnd.nvidia.bundles.v1+json", "v1"},
		{"vendor in list", "text/html, application/vnd.nvidia.bundles.v1+json", "v1"},
		{"unsupported version", "application/vnd.nvidia.bundles.v9+json", DefaultAPIVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.accept != "" {
				r.Header.Set("Accept", tt.accept)
			}
			if got := negotiateAPIVersion(r); got != tt.want {
				t.Errorf("negotiateAPIVersion() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVersionMiddleware(t *testing.T) {
	s := New()
	var seen string
	h := s.versionMiddleware(func(_ http.ResponseWriter, r *http.Request) {
		seen = APIVersionFrom(r)
	})

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := w.Header().Get("X-API-Version"); got != DefaultAPIVersion {
		t.Errorf("X-API-Version = %q, want %q", got, DefaultAPIVersion)
	}
	if seen != DefaultAPIVersion {
		t.Errorf("APIVersionFrom() = %q, want %q", seen, DefaultAPIVersion)
	}
}

func TestResponseWriter_IgnoresSecondWriteHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	rw.WriteHeader(http.StatusAccepted)
	rw.WriteHeader(http.StatusTeapot)

	if rw.Status() != http.StatusAccepted || rec.Code != http.StatusAccepted {
		t.Errorf("status = %d/%d, want %d", rw.Status(), rec.Code, http.StatusAccepted)
	}
}
