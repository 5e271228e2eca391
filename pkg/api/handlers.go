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

package api

import (
	"net/http"

	"github.com/NVIDIA/bundles/pkg/bundle"
	"github.com/NVIDIA/bundles/pkg/defaults"
	apperrors "github.com/NVIDIA/bundles/pkg/errors"
	"github.com/NVIDIA/bundles/pkg/serializer"
	"github.com/NVIDIA/bundles/pkg/server"
	"github.com/NVIDIA/bundles/pkg/system"
)

// Handler serves the introspection routes for one System.
type Handler struct {
	sys *system.System
}

// NewHandler creates a Handler for sys.
func NewHandler(sys *system.System) *Handler {
	return &Handler{sys: sys}
}

// Routes returns the route patterns and their handlers, each bounded by
// defaults.APIHandlerTimeout.
func (h *Handler) Routes() map[string]http.HandlerFunc {
	routes := map[string]http.HandlerFunc{
		"/v1/bundles":                        h.handleBundles,
		"/v1/bundles/{group}/{id}/{version}": h.handleBundle,
		"/v1/capabilities":                   h.handleCapabilities,
		"/v1/extensions":                     h.handleExtensions,
		"/v1/providers/{name}":               h.handleProviders,
		"/v1/warnings":                       h.handleWarnings,
	}
	for pattern, fn := range routes {
		routes[pattern] = http.TimeoutHandler(allowGet(fn), defaults.APIHandlerTimeout, "request timed out").ServeHTTP
	}
	return routes
}

func allowGet(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			server.WriteError(w, r, http.StatusMethodNotAllowed, apperrors.ErrCodeMethodNotAllowed,
				"Method not allowed", false, map[string]any{"method": r.Method})
			return
		}
		next(w, r)
	}
}

func (h *Handler) handleBundles(w http.ResponseWriter, r *http.Request) {
	bundles, err := h.sys.Bundles()
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "Failed to list bundles", nil)
		return
	}

	resp := BundleList{Bundles: make([]BundleView, 0, len(bundles))}
	for _, b := range bundles {
		resp.Bundles = append(resp.Bundles, NewBundleView(b))
	}
	for _, warn := range h.sys.Warnings() {
		resp.Warnings = append(resp.Warnings, warn.Error())
	}
	serializer.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleBundle(w http.ResponseWriter, r *http.Request) {
	c := bundle.Coordinate{
		Group:   r.PathValue("group"),
		ID:      r.PathValue("id"),
		Version: r.PathValue("version"),
	}
	if err := c.Validate(); err != nil {
		server.WriteErrorFromErr(w, r,
			apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "invalid coordinate", err),
			"Invalid coordinate", nil)
		return
	}

	b, err := h.sys.Registry().BundleForCoordinate(c)
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "Failed to look up bundle", map[string]any{"coordinate": c.String()})
		return
	}
	serializer.RespondJSON(w, http.StatusOK, NewBundleView(b))
}

func (h *Handler) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	caps, err := h.sys.Registry().Capabilities()
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "Failed to list capabilities", nil)
		return
	}
	serializer.RespondJSON(w, http.StatusOK, CapabilityList{Capabilities: capabilityNames(caps)})
}

func (h *Handler) handleExtensions(w http.ResponseWriter, r *http.Request) {
	capability := r.URL.Query().Get("capability")
	if capability == "" {
		server.WriteError(w, r, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest,
			"capability query parameter is required", false, nil)
		return
	}

	names, err := h.sys.ExtensionsForType(capability)
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "Failed to list extensions", map[string]any{"capability": capability})
		return
	}
	if names == nil {
		names = []string{}
	}
	serializer.RespondJSON(w, http.StatusOK, ExtensionList{Capability: capability, Providers: names})
}

func (h *Handler) handleProviders(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	owners, err := h.sys.Registry().Bundles(name)
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "Failed to look up provider", map[string]any{"name": name})
		return
	}
	if len(owners) == 0 {
		server.WriteError(w, r, http.StatusNotFound, apperrors.ErrCodeClassNotFound,
			"no bundle provides this name", false, map[string]any{"name": name})
		return
	}

	resp := ProviderOwners{Name: name, Owners: make([]BundleView, 0, len(owners))}
	for _, b := range owners {
		resp.Owners = append(resp.Owners, NewBundleView(b))
	}
	serializer.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleWarnings(w http.ResponseWriter, r *http.Request) {
	warnings := make([]string, 0)
	for _, warn := range h.sys.Warnings() {
		warnings = append(warnings, warn.Error())
	}
	serializer.RespondJSON(w, http.StatusOK, map[string][]string{"warnings": warnings})
}
