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

package header

import (
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	h := New(WithKind(KindBundleList), WithMetadata("version", "v1.2.3"))

	if h.Kind != KindBundleList {
		t.Errorf("Kind = %q, want %q", h.Kind, KindBundleList)
	}
	if h.APIVersion != APIVersion {
		t.Errorf("APIVersion = %q, want %q", h.APIVersion, APIVersion)
	}
	if h.Metadata["version"] != "v1.2.3" {
		t.Errorf("version metadata = %q", h.Metadata["version"])
	}
	if _, err := time.Parse(time.RFC3339, h.Metadata["timestamp"]); err != nil {
		t.Errorf("timestamp not RFC3339: %v", err)
	}
}

func TestWithAPIVersion(t *testing.T) {
	if h := New(WithAPIVersion("bundles.nvidia.com/v2")); h.APIVersion != "bundles.nvidia.com/v2" {
		t.Errorf("APIVersion = %q", h.APIVersion)
	}
}

func TestKind_IsValid(t *testing.T) {
	for _, k := range []Kind{KindBundleList, KindExtensionMapping, KindArchiveInspection} {
		if !k.IsValid() {
			t.Errorf("%s should be valid", k)
		}
	}
	if Kind("Snapshot").IsValid() {
		t.Error("Snapshot should not be valid")
	}
}
