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

package version

import (
	"testing"
)

// FuzzParseVersion performs fuzz testing on ParseVersion to find edge cases
func FuzzParseVersion(f *testing.F) {
	for _, seed := range []string{
		"1", "v1", "1.2", "1.2.3", "v1.2.3", "0.1.0-SNAPSHOT", "1.0.0+build.7",
		"", ".", "1.", ".1", "1..2", "v", "-1", "1.-2", "a.b.c", "1.2.3.4", "unversioned",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		v, err := ParseVersion(input)
		if err != nil {
			return
		}

		if v.Precision < 1 || v.Precision > 3 {
			t.Errorf("ParseVersion(%q) returned invalid precision: %d", input, v.Precision)
		}
		if v.Major < 0 || v.Minor < 0 || v.Patch < 0 {
			t.Errorf("ParseVersion(%q) returned negative component: %+v", input, v)
		}

		v2, err := ParseVersion(v.String())
		if err != nil {
			t.Errorf("Re-parsing %q (from %q) failed: %v", v.String(), input, err)
		} else if v.Major != v2.Major || v.Minor != v2.Minor || v.Patch != v2.Patch {
			t.Errorf("Round-trip mismatch for %q: %+v != %+v", input, v, v2)
		}

		if v.Compare(v) != 0 {
			t.Errorf("Compare(%q, itself) != 0", input)
		}
		if CompareStrings(input, "unversioned") != 1 {
			t.Errorf("parsable %q should order above unparsable", input)
		}
	})
}
