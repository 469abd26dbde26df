/*
Copyright The Craftfetch Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package manifest

import (
	"runtime"
)

// CurrentOS returns the operating system name the version metadata uses for
// the running platform. The metadata says "osx" where Go says "darwin".
func CurrentOS() string {
	if runtime.GOOS == "darwin" {
		return "osx"
	}
	return runtime.GOOS
}

// Allowed evaluates an ordered rule list against an operating system name.
//
// With no rules the entry is always allowed. Otherwise evaluation starts
// disallowed and applies each rule in order: an unconditional rule or a rule
// matching osName sets the state to its action, a rule for a different OS is
// skipped. The last applicable rule wins.
func Allowed(rules []Rule, osName string) bool {
	if len(rules) == 0 {
		return true
	}

	allowed := false
	for _, r := range rules {
		if r.OS != nil && r.OS.Name != osName {
			continue
		}
		allowed = r.Action == ActionAllow
	}
	return allowed
}

// AllowedOn reports whether the library applies to the given operating
// system name under its rule list.
func (l *Library) AllowedOn(osName string) bool {
	return Allowed(l.Rules, osName)
}

// NativeClassifier returns the native-library classifier for an operating
// system name.
//
// Unknown platforms fall back to the Windows classifier. That fallback is
// surprising but deliberate: it mirrors the long-standing behavior of
// existing launchers, and changing it would alter which artifact gets
// fetched on platforms the metadata has no entry for anyway.
func NativeClassifier(osName string) string {
	switch osName {
	case "windows":
		return "natives-windows"
	case "linux":
		return "natives-linux"
	case "osx":
		return "natives-osx"
	default:
		return "natives-windows"
	}
}

// HasNatives reports whether the library declares a native bundle for the
// given operating system name.
func (l *Library) HasNatives(osName string) bool {
	_, ok := l.Natives[osName]
	return ok
}
