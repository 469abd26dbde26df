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

package resolver

import (
	"github.com/craftfetch/craftfetch/pkg/manifest"
	"github.com/craftfetch/craftfetch/pkg/transfer"
)

// Native pairs a downloaded native-library archive with the version it
// must be extracted for.
type Native struct {
	// Library is the owning library's name, for reporting.
	Library string
	// Archive is the absolute path the classifier artifact downloads to.
	Archive string
}

// ResolveNatives returns the download tasks for the native bundles of the
// current platform's classifier, plus the extraction list consumed after
// the downloads complete.
//
// A library offers natives through its natives map keyed by OS name; the
// artifact itself sits under the classifier key in the downloads map.
// Platforms without a classifier of their own resolve to the Windows one
// (see manifest.NativeClassifier).
func (r *Resolver) ResolveNatives(details *manifest.VersionDetails) ([]*transfer.Task, []Native, error) {
	classifier := manifest.NativeClassifier(r.osName)

	set := newTaskSet()
	var natives []Native
	for i := range details.Libraries {
		lib := &details.Libraries[i]
		if !lib.HasNatives(r.osName) {
			continue
		}
		art := lib.Downloads.Classifiers[classifier]
		if art == nil || art.URL == "" || art.Path == "" {
			continue
		}
		dest := r.home.Library(art.Path)
		set.add(&transfer.Task{
			URL:   art.URL,
			Dest:  dest,
			SHA1:  art.SHA1,
			Size:  art.Size,
			Label: lib.Name + " (" + classifier + ")",
		})
		natives = append(natives, Native{Library: lib.Name, Archive: dest})
	}
	return set.tasks, natives, nil
}
