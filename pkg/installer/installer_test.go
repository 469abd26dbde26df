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

package installer

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftfetch/craftfetch/pkg/getter"
	"github.com/craftfetch/craftfetch/pkg/manifest"
	"github.com/craftfetch/craftfetch/pkg/mcpath"
	"github.com/craftfetch/craftfetch/pkg/resolver"
	"github.com/craftfetch/craftfetch/pkg/transfer"
)

func sha1Of(b []byte) string {
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}

// nativesZip builds a native bundle with one shared object and a META-INF
// entry that extraction must skip.
func nativesZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range map[string]string{
		"liblwjgl.so":          "ELF bytes",
		"META-INF/MANIFEST.MF": "Manifest-Version: 1.0",
	} {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// fixture is a complete fake distribution: catalog, details, artifacts,
// asset index, and asset objects, all served from one test server.
type fixture struct {
	srv       *httptest.Server
	home      mcpath.Home
	installer *Installer
	files     map[string][]byte
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{files: make(map[string][]byte)}

	clientJar := []byte("client jar bytes")
	libJar := []byte("library jar bytes")
	natZip := nativesZip(t)
	soundObj := []byte("ogg bytes")
	soundHash := sha1Of(soundObj)

	mux := http.NewServeMux()
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	base := f.srv.URL

	f.files["/client.jar"] = clientJar
	f.files["/lib.jar"] = libJar
	f.files["/natives.zip"] = natZip
	f.files["/objects/"+soundHash[:2]+"/"+soundHash] = soundObj

	index, err := json.Marshal(manifest.AssetIndex{
		Objects: map[string]manifest.AssetObject{
			"minecraft/sounds/splash.ogg": {Hash: soundHash, Size: int64(len(soundObj))},
		},
	})
	require.NoError(t, err)
	f.files["/assets/12.json"] = index

	details, err := json.Marshal(manifest.VersionDetails{
		ID:        "1.20.4",
		Type:      manifest.ReleaseTypeRelease,
		MainClass: "net.minecraft.client.main.Main",
		Downloads: manifest.Downloads{
			Client: &manifest.Artifact{URL: base + "/client.jar", SHA1: sha1Of(clientJar), Size: int64(len(clientJar))},
		},
		AssetIndex: manifest.AssetRef{ID: "12", URL: base + "/assets/12.json", SHA1: sha1Of(index), Size: int64(len(index))},
		Libraries: []manifest.Library{
			{
				Name: "org.lwjgl:lwjgl:3.3.3",
				Downloads: manifest.LibraryDownloads{
					Artifact: &manifest.Artifact{
						Path: "org/lwjgl/lwjgl/3.3.3/lwjgl-3.3.3.jar",
						URL:  base + "/lib.jar",
						SHA1: sha1Of(libJar),
						Size: int64(len(libJar)),
					},
				},
			},
			{
				Name: "org.lwjgl:lwjgl-platform:3.3.3",
				Downloads: manifest.LibraryDownloads{
					Classifiers: map[string]*manifest.Artifact{
						"natives-linux": {
							Path: "org/lwjgl/lwjgl-platform/3.3.3/lwjgl-platform-3.3.3-natives-linux.jar",
							URL:  base + "/natives.zip",
							SHA1: sha1Of(natZip),
							Size: int64(len(natZip)),
						},
					},
				},
				Natives: map[string]string{"linux": "natives-linux"},
			},
		},
	})
	require.NoError(t, err)
	f.files["/1.20.4.json"] = details

	catalog, err := json.Marshal(manifest.Manifest{
		Latest: manifest.Latest{Release: "1.20.4", Snapshot: "1.20.4"},
		Versions: []manifest.Version{
			{ID: "1.20.4", Type: manifest.ReleaseTypeRelease, URL: base + "/1.20.4.json", ReleaseTime: time.Now()},
		},
	})
	require.NoError(t, err)
	f.files["/manifest.json"] = catalog

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		body, ok := f.files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		http.ServeContent(w, r, path.Base(r.URL.Path), time.Time{}, bytes.NewReader(body))
	})

	g, err := getter.NewHTTPGetter()
	require.NoError(t, err)
	client := manifest.NewClient(g, manifest.WithManifestURL(base+"/manifest.json"))

	f.home = mcpath.Home(t.TempDir())
	f.installer = &Installer{
		Home:     f.home,
		Client:   client,
		Resolver: resolver.New(f.home, client, resolver.WithOS("linux"), resolver.WithAssetsURL(base+"/objects")),
		Engine:   transfer.NewEngine(g, transfer.Config{Concurrency: 4}, nil),
	}
	return f
}

func TestInstall(t *testing.T) {
	f := newFixture(t)

	res, err := f.installer.Install(context.Background(), "1.20.4", Options{})
	require.NoError(t, err)

	assert.Equal(t, "1.20.4", res.ID)
	assert.Equal(t, 4, res.Downloaded)
	assert.Zero(t, res.Skipped)
	assert.Zero(t, res.Failed)
	assert.Equal(t, 1, res.NativesExtracted)

	assert.FileExists(t, f.home.VersionJar("1.20.4"))
	assert.FileExists(t, f.home.Library("org/lwjgl/lwjgl/3.3.3/lwjgl-3.3.3.jar"))

	// Details are cached for offline launches and parse back cleanly.
	data, err := os.ReadFile(f.home.VersionJSON("1.20.4"))
	require.NoError(t, err)
	cached, err := manifest.ParseDetails(data)
	require.NoError(t, err)
	assert.Equal(t, "net.minecraft.client.main.Main", cached.MainClass)

	// Natives land extracted, sans META-INF.
	assert.FileExists(t, f.home.Path("versions", "1.20.4", "natives", "liblwjgl.so"))
	assert.NoFileExists(t, f.home.Path("versions", "1.20.4", "natives", "MANIFEST.MF"))

	// Asset objects land content addressed.
	obj := f.files["/assets/12.json"]
	var idx manifest.AssetIndex
	require.NoError(t, json.Unmarshal(obj, &idx))
	for _, o := range idx.Objects {
		assert.FileExists(t, f.home.Object(o.Hash))
	}
}

func TestInstallIdempotent(t *testing.T) {
	f := newFixture(t)

	_, err := f.installer.Install(context.Background(), "1.20.4", Options{})
	require.NoError(t, err)

	res, err := f.installer.Install(context.Background(), "1.20.4", Options{})
	require.NoError(t, err)
	assert.Zero(t, res.Downloaded)
	assert.Equal(t, 4, res.Skipped)
	assert.Equal(t, 1, res.NativesExtracted)
}

func TestInstallSkips(t *testing.T) {
	f := newFixture(t)

	res, err := f.installer.Install(context.Background(), "1.20.4", Options{SkipLibraries: true, SkipAssets: true})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Downloaded)
	assert.Zero(t, res.NativesExtracted)
	assert.FileExists(t, f.home.VersionJar("1.20.4"))
	assert.NoFileExists(t, f.home.Library("org/lwjgl/lwjgl/3.3.3/lwjgl-3.3.3.jar"))
}

func TestInstallUnknownVersion(t *testing.T) {
	f := newFixture(t)

	_, err := f.installer.Install(context.Background(), "9.99", Options{})
	var nfe *manifest.NotFoundError
	require.True(t, errors.As(err, &nfe))
	assert.Equal(t, "9.99", nfe.ID)
}

func TestInstallPartialFailure(t *testing.T) {
	f := newFixture(t)
	delete(f.files, "/lib.jar")

	res, err := f.installer.Install(context.Background(), "1.20.4", Options{SkipAssets: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "org.lwjgl:lwjgl:3.3.3")

	// The failed library does not take its siblings down.
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 2, res.Downloaded)
	assert.Equal(t, 1, res.NativesExtracted)
	assert.FileExists(t, f.home.VersionJar("1.20.4"))
	assert.NoFileExists(t, f.home.Library("org/lwjgl/lwjgl/3.3.3/lwjgl-3.3.3.jar"))
}

func TestInstallDedupsAcrossLibraryAndNativeTasks(t *testing.T) {
	f := newFixture(t)
	base := f.srv.URL

	// A details document can publish the same artifact path both as a
	// plain library and as a native classifier. The combined task list
	// must keep a single writer for that destination.
	natZip := f.files["/natives.zip"]
	shared := &manifest.Artifact{
		Path: "org/lwjgl/lwjgl-platform/3.3.3/lwjgl-platform-3.3.3-natives-linux.jar",
		URL:  base + "/natives.zip",
		SHA1: sha1Of(natZip),
		Size: int64(len(natZip)),
	}
	clientJar := f.files["/client.jar"]
	details, err := json.Marshal(manifest.VersionDetails{
		ID:   "1.20.4",
		Type: manifest.ReleaseTypeRelease,
		Downloads: manifest.Downloads{
			Client: &manifest.Artifact{URL: base + "/client.jar", SHA1: sha1Of(clientJar), Size: int64(len(clientJar))},
		},
		Libraries: []manifest.Library{
			{
				Name:      "org.lwjgl:lwjgl-platform:3.3.3",
				Downloads: manifest.LibraryDownloads{Artifact: shared},
			},
			{
				Name: "org.lwjgl:lwjgl-platform:3.3.3",
				Downloads: manifest.LibraryDownloads{
					Classifiers: map[string]*manifest.Artifact{"natives-linux": shared},
				},
				Natives: map[string]string{"linux": "natives-linux"},
			},
		},
	})
	require.NoError(t, err)
	f.files["/1.20.4.json"] = details

	res, err := f.installer.Install(context.Background(), "1.20.4", Options{SkipAssets: true})
	require.NoError(t, err)

	// One jar, one shared artifact: two tasks, not three.
	assert.Len(t, res.Outcomes, 2)
	assert.Equal(t, 2, res.Downloaded)
	assert.Equal(t, 1, res.NativesExtracted)
	assert.FileExists(t, f.home.Library(shared.Path))
	assert.NoFileExists(t, f.home.Library(shared.Path)+".partial")
}

func TestInstallLockHeld(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.home.Ensure())

	held := flock.New(f.home.LockFile())
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer held.Unlock()

	f.installer.LockTimeout = 100 * time.Millisecond
	_, err = f.installer.Install(context.Background(), "1.20.4", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "installation lock")
}
