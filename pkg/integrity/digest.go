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

// Package integrity computes and checks content hashes for downloaded files.
package integrity // import "github.com/craftfetch/craftfetch/pkg/integrity"

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"
)

// Digest hashes a reader and returns a SHA-1 digest in lowercase hex.
//
// SHA-1 is the hash every remote document in the version metadata carries;
// it identifies content, it is not used for any cryptographic purpose.
func Digest(in io.Reader) (string, error) {
	hash := sha1.New()
	if _, err := io.Copy(hash, in); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// DigestFile calculates the SHA-1 hash of a file.
func DigestFile(filename string) (string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return Digest(f)
}

// Verify reports whether the file at path exists and hashes to expected.
//
// Any read error counts as a failed verification rather than an error: the
// caller's only decision is whether the file can be trusted as-is.
func Verify(path, expected string) bool {
	if expected == "" {
		return false
	}
	actual, err := DigestFile(path)
	if err != nil {
		return false
	}
	return actual == expected
}
