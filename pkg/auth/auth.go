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

// Package auth defines the identity boundary the launcher consumes. The
// transfer engine never needs an identity; only the launch step does.
package auth // import "github.com/craftfetch/craftfetch/pkg/auth"

import (
	"context"

	"github.com/google/uuid"
)

// Identity is what a provider must produce for a launch: a display name, a
// player id, and a bearer credential for protected endpoints.
type Identity struct {
	Username    string
	PlayerID    string
	AccessToken string
	// UserType distinguishes real accounts from offline stand-ins in the
	// assembled launch arguments.
	UserType string
}

// Provider supplies an identity. Implementations backed by a real account
// service live outside this module; the interface is the contract.
type Provider interface {
	Identity(ctx context.Context) (Identity, error)
}

// OfflineProvider fabricates a local identity with a random player id and
// token. Enough for launching without an account; useless against any
// protected endpoint.
type OfflineProvider struct {
	Username string
}

// Offline returns a provider for the given display name. An empty name
// becomes "Player".
func Offline(username string) OfflineProvider {
	if username == "" {
		username = "Player"
	}
	return OfflineProvider{Username: username}
}

// Identity implements Provider.
func (p OfflineProvider) Identity(context.Context) (Identity, error) {
	return Identity{
		Username:    p.Username,
		PlayerID:    uuid.NewString(),
		AccessToken: uuid.NewString(),
		UserType:    "offline",
	}, nil
}
