// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"fmt"
	"sync"

	"github.com/skytable/skytable-sub007/pkg/validation"
)

// SystemDatabase tracks user accounts: a username mapped to an opaque
// password-hash string. Computing that hash (the KDF itself) is out of
// this package's scope; SystemDatabase stores whatever the caller already
// hashed and never sees a plaintext password.
type SystemDatabase struct {
	mu    sync.RWMutex
	users map[string]string
}

// RootUsername is the account that always exists and can never be dropped.
const RootUsername = "root"

// NewSystemDatabase returns a SystemDatabase seeded with the root account.
func NewSystemDatabase(rootPasswordHash string) *SystemDatabase {
	return &SystemDatabase{
		users: map[string]string{RootUsername: rootPasswordHash},
	}
}

// ErrUserAlreadyExists is returned by CreateUser for a taken username.
var ErrUserAlreadyExists = fmt.Errorf("engine: user already exists")

// ErrUserNotFound is returned when a named user does not exist.
var ErrUserNotFound = fmt.Errorf("engine: user not found")

// ErrCannotDropSelf is returned when a user attempts to drop their own
// account.
var ErrCannotDropSelf = fmt.Errorf("engine: a user cannot drop itself")

// CreateUser adds a new account with the given password hash.
func (s *SystemDatabase) CreateUser(username, passwordHash string) error {
	if err := validation.ValidateIdentifier(username); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[username]; exists {
		return ErrUserAlreadyExists
	}
	s.users[username] = passwordHash
	return nil
}

// AlterUser replaces an existing account's password hash.
func (s *SystemDatabase) AlterUser(username, newPasswordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[username]; !exists {
		return ErrUserNotFound
	}
	s.users[username] = newPasswordHash
	return nil
}

// DropUser removes an account. callerUsername is the identity of the
// session issuing the DROP; a user can never drop their own account,
// which would otherwise let the last session that can administer the
// server lock itself out.
func (s *SystemDatabase) DropUser(callerUsername, username string) error {
	if callerUsername == username {
		return ErrCannotDropSelf
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[username]; !exists {
		return ErrUserNotFound
	}
	delete(s.users, username)
	return nil
}

// VerifyPasswordHash reports whether hash matches the stored hash for
// username. The comparison is a plain equality: username resolution and
// the KDF that produced both hashes live outside this package.
func (s *SystemDatabase) VerifyPasswordHash(username, hash string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.users[username]
	if !ok {
		return false
	}
	return stored == hash
}

// Usernames returns every registered username, for Inspect's users
// section.
func (s *SystemDatabase) Usernames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.users))
	for name := range s.users {
		names = append(names, name)
	}
	return names
}
