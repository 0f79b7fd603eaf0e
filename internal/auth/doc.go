// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

// Package auth implements authentication and session lifecycle for the
// gym reservation platform.
//
// # Domain Types
//
// Domain types should be created using their constructors:
//   - ParseEmail / EmailPolicy.Parse - normalized institutional email
//   - NewHashedPassword - opaque wrapper around a password hash
//   - NewUser - user aggregate with validated name, role, email and password
//   - RestoreUser - rehydrates a persisted UserRecord
//
// The User aggregate owns its lockout state. Callers mutate it only through
// its methods; repositories move it in and out of storage with Record and
// RestoreUser.
//
// # Use Cases
//
// Each use case is built from a shared Dependencies value:
//   - RegisterUser, AuthenticateUser, RefreshSession, Logout
//   - RequestPasswordReset, ResetPassword
//   - Authorize, SetUserStatus
//
// Execute never returns an error. Failures are reported in the result with
// a stable Code and a message safe to show to the client. Infrastructure
// failures are logged and collapsed into CodeInternal.
package auth
