// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

// Package mocks provides testify mocks of the auth ports.
//
// Each constructor registers a cleanup that asserts all expectations.
package mocks

import "github.com/stretchr/testify/mock"

// testingT is satisfied by *testing.T.
type testingT interface {
	mock.TestingT
	Cleanup(func())
}
