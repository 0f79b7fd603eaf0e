// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

// Package postgres implements the auth repositories on PostgreSQL.
// Tables are created by the migrations in internal/store.
package postgres
