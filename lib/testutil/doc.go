// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides channel assertion helpers for tests that
// coordinate goroutines: receive-with-timeout and wait-for-close.
package testutil
