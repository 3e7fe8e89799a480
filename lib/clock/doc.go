// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for testability. Production code injects
// Real(); tests inject Fake() and drive timers deterministically with
// Advance. Anything in constellation that arms a timer, starts a ticker,
// or reads the wall clock goes through a Clock so that the lifecycle
// scheduler can be tested without sleeping.
package clock
