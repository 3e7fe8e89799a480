// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

// Package state implements the constellation state synchronization
// engine: the live entity graph of sessions, files, folders, terminals,
// and machines built from agent tool-invocation events, and the
// notifications that mirror every mutation to connected viewers.
//
// [Store] owns all five entity collections and the global token
// aggregate behind a single mutex — the one logical mutator the model
// requires. Event ingestion ([Store.Process]), the permission-wait
// bypass ([Store.SetWaiting]), and the periodic lifecycle sweep
// ([Store.Sweep]) all serialize through it, so no mutation ever
// interleaves partially and notifications are globally ordered.
//
// Entity lifetimes are reference-counted by session: a file or folder
// exists exactly as long as at least one live session references it, a
// terminal exactly as long as its owning session. Only the sweep's
// removal cascade deletes entities; every other lookup miss means
// "create". Session token counters arrive as cumulative totals and are
// folded into the global aggregate by clamped forward deltas, so the
// aggregate never goes negative and duplicate reports add nothing.
package state
