// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

// Package pathchain decomposes a file path into its ancestor folder
// chain. The state store uses the chain to lazily build the folder
// hierarchy for every file an agent session touches.
package pathchain

import "strings"

// Folder describes one ancestor folder of a file path. Path is the
// accumulated path from the base ("/proj", "/proj/src", ...), Name the
// final segment, and Depth the distance from the base, starting at 0.
type Folder struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	Depth int    `json:"depth"`
}

// Chain returns the ordered ancestor folders of filePath relative to
// base. If base is not a prefix of filePath, defaultBase is tried; if
// neither is, the path is used as given. The final segment (the
// filename) is never included, and empty segments are dropped, so a
// bare filename yields nil.
//
// Pure and deterministic: no filesystem access, no failure mode.
func Chain(filePath, base, defaultBase string) []Folder {
	relative := filePath
	switch {
	case base != "" && strings.HasPrefix(filePath, base):
		relative = filePath[len(base):]
	case defaultBase != "" && strings.HasPrefix(filePath, defaultBase):
		relative = filePath[len(defaultBase):]
	}

	segments := make([]string, 0, 8)
	for _, segment := range strings.Split(relative, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	if len(segments) < 2 {
		return nil
	}

	folders := make([]Folder, 0, len(segments)-1)
	current := ""
	for i, segment := range segments[:len(segments)-1] {
		current += "/" + segment
		folders = append(folders, Folder{Path: current, Name: segment, Depth: i})
	}
	return folders
}
