// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

package pathchain

import (
	"reflect"
	"testing"
)

func TestChain(t *testing.T) {
	tests := []struct {
		name        string
		filePath    string
		base        string
		defaultBase string
		want        []Folder
	}{
		{
			name:     "single folder under base",
			filePath: "/home/u/proj/a.py",
			base:     "/home/u",
			want: []Folder{
				{Path: "/proj", Name: "proj", Depth: 0},
			},
		},
		{
			name:     "nested folders",
			filePath: "/home/u/proj/src/pkg/main.go",
			base:     "/home/u",
			want: []Folder{
				{Path: "/proj", Name: "proj", Depth: 0},
				{Path: "/proj/src", Name: "src", Depth: 1},
				{Path: "/proj/src/pkg", Name: "pkg", Depth: 2},
			},
		},
		{
			name:        "base not a prefix falls back to default base",
			filePath:    "/root/work/x.go",
			base:        "/home/u",
			defaultBase: "/root",
			want: []Folder{
				{Path: "/work", Name: "work", Depth: 0},
			},
		},
		{
			name:     "neither base matches uses path as given",
			filePath: "/opt/tool/bin/run",
			base:     "/home/u",
			want: []Folder{
				{Path: "/opt", Name: "opt", Depth: 0},
				{Path: "/opt/tool", Name: "tool", Depth: 1},
				{Path: "/opt/tool/bin", Name: "bin", Depth: 2},
			},
		},
		{
			name:     "bare filename yields nil",
			filePath: "a.py",
			base:     "/home/u",
			want:     nil,
		},
		{
			name:     "file directly under base yields nil",
			filePath: "/home/u/a.py",
			base:     "/home/u",
			want:     nil,
		},
		{
			name:     "empty segments dropped",
			filePath: "/home/u//proj///a.py",
			base:     "/home/u",
			want: []Folder{
				{Path: "/proj", Name: "proj", Depth: 0},
			},
		},
		{
			name:     "pattern key without slashes yields nil",
			filePath: "glob:*",
			base:     "/home/u",
			want:     nil,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := Chain(test.filePath, test.base, test.defaultBase)
			if !reflect.DeepEqual(got, test.want) {
				t.Fatalf("Chain(%q, %q, %q) = %v, want %v",
					test.filePath, test.base, test.defaultBase, got, test.want)
			}
		})
	}
}
