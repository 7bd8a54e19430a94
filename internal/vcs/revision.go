// Copyright 2024 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vcs

import (
	"golang.org/x/mod/semver"
)

// RevisionKind tells how a revision string will be resolved by the remote.
type RevisionKind int

const (
	// Ref is a branch or any other named ref. It may move between runs.
	Ref RevisionKind = iota
	// Tag is a semantic version tag such as v1.8.0.
	Tag
	// Commit is a full SHA-1 or SHA-256 commit hash.
	Commit
)

func (k RevisionKind) String() string {
	switch k {
	case Tag:
		return "tag"
	case Commit:
		return "commit"
	default:
		return "ref"
	}
}

// Pinned reports whether the revision always names the same tree.
func (k RevisionKind) Pinned() bool {
	return k != Ref
}

// ClassifyRevision guesses the kind of rev.
func ClassifyRevision(rev string) RevisionKind {
	if semver.IsValid(rev) {
		return Tag
	}
	if isHash(rev) {
		return Commit
	}
	return Ref
}

func isHash(s string) bool {
	if len(s) != 40 && len(s) != 64 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f') {
			return false
		}
	}
	return true
}
