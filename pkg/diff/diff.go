// Package diff turns a before/after pair of buffer contents into the insert
// and delete operations that transform one into the other.
//
// The algorithm strips the longest common prefix, then the longest common
// suffix of what remains, and describes the changed middle as at most one
// delete followed by at most one insert. It does not detect moved text, so a
// full rewrite degenerates to deleting everything and inserting the new
// contents.
package diff

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

var dmp = diffmatchpatch.New()

// Extract returns the operations that turn oldText into newText, ordered for
// sequential application. It returns nil when the texts are equal.
func Extract(oldText, newText string) []Op {
	if oldText == newText {
		return nil
	}
	oldRunes, newRunes := []rune(oldText), []rune(newText)

	p := dmp.DiffCommonPrefix(oldText, newText)
	// The suffix scan only looks past the shared prefix, so "aa" -> "aaa"
	// cannot count the same rune as both prefix and suffix.
	oldRest, newRest := oldRunes[p:], newRunes[p:]
	s := dmp.DiffCommonSuffix(string(oldRest), string(newRest))

	oldMid := oldRest[:len(oldRest)-s]
	newMid := newRest[:len(newRest)-s]

	var ops []Op
	if len(oldMid) > 0 {
		ops = append(ops, Delete{Index: p, Length: len(oldMid)})
	}
	if len(newMid) > 0 {
		// Deletion happened at p, so the insert targets the same offset.
		ops = append(ops, Insert{Index: p, Text: string(newMid)})
	}
	return ops
}
