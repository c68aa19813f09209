package classify

import (
	"strings"

	"github.com/loandesk/document-service/internal/models"
)

// Normalize lowercases a label and strips everything that is not a letter
// or digit, so "PAN Copy" and "pan-copy" compare equal.
func Normalize(label string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(label) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TypeMatches reports whether a detected type label and a slot name refer to
// the same document type. The heuristic is normalized substring containment
// in either direction.
func TypeMatches(detected, slotName string) bool {
	a := Normalize(detected)
	b := Normalize(slotName)
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}

// MatchSlot returns the first slot whose name fuzzy-matches the detected
// type label, or "" if none does.
func MatchSlot(detected string, slots []models.DocumentTypeSlot) string {
	for _, slot := range slots {
		if TypeMatches(detected, slot.Name) {
			return slot.ID
		}
	}
	return ""
}

// placeholders are values that stand in for "no name on record"; they never
// participate in name matching.
var placeholders = map[string]bool{
	"na": true, "n/a": true, "nil": true, "none": true, "notavailable": true,
}

func isPlaceholder(name string) bool {
	return name == "" || placeholders[Normalize(name)]
}

// nameTokens splits a person name into normalized tokens, dropping tokens
// shorter than 3 characters (initials, honorifics).
func nameTokens(name string) []string {
	var tokens []string
	for _, raw := range strings.Fields(name) {
		t := Normalize(raw)
		if len(t) >= 3 {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// NameOverlap computes the token overlap ratio between a detected person
// name and one expected name: the share of detected tokens that appear in
// (or contain) an expected token.
func NameOverlap(detected, expected string) float64 {
	dt := nameTokens(detected)
	et := nameTokens(expected)
	if len(dt) == 0 || len(et) == 0 {
		return 0
	}
	matched := 0
	for _, d := range dt {
		for _, e := range et {
			if d == e || strings.Contains(d, e) || strings.Contains(e, d) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(dt))
}

// NameMatchThreshold is the minimum best-match overlap ratio for a detected
// name to be considered the same person as one of the expected names.
const NameMatchThreshold = 0.5

// NameMatches checks the detected person name against the applicant and
// co-applicant names, taking the best overlap ratio of the two. Placeholder
// expected names are ignored; if no usable expected name remains, or the
// detected name is empty, there is nothing to mismatch against and the
// check passes.
func NameMatches(detected, applicant, coApplicant string) bool {
	if isPlaceholder(detected) {
		return true
	}
	best := -1.0
	for _, expected := range []string{applicant, coApplicant} {
		if isPlaceholder(expected) {
			continue
		}
		if ratio := NameOverlap(detected, expected); ratio > best {
			best = ratio
		}
	}
	if best < 0 {
		return true
	}
	return best >= NameMatchThreshold
}
