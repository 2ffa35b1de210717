// Package extract pulls candidate taxpayer identifiers out of free-form chat
// text using fixed lexical patterns, without an LLM or external API. A looser
// scanning pass proposes candidates; a stricter anchored pass is the only gate
// into session state.
package extract

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	identityScan = regexp.MustCompile(`(?i)\b[STFG]\d{7}[A-Z]\b`)
	caseScan     = regexp.MustCompile(`(?i)\bTX\d{3}\b`)

	identityCanonical = regexp.MustCompile(`^[STFG]\d{7}[A-Z]$`)
	caseCanonical     = regexp.MustCompile(`^TX\d{3}$`)

	digits  = regexp.MustCompile(`\d`)
	finWord = regexp.MustCompile(`(?i)\bFIN\b`)
)

// keywords that signal the user is trying to hand over an identifier.
var (
	identityKeywords = []string{"nric", "identity number", "id number", "identification"}
	caseKeywords     = []string{"case number", "case no", "case reference", "case ref", "my case"}
)

// Candidates holds the optional identifiers found in one turn of text.
// Values are uppercased but not yet validated.
type Candidates struct {
	Identity    string
	CaseRef     string
	Institution string
}

// Extract scans text for identity number, case reference, and institution
// name candidates. First match wins. Institution matching is containment
// against the provided directory names, case-insensitive.
func Extract(text string, institutions []string) Candidates {
	var c Candidates
	if m := identityScan.FindString(text); m != "" {
		c.Identity = strings.ToUpper(m)
	}
	if m := caseScan.FindString(text); m != "" {
		c.CaseRef = strings.ToUpper(m)
	}
	upper := strings.ToUpper(text)
	for _, name := range institutions {
		if name == "" {
			continue
		}
		if strings.Contains(upper, strings.ToUpper(name)) {
			c.Institution = strings.ToUpper(name)
			break
		}
	}
	return c
}

// ValidIdentity reports whether s is a canonical identity number:
// one letter from the national prefix set, seven digits, one checksum letter.
func ValidIdentity(s string) bool {
	return identityCanonical.MatchString(s)
}

// ValidCase reports whether s is a canonical case reference.
func ValidCase(s string) bool {
	return caseCanonical.MatchString(s)
}

// Guidance returns a deterministic corrective message when the text shows
// keyword evidence of an identifier handover but no canonical candidate, so
// the turn can be answered locally without a collaborator call. It returns ""
// when there is nothing to correct. Once a session already holds both
// validated identifiers the short-circuit is suppressed entirely, so partial
// digits inside in-flow answers are never misdiagnosed.
func Guidance(text string, alreadyAuthenticated bool) string {
	if alreadyAuthenticated {
		return ""
	}
	if !digits.MatchString(text) {
		return ""
	}
	lower := strings.ToLower(text)

	if (containsAny(lower, identityKeywords) || finWord.MatchString(text)) && identityScan.FindString(text) == "" {
		return fmt.Sprintf("It looks like you are trying to share an identity number, but %q does not match the expected format. "+
			"An NRIC/FIN starts with S, T, F or G, followed by 7 digits and a letter, e.g. S1234567A. Could you check and resend it?",
			strings.TrimSpace(text))
	}
	if containsAny(lower, caseKeywords) && caseScan.FindString(text) == "" {
		return "That does not look like a valid case reference. A case reference is TX followed by 3 digits, e.g. TX001. Could you check and resend it?"
	}
	return ""
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
