// Package notify builds and delivers the official release notice that follows
// an approved eligibility check.
package notify

import (
	"fmt"
	"strings"
	"time"

	"taxbuddy/config"
)

// Notice is one outbound message, ready for the transport.
type Notice struct {
	To          string `json:"to"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	Institution string `json:"institution"`
	Reference   string `json:"reference"`
}

// Composer renders notices from the fixed template plus extracted case facts.
type Composer struct {
	Directory config.Directory
}

// Compose builds the release notice. The recipient comes from the institution
// directory with a default fallback; the case details come from the approval
// summary with conversational filler stripped.
func (c Composer) Compose(identity, caseRef, institution, approvalSummary string, now time.Time) Notice {
	ref := fmt.Sprintf("IRAS-REL-%s-%s", caseRef, now.Format("20060102"))
	salutation := "Dear Bank Officer,"
	if institution != "" {
		salutation = fmt.Sprintf("Dear %s Officer,", strings.ToUpper(institution))
	}

	var b strings.Builder
	b.WriteString(salutation + "\n\n")
	b.WriteString("This is an official notification from the " + c.Directory.Contact.Agency + " regarding an account hold release request.\n\n")
	b.WriteString("ACCOUNT HOLD RELEASE NOTICE\n")
	b.WriteString("================================\n\n")
	fmt.Fprintf(&b, "Reference: %s\n", ref)
	fmt.Fprintf(&b, "Date of Issue: %s\n", now.Format("02 January 2006"))
	fmt.Fprintf(&b, "Time of Issue: %s\n\n", now.Format("15:04:05"))
	fmt.Fprintf(&b, "Taxpayer: %s\nCase Reference: %s\n\n", identity, caseRef)
	b.WriteString("CASE DETAILS:\n")
	b.WriteString(ExtractSections(approvalSummary))
	b.WriteString("\n\nAUTHORIZATION:\n")
	b.WriteString("This notice authorizes the bank to release the affected account(s). The taxpayer's outstanding liabilities have been verified as settled.\n\n")
	b.WriteString("Please process this release at your earliest convenience and notify the account holder once the account has been restored to normal operation.\n\n")
	b.WriteString("---\n")
	fmt.Fprintf(&b, "%s\n", c.Directory.Contact.Agency)
	if c.Directory.Contact.Website != "" {
		fmt.Fprintf(&b, "%s\n", c.Directory.Contact.Website)
	}
	if c.Directory.Contact.Phone != "" {
		fmt.Fprintf(&b, "Helpline: %s\n", c.Directory.Contact.Phone)
	}
	fmt.Fprintf(&b, "Generated on %s\n", now.Format("02 January 2006 at 15:04:05"))

	return Notice{
		To:          c.Directory.Address(institution),
		Subject:     fmt.Sprintf("IRAS Account Hold Release Notice - %s (%s)", identity, caseRef),
		Body:        b.String(),
		Institution: strings.ToUpper(institution),
		Reference:   ref,
	}
}

// section headings worth carrying into an official notice.
var sectionKeywords = []string{
	"bank", "account", "institution", "fund", "payment", "verification", "confirm", "case", "balance", "liabilit",
}

// closing-remark markers that end the usable part of the summary.
var fillerMarkers = []string{
	"thank you", "feel free", "let me know", "is there anything else", "next steps", "we will notify",
}

// ExtractSections keeps only the institution-detail, fund-availability, and
// verification portions of the approval summary, discarding conversational
// closing remarks so filler never leaks into the outbound notice.
func ExtractSections(summary string) string {
	lines := strings.Split(summary, "\n")
	var kept []string
	keeping := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		if trimmed == "" {
			keeping = false
			continue
		}
		if isFiller(lower) {
			break
		}
		if isHeading(trimmed) {
			keeping = matchesSection(lower)
			if keeping {
				kept = append(kept, trimmed)
			}
			continue
		}
		if keeping || matchesSection(lower) {
			kept = append(kept, trimmed)
		}
	}
	if len(kept) == 0 {
		return strings.TrimSpace(summary)
	}
	return strings.Join(kept, "\n")
}

func isHeading(line string) bool {
	if strings.HasSuffix(line, ":") {
		return true
	}
	letters := 0
	upper := 0
	for _, r := range line {
		if r >= 'a' && r <= 'z' {
			letters++
		}
		if r >= 'A' && r <= 'Z' {
			letters++
			upper++
		}
	}
	return letters > 3 && upper == letters
}

func matchesSection(lower string) bool {
	for _, kw := range sectionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func isFiller(lower string) bool {
	for _, marker := range fillerMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
