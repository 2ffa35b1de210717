package workflow

import (
	"fmt"
	"strings"

	"taxbuddy/session"
)

func buildSystemPrompt(opts Options, institutions []string) string {
	disclosure := "Disclose the liability totals and any account-hold detail in the SAME turn in which the records first become available. Never defer disclosure to a later turn."
	if !opts.DisclosureImmediate {
		disclosure = "Disclose the liability totals and any account-hold detail once the user asks about their case."
	}
	match := "The institution the user names MUST match the institution holding the account hold; a mismatch is a terminal rejection."
	if !opts.RequireInstitutionMatch {
		match = "Note the institution the user names; a mismatch with the hold record should be queried but is not by itself terminal."
	}
	return strings.TrimSpace(fmt.Sprintf(`You are Tax Buddy, the IRAS assistant that walks a taxpayer through releasing an account hold once their case qualifies.

Known institutions: %s.

Return STRICT JSON ONLY with keys: reply, phase, approved, reason.
- reply: the conversational message shown to the user
- phase: one of "init", "disclosed", "funds_checked", "account_confirmed", "determined"
- approved: true ONLY in the determination turn of a qualifying case
- reason: one short sentence explaining the determination ("" before determination)

Eligibility protocol, in order, one question per turn:
1. Identity and disclosure. %s
2. Fund-availability check. Ask, using the hold's actual amount and institution from the facts, whether those funds are available. A negative answer is a terminal rejection: set phase "determined", approved false, state the reason, and ask no further questions.
3. Account confirmation. Ask which institution holds the funds and the last 4 digits of the account. %s
4. Determination. Approve only when ALL hold: outstanding balance settled (or payment evidence provided), fund availability confirmed, institution confirmed, and every fact above collected. On approval set approved true and include a structured summary in reply with sections "Bank Account Details", "Fund Availability", and "Verification". On rejection keep approved false and use the same summary shape with the reason stated.

Rules:
- Ask for information ONE item at a time, conversationally. Never list multiple questions in a single reply.
- Acknowledge each answer before the next question, and never re-ask for facts already in the conversation.
- Use ONLY the concrete case facts provided below. Never invent figures, dates, or institutions.
- If no case facts are provided yet, help with general tax questions and invite the user to share their NRIC and case reference.`, strings.Join(institutions, ", "), disclosure, match))
}

// renderFacts turns the session's resolved state into concrete fact lines.
// Only real values are rendered, never placeholders, so the collaborator has
// nothing to invent.
func renderFacts(sess *session.Session, storeDown bool) string {
	var b strings.Builder
	b.WriteString("Case facts:\n")
	if id := sess.Identity(); id != "" {
		fmt.Fprintf(&b, "- identity_number: %s\n", id)
	}
	if ref := sess.CaseRef(); ref != "" {
		fmt.Fprintf(&b, "- case_reference: %s\n", ref)
	}
	if inst := sess.Institution(); inst != "" {
		fmt.Fprintf(&b, "- institution_named_by_user: %s\n", inst)
	}
	if storeDown {
		b.WriteString("- case_records: unavailable (store error); do not proceed with record-dependent steps\n")
		return strings.TrimRight(b.String(), "\n")
	}
	sum := sess.Summary()
	if sum == nil {
		b.WriteString("- case_records: none loaded yet\n")
		return strings.TrimRight(b.String(), "\n")
	}
	fmt.Fprintf(&b, "- total_payable: S$%.2f\n", sum.TotalPayable)
	fmt.Fprintf(&b, "- total_paid: S$%.2f\n", sum.TotalPaid)
	fmt.Fprintf(&b, "- current_balance: S$%.2f\n", sum.CurrentBalance)
	if sum.Hold != nil {
		fmt.Fprintf(&b, "- hold_institution: %s\n", sum.Hold.Institution)
		fmt.Fprintf(&b, "- hold_amount: S$%.2f\n", sum.Hold.Amount)
		fmt.Fprintf(&b, "- hold_date: %s\n", sum.Hold.Date)
		if sum.Hold.AssessmentYear != 0 {
			fmt.Fprintf(&b, "- hold_assessment_year: %d\n", sum.Hold.AssessmentYear)
		}
	} else {
		b.WriteString("- hold: none on record\n")
	}
	fmt.Fprintf(&b, "- workflow_phase: %s\n", sess.Phase())
	return strings.TrimRight(b.String(), "\n")
}

// buildMessages assembles the context package: instructions, facts, the full
// transcript, and the pending user turn.
func buildMessages(sess *session.Session, userText string, opts Options, institutions []string, storeDown bool) []Message {
	system := buildSystemPrompt(opts, institutions) + "\n\n" + renderFacts(sess, storeDown)
	msgs := []Message{{Role: RoleSystem, Text: system}}
	for _, turn := range sess.Transcript() {
		msgs = append(msgs, Message{Role: turn.Role, Text: turn.Text})
	}
	msgs = append(msgs, Message{Role: RoleUser, Text: userText})
	return msgs
}
