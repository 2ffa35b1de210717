package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// approvalSentinel is the legacy out-of-band marker some collaborator replies
// embed in prose. The structured outcome is the primary signal; the sentinel
// is still honored, and it never reaches user-visible text.
const approvalSentinel = "BANK_APPOINTMENT_RELEASE_APPROVED"

// Outcome is the structured result the collaborator is instructed to return:
// the user-facing reply plus the machine-readable decision, validated against
// an explicit schema instead of scanning prose.
type Outcome struct {
	Reply    string `json:"reply"`
	Phase    string `json:"phase"`
	Approved bool   `json:"approved"`
	Reason   string `json:"reason"`
}

// ParseOutcome extracts the structured outcome from a collaborator reply. On
// any schema violation it degrades to treating the whole reply as prose, with
// the sentinel substring as the only approval signal, so a malformed response
// can never corrupt session state.
func ParseOutcome(content string) Outcome {
	out, err := parseStrict(content)
	if err != nil {
		out = Outcome{Reply: content}
	}
	if strings.Contains(out.Reply, approvalSentinel) {
		out.Approved = true
	}
	out.Reply = StripSentinel(out.Reply)
	out.Phase = strings.ToLower(strings.TrimSpace(out.Phase))
	out.Reason = strings.TrimSpace(out.Reason)
	return out
}

func parseStrict(content string) (Outcome, error) {
	obj := extractJSONObject(content)
	if obj == "" {
		return Outcome{}, errors.New("no json object found")
	}
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return Outcome{}, err
	}
	allowed := map[string]struct{}{
		"reply": {}, "phase": {}, "approved": {}, "reason": {},
	}
	for key := range raw {
		if _, ok := allowed[key]; !ok {
			return Outcome{}, fmt.Errorf("unexpected key %q", key)
		}
	}
	if _, ok := raw["reply"]; !ok {
		return Outcome{}, errors.New(`missing key "reply"`)
	}
	var out Outcome
	if err := json.Unmarshal([]byte(obj), &out); err != nil {
		return Outcome{}, err
	}
	out.Reply = strings.TrimSpace(out.Reply)
	if out.Reply == "" {
		return Outcome{}, errors.New("empty reply")
	}
	return out, nil
}

// StripSentinel removes every occurrence of the approval sentinel and tidies
// the surrounding whitespace.
func StripSentinel(s string) string {
	if !strings.Contains(s, approvalSentinel) {
		return s
	}
	return strings.TrimSpace(strings.ReplaceAll(s, approvalSentinel, ""))
}

func extractJSONObject(input string) string {
	start := strings.Index(input, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(input); i++ {
		ch := input[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			if ch == '\\' {
				escaped = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}
	return ""
}
