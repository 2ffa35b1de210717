// Package session holds the single mutable record for one conversation.
// Every field is mutated through named methods so the monotonicity invariants
// (approved and notified never go back to false outside Reset) hold
// mechanically rather than by convention.
package session

import (
	"sync"
	"time"

	"taxbuddy/extract"
	"taxbuddy/records"
)

// Phase is the explicit eligibility-check state, advanced deterministically by
// the orchestrator. It only moves forward within a session.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseDisclosed
	PhaseFundsChecked
	PhaseAccountConfirmed
	PhaseDetermined
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseDisclosed:
		return "disclosed"
	case PhaseFundsChecked:
		return "funds_checked"
	case PhaseAccountConfirmed:
		return "account_confirmed"
	case PhaseDetermined:
		return "determined"
	default:
		return "unknown"
	}
}

// ParsePhase maps a phase name back to its value; unknown names map to
// PhaseInit so a malformed collaborator report can never advance the state.
func ParsePhase(name string) Phase {
	switch name {
	case "disclosed":
		return PhaseDisclosed
	case "funds_checked":
		return PhaseFundsChecked
	case "account_confirmed":
		return PhaseAccountConfirmed
	case "determined":
		return PhaseDetermined
	default:
		return PhaseInit
	}
}

// Turn is one transcript entry.
type Turn struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Session is one conversation's state. Field access goes through methods; the
// turn lock serializes whole turns so no turn observes a half-applied update
// or a half-cleared reset.
type Session struct {
	id string

	turnMu sync.Mutex
	mu     sync.RWMutex

	identity    string
	caseRef     string
	institution string

	transcript []Turn
	summary    *records.CaseSummary

	phase           Phase
	approved        bool
	notified        bool
	approvalSummary string
	notifiedAddress string

	createdAt time.Time
}

func New(id string) *Session {
	return &Session{id: id, createdAt: time.Now().UTC()}
}

func (s *Session) ID() string { return s.id }

// LockTurn serializes turn processing: one user turn runs start-to-finish
// before the next is accepted.
func (s *Session) LockTurn()   { s.turnMu.Lock() }
func (s *Session) UnlockTurn() { s.turnMu.Unlock() }

// SetIdentity stores a validated identity number. Non-canonical candidates
// are rejected so an unvalidated value can never enter session state.
func (s *Session) SetIdentity(v string) bool {
	if !extract.ValidIdentity(v) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = v
	return true
}

// SetCaseRef stores a validated case reference.
func (s *Session) SetCaseRef(v string) bool {
	if !extract.ValidCase(v) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caseRef = v
	return true
}

func (s *Session) SetInstitution(v string) {
	if v == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.institution = v
}

func (s *Session) Identity() string { s.mu.RLock(); defer s.mu.RUnlock(); return s.identity }

func (s *Session) CaseRef() string { s.mu.RLock(); defer s.mu.RUnlock(); return s.caseRef }

func (s *Session) Institution() string { s.mu.RLock(); defer s.mu.RUnlock(); return s.institution }

// Authenticated reports whether both identifiers are validated and present.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != "" && s.caseRef != ""
}

// Append adds one turn to the transcript. Append-only within a session.
func (s *Session) Append(role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, Turn{Role: role, Text: text, At: time.Now().UTC()})
}

// Transcript returns a copy of the transcript.
func (s *Session) Transcript() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// SetSummary replaces the case summary with a freshly resolved projection.
func (s *Session) SetSummary(sum *records.CaseSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = sum
}

func (s *Session) Summary() *records.CaseSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary
}

func (s *Session) Phase() Phase { s.mu.RLock(); defer s.mu.RUnlock(); return s.phase }

// AdvancePhase moves the phase forward. Backward or repeated transitions are
// no-ops.
func (s *Session) AdvancePhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p > s.phase {
		s.phase = p
	}
}

// MarkApproved flips the monotonic approved flag and captures the
// de-sentineled summary text at that moment. Re-assertions are no-ops and do
// not overwrite the captured summary. Returns true on the first transition.
func (s *Session) MarkApproved(summary string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.approved {
		return false
	}
	s.approved = true
	s.approvalSummary = summary
	return true
}

func (s *Session) Approved() bool { s.mu.RLock(); defer s.mu.RUnlock(); return s.approved }

func (s *Session) ApprovalSummary() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.approvalSummary
}

func (s *Session) Notified() bool { s.mu.RLock(); defer s.mu.RUnlock(); return s.notified }

func (s *Session) NotifiedAddress() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notifiedAddress
}

// MarkNotified flips the monotonic notified flag, recording the resolved
// address. Returns false when already notified.
func (s *Session) MarkNotified(address string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notified {
		return false
	}
	s.notified = true
	s.notifiedAddress = address
	return true
}

// Reset clears every field back to its initial value in one operation.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = ""
	s.caseRef = ""
	s.institution = ""
	s.transcript = nil
	s.summary = nil
	s.phase = PhaseInit
	s.approved = false
	s.notified = false
	s.approvalSummary = ""
	s.notifiedAddress = ""
}

// Snapshot is the read-only view the display surface consumes.
type Snapshot struct {
	ID              string               `json:"id"`
	Identity        string               `json:"identity_number,omitempty"`
	CaseRef         string               `json:"case_reference,omitempty"`
	Institution     string               `json:"institution,omitempty"`
	Phase           string               `json:"phase"`
	Approved        bool                 `json:"approved"`
	Notified        bool                 `json:"notified"`
	NotifiedAddress string               `json:"notified_address,omitempty"`
	Transcript      []Turn               `json:"transcript"`
	Summary         *records.CaseSummary `json:"case_summary,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
}

// Snapshot copies the current state for rendering.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	transcript := make([]Turn, len(s.transcript))
	copy(transcript, s.transcript)
	return Snapshot{
		ID:              s.id,
		Identity:        s.identity,
		CaseRef:         s.caseRef,
		Institution:     s.institution,
		Phase:           s.phase.String(),
		Approved:        s.approved,
		Notified:        s.notified,
		NotifiedAddress: s.notifiedAddress,
		Transcript:      transcript,
		Summary:         s.summary,
		CreatedAt:       s.createdAt,
	}
}
