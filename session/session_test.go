package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxbuddy/records"
)

func TestSetIdentityRejectsUnvalidated(t *testing.T) {
	s := New("test")
	assert.False(t, s.SetIdentity("12345"))
	assert.Empty(t, s.Identity())
	assert.True(t, s.SetIdentity("S1234567A"))
	assert.Equal(t, "S1234567A", s.Identity())
}

func TestAuthenticatedNeedsBothIdentifiers(t *testing.T) {
	s := New("test")
	s.SetIdentity("S1234567A")
	assert.False(t, s.Authenticated())
	s.SetCaseRef("TX001")
	assert.True(t, s.Authenticated())
}

func TestMarkApprovedIsMonotonic(t *testing.T) {
	s := New("test")
	require.True(t, s.MarkApproved("first summary"))
	assert.False(t, s.MarkApproved("second summary"))
	assert.Equal(t, "first summary", s.ApprovalSummary(), "re-assertion must not overwrite the captured summary")
	assert.True(t, s.Approved())
}

func TestMarkNotifiedFiresOnce(t *testing.T) {
	s := New("test")
	require.True(t, s.MarkNotified("holds@dbs.example.com"))
	assert.False(t, s.MarkNotified("other@example.com"))
	assert.Equal(t, "holds@dbs.example.com", s.NotifiedAddress())
}

func TestAdvancePhaseNeverMovesBackward(t *testing.T) {
	s := New("test")
	s.AdvancePhase(PhaseFundsChecked)
	s.AdvancePhase(PhaseDisclosed)
	assert.Equal(t, PhaseFundsChecked, s.Phase())
	s.AdvancePhase(PhaseDetermined)
	assert.Equal(t, PhaseDetermined, s.Phase())
}

func TestResetClearsEverything(t *testing.T) {
	s := New("test")
	s.SetIdentity("S1234567A")
	s.SetCaseRef("TX001")
	s.SetInstitution("DBS")
	s.Append("user", "hello")
	s.SetSummary(&records.CaseSummary{CurrentBalance: 0})
	s.AdvancePhase(PhaseDetermined)
	s.MarkApproved("summary")
	s.MarkNotified("holds@dbs.example.com")

	s.Reset()

	snap := s.Snapshot()
	assert.Empty(t, snap.Identity)
	assert.Empty(t, snap.CaseRef)
	assert.Empty(t, snap.Institution)
	assert.Empty(t, snap.Transcript)
	assert.Nil(t, snap.Summary)
	assert.Equal(t, "init", snap.Phase)
	assert.False(t, snap.Approved)
	assert.False(t, snap.Notified)
	assert.Empty(t, snap.NotifiedAddress)

	// flags may rise again after a full reset
	assert.True(t, s.MarkApproved("again"))
	assert.True(t, s.MarkNotified("again@example.com"))
}

func TestParsePhaseUnknownStaysInit(t *testing.T) {
	assert.Equal(t, PhaseInit, ParsePhase("galactic"))
	assert.Equal(t, PhaseAccountConfirmed, ParsePhase("account_confirmed"))
}

func TestManagerLifecycle(t *testing.T) {
	m := NewManager()
	s := m.Create()
	require.NotEmpty(t, s.ID())

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = m.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	m.Delete(s.ID())
	assert.Equal(t, 0, m.Count())
}
