// Package workflow is the session-scoped eligibility engine: it extracts and
// validates facts from conversational turns, delegates judgment to the
// reasoning collaborator under deterministic guardrails, and fires the
// outbound release notice at most once per session.
package workflow

import (
	"context"
	"log"

	"taxbuddy/config"
	"taxbuddy/extract"
	"taxbuddy/internal/metrics"
	"taxbuddy/notify"
	"taxbuddy/records"
	"taxbuddy/session"
)

// Resolver looks up the case summary for a validated identifier pair.
// Implemented by records.Store.
type Resolver interface {
	Resolve(ctx context.Context, identity, caseRef string) (*records.CaseSummary, error)
}

// Options parameterizes the single collapsed workflow.
type Options struct {
	RequireInstitutionMatch bool
	DisclosureImmediate     bool
	Temperature             float64
	MaxTurnTokens           int
}

// NotifyResult reports what the idempotent notifier did for one turn.
type NotifyResult struct {
	Sent    bool
	Address string
	Err     error
}

const (
	lookupMissMessage = "I could not find any matching tax records for the NRIC and case reference you provided. Please double-check both values; if they are correct, the case may not be in our system yet."
	apologyMessage    = "I'm sorry, I'm having trouble reaching our systems right now. Your details are safe; please try again in a moment."
)

// Engine orchestrates one conversation turn end to end.
type Engine struct {
	resolver  Resolver
	collab    Collaborator
	transport notify.Transport
	composer  notify.Composer
	directory config.Directory
	opts      Options
}

func NewEngine(resolver Resolver, collab Collaborator, transport notify.Transport, directory config.Directory, opts Options) *Engine {
	return &Engine{
		resolver:  resolver,
		collab:    collab,
		transport: transport,
		composer:  notify.Composer{Directory: directory},
		directory: directory,
		opts:      opts,
	}
}

// Advance processes one user turn start to finish and returns the assistant
// text. Local, provable problems (malformed identifiers, lookup misses) are
// answered deterministically without a collaborator call.
func (e *Engine) Advance(ctx context.Context, sess *session.Session, userText string) (string, error) {
	sess.LockTurn()
	defer sess.UnlockTurn()
	metrics.IncTurn()

	alreadyAuthenticated := sess.Authenticated()

	cands := extract.Extract(userText, e.directory.Names())
	if cands.Identity != "" {
		sess.SetIdentity(cands.Identity)
	}
	if cands.CaseRef != "" {
		sess.SetCaseRef(cands.CaseRef)
	}
	if cands.Institution != "" {
		sess.SetInstitution(cands.Institution)
	}

	if msg := extract.Guidance(userText, alreadyAuthenticated); msg != "" {
		metrics.IncShortCircuit()
		sess.Append(RoleUser, userText)
		sess.Append(RoleAssistant, msg)
		return msg, nil
	}

	// Refresh the summary every turn that has both identifiers; never cache.
	storeDown := false
	if sess.Authenticated() {
		sum, err := e.resolver.Resolve(ctx, sess.Identity(), sess.CaseRef())
		if err != nil {
			log.Printf("workflow: records store unavailable: %v", err)
			storeDown = true
		} else {
			sess.SetSummary(sum)
			// A miss is provable locally. Answer it deterministically on the
			// turn that introduced the identifiers; later turns keep chatting
			// with no record facts, so record-dependent phases cannot proceed.
			if sum == nil && (cands.Identity != "" || cands.CaseRef != "") {
				metrics.IncShortCircuit()
				sess.Append(RoleUser, userText)
				sess.Append(RoleAssistant, lookupMissMessage)
				return lookupMissMessage, nil
			}
		}
	}

	msgs := buildMessages(sess, userText, e.opts, e.directory.Names(), storeDown)
	metrics.IncCollaboratorCall()
	raw, err := e.collab.Complete(ctx, msgs, e.opts.Temperature, e.opts.MaxTurnTokens)
	if err != nil {
		metrics.IncCollaboratorFailure()
		log.Printf("workflow: collaborator error: %v", err)
		sess.Append(RoleUser, userText)
		return apologyMessage, nil
	}

	outcome := ParseOutcome(raw)

	// Identifiers the collaborator echoes back can complete the pair through
	// the same validated setters, but only fill gaps; they never overwrite
	// what the user asserted, and the institution match is user-only.
	echo := extract.Extract(outcome.Reply, e.directory.Names())
	if echo.Identity != "" && sess.Identity() == "" {
		sess.SetIdentity(echo.Identity)
	}
	if echo.CaseRef != "" && sess.CaseRef() == "" {
		sess.SetCaseRef(echo.CaseRef)
	}

	// A turn whose re-resolve failed holds the previous summary, which is
	// stale by definition. No record-dependent phase moves on it and no
	// approval can stand on it.
	if !storeDown {
		e.applyPhase(sess, outcome)
	}

	approvedThisTurn := !storeDown && outcome.Approved && e.approvable(sess)
	if approvedThisTurn {
		sess.AdvancePhase(session.PhaseDetermined)
		sess.MarkApproved(outcome.Reply)
	}

	sess.Append(RoleUser, userText)
	sess.Append(RoleAssistant, outcome.Reply)

	// Only a turn carrying an approval signal triggers (or retries) delivery;
	// a failure is never retried within the same turn.
	if approvedThisTurn {
		if res := e.maybeNotify(ctx, sess); res.Err != nil {
			log.Printf("workflow: notice delivery failed (approval stands): %v", res.Err)
		}
	}
	return outcome.Reply, nil
}

// applyPhase advances the explicit phase from the collaborator's report,
// clamped by what the session can actually support: nothing past init without
// validated identifiers and a resolved summary, and never backwards.
func (e *Engine) applyPhase(sess *session.Session, outcome Outcome) {
	reported := session.ParsePhase(outcome.Phase)
	if reported == session.PhaseInit {
		return
	}
	if !sess.Authenticated() || sess.Summary() == nil {
		return
	}
	sess.AdvancePhase(reported)
}

// approvable enforces the deterministic guardrails that the collaborator's
// judgment cannot override.
func (e *Engine) approvable(sess *session.Session) bool {
	if !sess.Authenticated() {
		return false
	}
	sum := sess.Summary()
	if sum == nil {
		return false
	}
	if !sum.Settled() && sum.TotalPaid == 0 {
		return false
	}
	if e.opts.RequireInstitutionMatch && sum.Hold != nil {
		if sess.Institution() == "" || sess.Institution() != sum.Hold.Institution {
			return false
		}
	}
	return true
}

// maybeNotify fires the one-shot release notice when the session is approved
// and has not yet notified. A failed send leaves notified false so a later
// approved turn acts as the retry; nothing is retried within the same turn.
func (e *Engine) maybeNotify(ctx context.Context, sess *session.Session) NotifyResult {
	if !sess.Approved() || sess.Notified() {
		return NotifyResult{}
	}
	institution := sess.Institution()
	if institution == "" {
		if sum := sess.Summary(); sum != nil && sum.Hold != nil {
			institution = sum.Hold.Institution
		}
	}
	notice := e.composer.Compose(sess.Identity(), sess.CaseRef(), institution, sess.ApprovalSummary(), config.Now())
	if err := e.transport.Send(ctx, notice); err != nil {
		metrics.IncNoticeFailed()
		return NotifyResult{Address: notice.To, Err: err}
	}
	sess.MarkNotified(notice.To)
	metrics.IncNoticeSent()
	log.Printf("workflow: release notice sent ref=%s to=%s", notice.Reference, notice.To)
	return NotifyResult{Sent: true, Address: notice.To}
}
