package metrics

import "sync/atomic"

var turns int64
var shortCircuits int64
var collaboratorCalls int64
var collaboratorFailures int64
var noticesSent int64
var noticesFailed int64

func IncTurn()                { atomic.AddInt64(&turns, 1) }
func IncShortCircuit()        { atomic.AddInt64(&shortCircuits, 1) }
func IncCollaboratorCall()    { atomic.AddInt64(&collaboratorCalls, 1) }
func IncCollaboratorFailure() { atomic.AddInt64(&collaboratorFailures, 1) }
func IncNoticeSent()          { atomic.AddInt64(&noticesSent, 1) }
func IncNoticeFailed()        { atomic.AddInt64(&noticesFailed, 1) }

func Snapshot() map[string]int64 {
	return map[string]int64{
		"turns":                 atomic.LoadInt64(&turns),
		"short_circuits":        atomic.LoadInt64(&shortCircuits),
		"collaborator_calls":    atomic.LoadInt64(&collaboratorCalls),
		"collaborator_failures": atomic.LoadInt64(&collaboratorFailures),
		"notices_sent":          atomic.LoadInt64(&noticesSent),
		"notices_failed":        atomic.LoadInt64(&noticesFailed),
	}
}
