// Package service ties sessions to the analysis loop: it resolves a
// session's bound datasets and history, runs the orchestrator, and records
// the finished turn back on the session.
package service

import (
	"context"
	"fmt"

	"datasage/internal/oracle"
	"datasage/internal/orchestrator"
	"datasage/internal/session"
)

// Service runs analyses against sessions. It satisfies the task queue's
// Analyzer contract.
type Service struct {
	sessions *session.Store
	orch     *orchestrator.Orchestrator
}

// New creates a service.
func New(sessions *session.Store, orch *orchestrator.Orchestrator) *Service {
	return &Service{sessions: sessions, orch: orch}
}

// Analyze answers one question in the context of a session. On success the
// turn is appended to the session history so later questions can refer back
// to it; failed runs are recorded too, without an answer.
func (s *Service) Analyze(ctx context.Context, sessionID, query string, progress orchestrator.ProgressFunc) (*orchestrator.Response, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("resolving session: %w", err)
	}

	resp, err := s.orch.Run(ctx, orchestrator.Request{
		Query:    query,
		Bindings: sess.Bindings,
		History:  sess.Turns,
	}, progress)

	turn := oracle.Turn{Query: query, OK: err == nil}
	if err == nil {
		turn.Answer = resp.Result.Render()
	}
	// The session may have expired mid-run; losing the turn is fine then.
	_ = s.sessions.AppendTurn(sessionID, turn)

	return resp, err
}
