package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datasage/internal/dataset"
	"datasage/internal/oracle"
	"datasage/internal/orchestrator"
	"datasage/internal/sandbox"
	"datasage/internal/session"
)

type scriptedGenerator struct {
	requests []oracle.Request
}

func (g *scriptedGenerator) Generate(ctx context.Context, req oracle.Request) (string, error) {
	g.requests = append(g.requests, req)
	return "program", nil
}

type scriptedExecutor struct {
	outcome sandbox.Outcome
}

func (e *scriptedExecutor) Run(ctx context.Context, source string, binds *dataset.Bindings) (sandbox.Outcome, error) {
	return e.outcome, nil
}

func newTestService(t *testing.T, exec *scriptedExecutor) (*Service, *session.Store, *scriptedGenerator) {
	t.Helper()
	store := session.NewStore(session.Options{TTL: time.Hour, SweepInterval: time.Hour})
	t.Cleanup(store.Close)
	gen := &scriptedGenerator{}
	orch := orchestrator.New(gen, exec, orchestrator.DefaultConfig())
	return New(store, orch), store, gen
}

func boundSession(t *testing.T, store *session.Store) string {
	t.Helper()
	id := store.Create("m")
	tbl := dataset.New("sales", []string{"year", "amount"}, [][]string{{"2021", "100"}})
	binds, err := dataset.Bind([]*dataset.Table{tbl})
	require.NoError(t, err)
	require.NoError(t, store.BindDatasets(id, binds, nil))
	return id
}

func TestAnalyzeRecordsTurn(t *testing.T) {
	svc, store, _ := newTestService(t, &scriptedExecutor{outcome: sandbox.Outcome{
		Success: true, Result: 100.0, HasResult: true,
	}})
	id := boundSession(t, store)

	resp, err := svc.Analyze(context.Background(), id, "total amount", nil)
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StateSucceeded, resp.State)

	sess, err := store.Get(id)
	require.NoError(t, err)
	require.Len(t, sess.Turns, 1)
	assert.True(t, sess.Turns[0].OK)
	assert.Equal(t, "total amount", sess.Turns[0].Query)
	assert.Equal(t, "100", sess.Turns[0].Answer)
}

func TestAnalyzeFeedsHistoryToGenerator(t *testing.T) {
	svc, store, gen := newTestService(t, &scriptedExecutor{outcome: sandbox.Outcome{
		Success: true, Result: "fine", HasResult: true,
	}})
	id := boundSession(t, store)

	_, err := svc.Analyze(context.Background(), id, "first question", nil)
	require.NoError(t, err)
	_, err = svc.Analyze(context.Background(), id, "second question", nil)
	require.NoError(t, err)

	require.Len(t, gen.requests, 2)
	assert.Empty(t, gen.requests[0].History)
	require.Len(t, gen.requests[1].History, 1)
	assert.Equal(t, "first question", gen.requests[1].History[0].Query)
}

func TestAnalyzeFailedRunRecordsFailedTurn(t *testing.T) {
	svc, store, _ := newTestService(t, &scriptedExecutor{outcome: sandbox.Outcome{
		Fault: &sandbox.Fault{Kind: sandbox.FaultRuntime, Message: "boom"},
	}})
	id := boundSession(t, store)

	_, err := svc.Analyze(context.Background(), id, "q", nil)
	require.Error(t, err)

	sess, err := store.Get(id)
	require.NoError(t, err)
	require.Len(t, sess.Turns, 1)
	assert.False(t, sess.Turns[0].OK)
	assert.Empty(t, sess.Turns[0].Answer)
}

func TestAnalyzeUnknownSession(t *testing.T) {
	svc, _, _ := newTestService(t, &scriptedExecutor{})
	_, err := svc.Analyze(context.Background(), "missing", "q", nil)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestAnalyzeSessionWithoutDatasets(t *testing.T) {
	svc, store, gen := newTestService(t, &scriptedExecutor{})
	id := store.Create("m")

	_, err := svc.Analyze(context.Background(), id, "q", nil)
	assert.ErrorIs(t, err, orchestrator.ErrNoDatasets)
	assert.Empty(t, gen.requests)
}
