package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debateai/internal/apperrors"
	"debateai/internal/identity"
	"debateai/internal/llm"
	"debateai/internal/logging"
	"debateai/internal/models"
	"debateai/internal/relay"
	"debateai/internal/repository"
	"debateai/internal/testutil"
	"debateai/pkg/config"
)

type fakeStream struct {
	fragments []string
}

func (s *fakeStream) Recv() (string, error) {
	if len(s.fragments) == 0 {
		return "", io.EOF
	}
	f := s.fragments[0]
	s.fragments = s.fragments[1:]
	return f, nil
}

func (s *fakeStream) Close() error { return nil }

type fakeProvider struct {
	mu        sync.Mutex
	fragments []string
	err       error
	// hang 為 true 時一直等到 ctx 結束，模擬沒有回應的模型服務
	hang     bool
	requests []llm.CompletionRequest
	title    string
	titleErr error
}

func (p *fakeProvider) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (llm.Stream, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	hang := p.hang
	p.mu.Unlock()
	if hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return &fakeStream{fragments: append([]string(nil), p.fragments...)}, nil
}

func (p *fakeProvider) ShortTitle(context.Context, string, string) (string, error) {
	return p.title, p.titleErr
}

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// lengthTokenizer 以四個字元估算一個 token
type lengthTokenizer struct{ extra int }

func (l lengthTokenizer) Count(_ string, text string) (int, error) {
	return len(text)/4 + l.extra, nil
}

type fixture struct {
	repos    *repository.Repositories
	services *Services
	provider *fakeProvider
	cfg      *config.Config
}

func newFixture(t *testing.T, tokenizer llm.Tokenizer) *fixture {
	t.Helper()
	if tokenizer == nil {
		tokenizer = lengthTokenizer{}
	}
	cfg := &config.Config{
		Auth: config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour},
		Turn: config.TurnConfig{
			DefaultModel:      "gpt-4o-mini",
			TrialLimit:        5,
			GenerationTimeout: 5 * time.Second,
			PersistTimeout:    5 * time.Second,
			PersistPartial:    true,
		},
	}
	repos := repository.NewRepositories(testutil.OpenDB(t))
	provider := &fakeProvider{fragments: []string{"First point. ", "Second point."}, title: "Car Bans"}
	return &fixture{
		repos:    repos,
		services: NewServices(repos, cfg, provider, tokenizer, logging.Discard()),
		provider: provider,
		cfg:      cfg,
	}
}

func (f *fixture) debate(t *testing.T) *models.Debate {
	t.Helper()
	debate := &models.Debate{Topic: "Should cities ban cars downtown?", ShortTopic: "Car Bans", Persona: "Socrates", Model: "gpt-4o-mini"}
	require.NoError(t, f.repos.Debate.Create(context.Background(), debate))
	return debate
}

func body(t *testing.T, req map[string]any) []byte {
	t.Helper()
	b, err := json.Marshal(req)
	require.NoError(t, err)
	return b
}

// runTurn 執行一個完整回合並等待寫入完成
func (f *fixture) runTurn(t *testing.T, debateID string, req map[string]any, caller identity.Caller) (string, *PreparedTurn, error) {
	t.Helper()
	prepared, err := f.services.Turn.Prepare(context.Background(), debateID, body(t, req), caller)
	if err != nil {
		return "", nil, err
	}
	var out bytes.Buffer
	result := prepared.Stream(context.Background(), &out)
	require.NoError(t, <-result.Persisted)
	return out.String(), prepared, nil
}

func TestTurnSequenceAcrossCases(t *testing.T) {
	f := newFixture(t, nil)
	debate := f.debate(t)
	ctx := context.Background()

	steps := []struct {
		req     map[string]any
		speaker models.Speaker
		order   int
	}{
		{map[string]any{"speaker": "user", "argument": "Cars pollute.", "userId": "anon-1"}, models.SpeakerAI, 2},
		{map[string]any{"speaker": "AI_for_user", "userId": "anon-1"}, models.SpeakerAIForUser, 3},
		{map[string]any{"speaker": "AI", "userId": "anon-1"}, models.SpeakerAI, 4},
		{map[string]any{"speaker": "user", "argument": "Buses exist.", "userId": "anon-1"}, models.SpeakerAI, 6},
	}
	for _, step := range steps {
		out, prepared, err := f.runTurn(t, debate.ID, step.req, identity.Anonymous())
		require.NoError(t, err)
		assert.Equal(t, "First point. Second point.", out)
		assert.Equal(t, step.speaker, prepared.Speaker)
		assert.Equal(t, step.order, prepared.OrderNumber)
		assert.Equal(t, "gpt-4o-mini", prepared.Model)
	}

	turns, err := f.repos.Turn.FindByDebateID(ctx, debate.ID)
	require.NoError(t, err)
	require.Len(t, turns, 6)
	for i, turn := range turns {
		assert.Equal(t, i+1, turn.OrderNumber)
		assert.Equal(t, "anon-1", turn.UserID)
	}
	assert.Equal(t, "Cars pollute.", turns[0].Content)
	assert.Equal(t, models.SpeakerUser, turns[0].Speaker)
	assert.Equal(t, "First point. Second point.", turns[1].Content)
	assert.Equal(t, models.SpeakerAIForUser, turns[2].Speaker)
	assert.Equal(t, "Buses exist.", turns[4].Content)

	assert.Equal(t, debate.ID, f.provider.requests[0].Metadata[headerDebateID])
	assert.Equal(t, "anon-1", f.provider.requests[0].Metadata[headerUserID])
	assert.Positive(t, f.provider.requests[0].MaxTokens)
	assert.Zero(t, f.services.Turn.locks.Len())
}

func TestAIOpens(t *testing.T) {
	f := newFixture(t, nil)
	debate := f.debate(t)

	_, prepared, err := f.runTurn(t, debate.ID, map[string]any{"speaker": "AI", "userId": "anon-1"}, identity.Anonymous())
	require.NoError(t, err)
	assert.Equal(t, 1, prepared.OrderNumber)

	_, _, err = f.runTurn(t, debate.ID, map[string]any{"speaker": "AI", "userId": "anon-1"}, identity.Anonymous())
	assert.ErrorIs(t, err, apperrors.ErrInvalidSequence)
	assert.Equal(t, 1, f.provider.calls())
}

func TestTurnValidation(t *testing.T) {
	f := newFixture(t, nil)
	debate := f.debate(t)

	tests := []struct {
		name     string
		debateID string
		body     []byte
		want     error
	}{
		{"missing identity", debate.ID, body(t, map[string]any{"speaker": "AI"}), apperrors.ErrUserNotFound},
		{"unknown speaker", debate.ID, body(t, map[string]any{"speaker": "judge", "userId": "a"}), apperrors.ErrInvalidTurnRequest},
		{"malformed body", debate.ID, []byte("{"), apperrors.ErrInvalidTurnRequest},
		{"missing argument", debate.ID, body(t, map[string]any{"speaker": "user", "userId": "a"}), apperrors.ErrInvalidTurnRequest},
		{"missing debate", "nope", body(t, map[string]any{"speaker": "AI", "userId": "a"}), apperrors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.services.Turn.Prepare(context.Background(), tt.debateID, tt.body, identity.Anonymous())
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Zero(t, f.provider.calls())
	assert.Zero(t, f.services.Turn.locks.Len())
}

func TestProviderRejectionPersistsNothing(t *testing.T) {
	f := newFixture(t, nil)
	f.provider.err = apperrors.ErrProviderRejected
	debate := f.debate(t)

	_, _, err := f.runTurn(t, debate.ID, map[string]any{"speaker": "user", "argument": "hi", "userId": "a"}, identity.Anonymous())
	assert.ErrorIs(t, err, apperrors.ErrProviderRejected)

	turns, err := f.repos.Turn.FindByDebateID(context.Background(), debate.ID)
	require.NoError(t, err)
	assert.Empty(t, turns)
	assert.Zero(t, f.services.Turn.locks.Len())
}

func TestInsufficientBudget(t *testing.T) {
	f := newFixture(t, lengthTokenizer{extra: 127_990})
	debate := f.debate(t)

	_, _, err := f.runTurn(t, debate.ID, map[string]any{"speaker": "AI", "userId": "a"}, identity.Anonymous())
	assert.ErrorIs(t, err, apperrors.ErrInsufficientBudget)
	assert.Zero(t, f.provider.calls())
}

func TestPaidModelEntitlement(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	debate := f.debate(t)

	_, _, err := f.runTurn(t, debate.ID, map[string]any{"speaker": "AI", "userId": "a", "model": "gpt-4o"}, identity.Anonymous())
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	user, err := f.services.User.Register(ctx, "alice", "password1")
	require.NoError(t, err)
	token, err := f.services.User.Login(ctx, "alice", "password1")
	require.NoError(t, err)
	caller, err := f.services.Identity.Resolve(ctx, "Bearer "+token)
	require.NoError(t, err)
	require.True(t, caller.Authenticated)

	_, prepared, err := f.runTurn(t, debate.ID, map[string]any{"speaker": "AI", "model": "gpt-4o"}, caller)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", prepared.Model)

	profile, err := f.repos.Profile.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, profile.ProTrialCount)

	turns, err := f.repos.Turn.FindByDebateID(ctx, debate.ID)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, user.ID, turns[0].UserID)
	assert.Equal(t, "gpt-4o", turns[0].Model)
}

func TestConcurrentTurnsAreSerialized(t *testing.T) {
	f := newFixture(t, nil)
	debate := f.debate(t)

	req := body(t, map[string]any{"speaker": "AI", "userId": "a"})
	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			prepared, err := f.services.Turn.Prepare(context.Background(), debate.ID, req, identity.Anonymous())
			if err != nil {
				errs[i] = err
				return
			}
			errs[i] = <-prepared.Stream(context.Background(), io.Discard).Persisted
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrInvalidSequence)
	}
	assert.Equal(t, 1, succeeded)

	turns, err := f.repos.Turn.FindByDebateID(context.Background(), debate.ID)
	require.NoError(t, err)
	assert.Len(t, turns, 1)
}

func TestAbortReleasesLock(t *testing.T) {
	f := newFixture(t, nil)
	debate := f.debate(t)

	prepared, err := f.services.Turn.Prepare(context.Background(), debate.ID,
		body(t, map[string]any{"speaker": "AI", "userId": "a"}), identity.Anonymous())
	require.NoError(t, err)
	prepared.Abort()
	prepared.Abort()

	assert.ErrorIs(t, <-prepared.Stream(context.Background(), io.Discard).Persisted, relay.ErrNotPersisted)
	assert.Zero(t, f.services.Turn.locks.Len())

	turns, err := f.repos.Turn.FindByDebateID(context.Background(), debate.ID)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestCreateDebate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	debate, err := f.services.Debate.CreateDebate(ctx, CreateDebateInput{
		Topic: "Should cities ban cars downtown?", Persona: "Socrates", Model: "gpt-4o",
	}, identity.Anonymous())
	require.NoError(t, err)
	assert.Equal(t, "Car Bans", debate.ShortTopic)
	assert.Equal(t, "gpt-4o", debate.Model)
	assert.Nil(t, debate.UserID)

	f.provider.titleErr = apperrors.ErrProviderUnavailable
	debate, err = f.services.Debate.CreateDebate(ctx, CreateDebateInput{
		Topic: "Is remote work better?", Persona: "Lincoln", Model: "made-up",
	}, identity.Caller{UserID: "u1", Authenticated: true})
	require.NoError(t, err)
	assert.Equal(t, "Is remote work better?", debate.ShortTopic)
	assert.Equal(t, "gpt-4o-mini", debate.Model)
	require.NotNil(t, debate.UserID)

	list, err := f.services.Debate.ListDebates(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, debate.ID, list[0].ID)

	f.provider.titleErr = apperrors.ErrProviderRejected
	_, err = f.services.Debate.CreateDebate(ctx, CreateDebateInput{Topic: "bad", Persona: "x"}, identity.Anonymous())
	assert.ErrorIs(t, err, apperrors.ErrProviderRejected)

	_, err = f.services.Debate.ListTurns(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserLogin(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.services.User.Register(ctx, "bob", "hunter22")
	require.NoError(t, err)

	_, err = f.services.User.Register(ctx, "bob", "again")
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	token, err := f.services.User.Login(ctx, "bob", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(token, "."))

	_, err = f.services.User.Login(ctx, "bob", "wrong")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	_, err = f.services.User.Login(ctx, "nobody", "wrong")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestDebateLocks(t *testing.T) {
	locks := NewDebateLocks()
	unlock, err := locks.Lock(context.Background(), "d1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locks.Lock(ctx, "d1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := locks.Lock(context.Background(), "d2")
	require.NoError(t, err)
	other()

	unlock()
	unlock()
	assert.Zero(t, locks.Len())

	again, err := locks.Lock(context.Background(), "d1")
	require.NoError(t, err)
	again()
}

func TestGenerationTimeout(t *testing.T) {
	f := newFixture(t, nil)
	f.provider.hang = true
	f.cfg.Turn.GenerationTimeout = 50 * time.Millisecond
	f.services = NewServices(f.repos, f.cfg, f.provider, lengthTokenizer{}, logging.Discard())
	debate := f.debate(t)

	start := time.Now()
	_, _, err := f.runTurn(t, debate.ID, map[string]any{"speaker": "user", "argument": "hi", "userId": "a"}, identity.Anonymous())

	assert.ErrorIs(t, err, apperrors.ErrProviderUnavailable)
	assert.True(t, apperrors.IsRetryable(err))
	assert.Less(t, time.Since(start), 2*time.Second)

	turns, err := f.repos.Turn.FindByDebateID(context.Background(), debate.ID)
	require.NoError(t, err)
	assert.Empty(t, turns)
	assert.Zero(t, f.services.Turn.locks.Len())
}

func TestShutdownWaitsForInflightTurns(t *testing.T) {
	f := newFixture(t, nil)
	debate := f.debate(t)
	ctx := context.Background()

	prepared, err := f.services.Turn.Prepare(ctx, debate.ID,
		body(t, map[string]any{"speaker": "AI", "userId": "a"}), identity.Anonymous())
	require.NoError(t, err)

	shutdown := make(chan error, 1)
	go func() { shutdown <- f.services.Turn.Shutdown(ctx) }()

	// 關閉中不接受新的回合
	require.Eventually(t, func() bool {
		_, err := f.services.Turn.Prepare(ctx, "other", body(t, map[string]any{"speaker": "AI", "userId": "a"}), identity.Anonymous())
		return errors.Is(err, apperrors.ErrShuttingDown)
	}, time.Second, 5*time.Millisecond)

	select {
	case <-shutdown:
		t.Fatal("shutdown returned while a turn was in flight")
	default:
	}

	require.NoError(t, <-prepared.Stream(ctx, io.Discard).Persisted)
	require.NoError(t, <-shutdown)

	turns, err := f.repos.Turn.FindByDebateID(ctx, debate.ID)
	require.NoError(t, err)
	assert.Len(t, turns, 1)
}

func TestShutdownTimesOut(t *testing.T) {
	f := newFixture(t, nil)
	debate := f.debate(t)

	prepared, err := f.services.Turn.Prepare(context.Background(), debate.ID,
		body(t, map[string]any{"speaker": "AI", "userId": "a"}), identity.Anonymous())
	require.NoError(t, err)
	defer prepared.Abort()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.services.Turn.Shutdown(ctx), context.DeadlineExceeded)
}
