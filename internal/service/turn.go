package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"debateai/internal/apperrors"
	"debateai/internal/conversation"
	"debateai/internal/entitlement"
	"debateai/internal/identity"
	"debateai/internal/llm"
	"debateai/internal/models"
	"debateai/internal/relay"
	"debateai/internal/repository"
)

// 轉送給模型服務的 metadata 標頭
const (
	headerDebateID = "Helicone-Property-DebateId"
	headerUserID   = "Helicone-User-Id"
)

type TurnService struct {
	assembler   *Assembler
	entitlement *entitlement.Resolver
	turns       repository.TurnRepository
	tokenizer   llm.Tokenizer
	provider    llm.Provider
	relay       *relay.Relay
	locks       *DebateLocks
	timeout     time.Duration
	logger      *slog.Logger

	// inflight 追蹤從 Prepare 開始到回合寫入完成的所有回合
	mu       sync.Mutex
	closing  bool
	inflight sync.WaitGroup
}

type TurnDeps struct {
	Assembler         *Assembler
	Entitlement       *entitlement.Resolver
	Turns             repository.TurnRepository
	Tokenizer         llm.Tokenizer
	Provider          llm.Provider
	Relay             *relay.Relay
	Locks             *DebateLocks
	GenerationTimeout time.Duration
	Logger            *slog.Logger
}

func NewTurnService(deps TurnDeps) *TurnService {
	if deps.Locks == nil {
		deps.Locks = NewDebateLocks()
	}
	if deps.GenerationTimeout <= 0 {
		deps.GenerationTimeout = 2 * time.Minute
	}
	return &TurnService{
		assembler:   deps.Assembler,
		entitlement: deps.Entitlement,
		turns:       deps.Turns,
		tokenizer:   deps.Tokenizer,
		provider:    deps.Provider,
		relay:       deps.Relay,
		locks:       deps.Locks,
		timeout:     deps.GenerationTimeout,
		logger:      deps.Logger,
	}
}

// PreparedTurn 是已經開始生成、等待串流給呼叫者的回合
// 必須呼叫 Stream 或 Abort 其中之一，否則辯論會一直被鎖住
type PreparedTurn struct {
	Model       string
	Speaker     models.Speaker
	OrderNumber int
	Case        conversation.Case

	svc      *TurnService
	debateID string
	userID   string
	stream   llm.Stream
	cancel   context.CancelFunc
	unlock   func()
	once     sync.Once
}

// Prepare 執行生成前的所有檢查並開啟模型串流
//
// 順序：取得辯論鎖、讀取資料、決定模型、組訊息、計算 token 預算、
// 開啟串流、扣除試用、寫入使用者論點。任何一步失敗都不會留下副作用，
// 開啟串流之後的失敗除外（試用已扣除時不退還）。
func (s *TurnService) Prepare(ctx context.Context, debateID string, body []byte, caller identity.Caller) (*PreparedTurn, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	unlockDebate, err := s.locks.Lock(ctx, debateID)
	if err != nil {
		s.inflight.Done()
		return nil, err
	}
	var once sync.Once
	unlock := func() {
		once.Do(func() {
			unlockDebate()
			s.inflight.Done()
		})
	}
	prepared := false
	defer func() {
		if !prepared {
			unlock()
		}
	}()

	tc, err := s.assembler.Assemble(ctx, debateID, body, caller)
	if err != nil {
		return nil, err
	}

	grant, err := s.entitlement.Resolve(ctx, entitlement.Request{
		Model:    tc.Request.Model,
		Caller:   caller,
		Override: tc.Request.Heh,
		Fallback: tc.Debate.Model,
	})
	if err != nil {
		return nil, err
	}

	plan, err := conversation.Build(conversation.Input{
		Debate:   tc.Debate,
		Turns:    tc.Turns,
		Speaker:  tc.Request.Speaker,
		Argument: tc.Request.Argument,
	})
	if err != nil {
		return nil, err
	}

	maxTokens, err := llm.Budget(plan.Messages, grant.Model, s.tokenizer)
	if err != nil {
		return nil, err
	}

	log := s.logger.With("debate_id", debateID, "case", plan.Case.String(), "model", grant.Model.ID)

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	stream, err := s.provider.StreamCompletion(genCtx, llm.CompletionRequest{
		Model:     grant.Model.ID,
		Messages:  plan.Messages,
		MaxTokens: maxTokens,
		Metadata: map[string]string{
			headerDebateID: debateID,
			headerUserID:   tc.UserID,
		},
	})
	if err != nil {
		// 模型在逾時前沒有任何輸出
		if errors.Is(genCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, apperrors.ErrProviderUnavailable) {
			err = fmt.Errorf("%w: %w", apperrors.ErrProviderUnavailable, err)
		}
		cancel()
		log.Warn("completion request failed", "error", err)
		return nil, err
	}

	abort := func() {
		_ = stream.Close()
		cancel()
	}

	if err := s.entitlement.Commit(ctx, grant); err != nil {
		abort()
		return nil, err
	}

	if plan.Pending != nil {
		plan.Pending.Model = grant.Model.ID
		plan.Pending.UserID = tc.UserID
		if err := s.turns.Create(ctx, plan.Pending); err != nil {
			abort()
			return nil, fmt.Errorf("persist argument: %w", err)
		}
	}

	log.Info("turn started", "order", plan.OrderNumber, "max_tokens", maxTokens,
		"trial", grant.ConsumeTrial, "downgraded", grant.Downgraded)

	prepared = true
	return &PreparedTurn{
		Model:       grant.Model.ID,
		Speaker:     plan.Speaker,
		OrderNumber: plan.OrderNumber,
		Case:        plan.Case,
		svc:         s,
		debateID:    debateID,
		userID:      tc.UserID,
		stream:      stream,
		cancel:      cancel,
		unlock:      unlock,
	}, nil
}

func (s *TurnService) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return apperrors.ErrShuttingDown
	}
	s.inflight.Add(1)
	return nil
}

// Shutdown 拒絕新的回合，並等待進行中的回合寫入完成
func (s *TurnService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stream 將模型輸出寫入 w，完整內容在背景寫入後才釋放辯論鎖
func (p *PreparedTurn) Stream(ctx context.Context, w io.Writer) relay.Result {
	var result relay.Result
	started := false
	p.once.Do(func() {
		started = true
		result = p.svc.relay.Pipe(ctx, p.stream, w, p.persist)
		p.cancel()
	})
	if !started {
		closed := make(chan error, 1)
		closed <- relay.ErrNotPersisted
		close(closed)
		return relay.Result{Persisted: closed}
	}

	persisted := make(chan error, 1)
	go func() {
		defer close(persisted)
		err := <-result.Persisted
		p.unlock()
		persisted <- err
	}()
	result.Persisted = persisted
	return result
}

// Abort 放棄尚未串流的回合
func (p *PreparedTurn) Abort() {
	p.once.Do(func() {
		_ = p.stream.Close()
		p.cancel()
		p.unlock()
	})
}

func (p *PreparedTurn) persist(ctx context.Context, content string) error {
	return p.svc.turns.Create(ctx, &models.Turn{
		DebateID:    p.debateID,
		Speaker:     p.Speaker,
		Content:     content,
		OrderNumber: p.OrderNumber,
		Model:       p.Model,
		UserID:      p.userID,
	})
}
