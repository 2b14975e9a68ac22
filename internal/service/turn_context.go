package service

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"golang.org/x/sync/errgroup"

	"debateai/internal/apperrors"
	"debateai/internal/identity"
	"debateai/internal/models"
	"debateai/internal/repository"
)

// TurnRequest 是呼叫者送來的回合請求
type TurnRequest struct {
	Speaker  models.Speaker `json:"speaker" binding:"required,oneof=user AI AI_for_user"`
	Argument string         `json:"argument" binding:"max=20000"`
	Model    string         `json:"model"`
	// UserID 是匿名呼叫者自己產生的 ID
	UserID string `json:"userId" binding:"max=64"`
	Heh    bool   `json:"heh"`
}

// TurnContext 是處理一個回合所需的全部資料
type TurnContext struct {
	Debate  *models.Debate
	Turns   []models.Turn
	Request TurnRequest
	Caller  identity.Caller
	// UserID 是驗證過的用戶 ID，或匿名請求帶的 userId
	UserID string
}

func (tc *TurnContext) HasTurns() bool {
	return len(tc.Turns) > 0
}

type Assembler struct {
	debates repository.DebateRepository
	turns   repository.TurnRepository
}

func NewAssembler(debates repository.DebateRepository, turns repository.TurnRepository) *Assembler {
	return &Assembler{debates: debates, turns: turns}
}

// Assemble 同時讀取辯論、歷史回合並解析請求，任一失敗就取消其他工作
func (a *Assembler) Assemble(ctx context.Context, debateID string, body []byte, caller identity.Caller) (*TurnContext, error) {
	var (
		debate *models.Debate
		turns  []models.Turn
		req    TurnRequest
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		debate, err = a.debates.FindByID(gctx, debateID)
		return err
	})
	g.Go(func() error {
		var err error
		turns, err = a.turns.FindByDebateID(gctx, debateID)
		if err != nil {
			return fmt.Errorf("load turns: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := binding.JSON.BindBody(body, &req); err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrInvalidTurnRequest, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	userID := req.UserID
	if caller.Authenticated {
		userID = caller.UserID
	}
	if userID == "" {
		return nil, apperrors.ErrUserNotFound
	}

	return &TurnContext{
		Debate:  debate,
		Turns:   turns,
		Request: req,
		Caller:  caller,
		UserID:  userID,
	}, nil
}
