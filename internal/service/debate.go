package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"debateai/internal/apperrors"
	"debateai/internal/identity"
	"debateai/internal/llm"
	"debateai/internal/models"
	"debateai/internal/repository"
)

type DebateService struct {
	debates      repository.DebateRepository
	turns        repository.TurnRepository
	provider     llm.Provider
	catalog      *llm.Catalog
	defaultModel string
	logger       *slog.Logger
}

func NewDebateService(debates repository.DebateRepository, turns repository.TurnRepository, provider llm.Provider,
	catalog *llm.Catalog, defaultModel string, logger *slog.Logger) *DebateService {
	return &DebateService{
		debates:      debates,
		turns:        turns,
		provider:     provider,
		catalog:      catalog,
		defaultModel: defaultModel,
		logger:       logger,
	}
}

type CreateDebateInput struct {
	Topic   string `json:"topic" binding:"required,max=1000"`
	Persona string `json:"persona" binding:"required,max=200"`
	Model   string `json:"model"`
}

// CreateDebate 建立辯論並產生簡短標題
// 模型服務拒絕時回傳錯誤，其他標題產生失敗則改用原始主題
func (s *DebateService) CreateDebate(ctx context.Context, input CreateDebateInput, caller identity.Caller) (*models.Debate, error) {
	model := strings.TrimSpace(input.Model)
	if _, ok := s.catalog.Lookup(model); !ok {
		model = s.defaultModel
	}

	shortTopic, err := s.provider.ShortTitle(ctx, s.defaultModel, input.Topic)
	switch {
	case errors.Is(err, apperrors.ErrProviderRejected):
		return nil, err
	case err != nil:
		s.logger.WarnContext(ctx, "short title generation failed, using topic", "error", err)
		shortTopic = input.Topic
	case shortTopic == "":
		shortTopic = input.Topic
	}

	debate := &models.Debate{
		Topic:      input.Topic,
		ShortTopic: shortTopic,
		Persona:    input.Persona,
		Model:      model,
	}
	if caller.Authenticated {
		debate.UserID = &caller.UserID
	}

	if err := s.debates.Create(ctx, debate); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "debate created", "debate_id", debate.ID, "model", model)
	return debate, nil
}

func (s *DebateService) GetDebate(ctx context.Context, id string) (*models.Debate, error) {
	return s.debates.FindByID(ctx, id)
}

// ListTurns 回傳辯論的所有回合，辯論不存在時回傳 ErrNotFound
func (s *DebateService) ListTurns(ctx context.Context, debateID string) ([]models.Turn, error) {
	if _, err := s.debates.FindByID(ctx, debateID); err != nil {
		return nil, err
	}
	return s.turns.FindByDebateID(ctx, debateID)
}

func (s *DebateService) ListDebates(ctx context.Context, userID string) ([]models.Debate, error) {
	return s.debates.FindByUser(ctx, userID)
}
