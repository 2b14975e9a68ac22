package service

import (
	"log/slog"

	"debateai/internal/entitlement"
	"debateai/internal/identity"
	"debateai/internal/llm"
	"debateai/internal/relay"
	"debateai/internal/repository"
	"debateai/pkg/config"
)

type Services struct {
	User     *UserService
	Debate   *DebateService
	Turn     *TurnService
	Identity *identity.Resolver
	// Relay 在關機時用來等待背景寫入
	Relay   *relay.Relay
	Catalog *llm.Catalog
}

func NewServices(repos *repository.Repositories, cfg *config.Config, provider llm.Provider, tokenizer llm.Tokenizer, logger *slog.Logger) *Services {
	catalog := llm.NewCatalog()

	entitlements := entitlement.NewResolver(catalog, repos.Profile, entitlement.Options{
		DefaultModel:  cfg.Turn.DefaultModel,
		TrialLimit:    cfg.Turn.TrialLimit,
		AllowOverride: cfg.Turn.AllowOverride,
	}, logger.With("component", "entitlement"))

	rl := relay.New(relay.Options{
		PersistTimeout: cfg.Turn.PersistTimeout,
		PersistPartial: cfg.Turn.PersistPartial,
	}, logger.With("component", "relay"))

	return &Services{
		User:     NewUserService(repos.User, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Debate:   NewDebateService(repos.Debate, repos.Turn, provider, catalog, cfg.Turn.DefaultModel, logger.With("component", "debate")),
		Identity: identity.NewResolver(cfg.Auth.JWTSecret, repos.Profile, logger.With("component", "identity")),
		Turn: NewTurnService(TurnDeps{
			Assembler:         NewAssembler(repos.Debate, repos.Turn),
			Entitlement:       entitlements,
			Turns:             repos.Turn,
			Tokenizer:         tokenizer,
			Provider:          provider,
			Relay:             rl,
			GenerationTimeout: cfg.Turn.GenerationTimeout,
			Logger:            logger.With("component", "turn"),
		}),
		Relay:   rl,
		Catalog: catalog,
	}
}
