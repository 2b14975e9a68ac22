// Package entitlement 決定呼叫者可以使用哪個模型。
//
// Resolve 只做判斷，不修改任何狀態；試用次數在 Commit 時才扣除，
// 並由儲存層的條件式更新保證不超過上限。
package entitlement

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"debateai/internal/apperrors"
	"debateai/internal/identity"
	"debateai/internal/llm"
)

// TrialCounter 以條件式更新扣除試用次數，次數已滿時回傳 false
type TrialCounter interface {
	IncrementTrialCount(ctx context.Context, id string, limit int) (bool, error)
}

type Options struct {
	DefaultModel  string
	TrialLimit    int
	AllowOverride bool
}

type Resolver struct {
	catalog *llm.Catalog
	counter TrialCounter
	opts    Options
	logger  *slog.Logger
}

func NewResolver(catalog *llm.Catalog, counter TrialCounter, opts Options, logger *slog.Logger) *Resolver {
	return &Resolver{catalog: catalog, counter: counter, opts: opts, logger: logger}
}

type Request struct {
	// Model 為呼叫者指定的模型，空字串表示由伺服器決定
	Model  string
	Caller identity.Caller
	// Override 對應請求中的 heh 旗標
	Override bool
	// Fallback 是辯論建立時綁定的模型
	Fallback string
}

// Grant 是允許使用的模型
type Grant struct {
	Model llm.ModelSpec
	// ConsumeTrial 為 true 時 Commit 會扣除 ProfileID 的一次試用
	ConsumeTrial bool
	ProfileID    string
	Bypassed     bool
	Downgraded   bool
}

func (r *Resolver) defaultSpec() llm.ModelSpec {
	spec, ok := r.catalog.Lookup(r.opts.DefaultModel)
	if !ok {
		return llm.ModelSpec{ID: r.opts.DefaultModel, Free: true}
	}
	return spec
}

// Resolve 依呼叫者身分與方案決定模型
func (r *Resolver) Resolve(ctx context.Context, req Request) (Grant, error) {
	requested := strings.TrimSpace(req.Model)
	inferred := requested == ""
	if inferred {
		requested = req.Fallback
	}

	spec, ok := r.catalog.Lookup(requested)
	if !ok {
		if !inferred {
			r.logger.WarnContext(ctx, "unrecognised model requested, using default",
				"model", requested, "default", r.opts.DefaultModel)
		}
		return Grant{Model: r.defaultSpec()}, nil
	}

	caller := req.Caller
	if req.Override {
		if r.opts.AllowOverride && caller.Authenticated {
			r.logger.InfoContext(ctx, "entitlement override", "user_id", caller.UserID, "model", spec.ID)
			return Grant{Model: spec, Bypassed: true}, nil
		}
		r.logger.DebugContext(ctx, "ignoring entitlement override", "authenticated", caller.Authenticated)
	}

	if r.catalog.IsFree(spec.ID) {
		return Grant{Model: spec}, nil
	}

	if caller.Authenticated && caller.Profile != nil {
		if caller.Profile.IsPro() {
			return Grant{Model: spec}, nil
		}
		if caller.Profile.ProTrialCount < r.opts.TrialLimit {
			return Grant{Model: spec, ConsumeTrial: true, ProfileID: caller.Profile.ID}, nil
		}
	}

	// 伺服器推斷的模型不符資格時直接降級，呼叫者指定的則回傳錯誤
	if inferred {
		return Grant{Model: r.defaultSpec(), Downgraded: true}, nil
	}
	if !caller.Authenticated {
		return Grant{}, fmt.Errorf("model %s requires an account: %w", spec.ID, apperrors.ErrUnauthorized)
	}
	return Grant{}, fmt.Errorf("model %s: %w", spec.ID, apperrors.ErrPlanRequired)
}

// Commit 扣除試用次數，每個回合只能呼叫一次
func (r *Resolver) Commit(ctx context.Context, grant Grant) error {
	if !grant.ConsumeTrial {
		return nil
	}

	ok, err := r.counter.IncrementTrialCount(ctx, grant.ProfileID, r.opts.TrialLimit)
	if err != nil {
		return fmt.Errorf("consume trial: %w", err)
	}
	if !ok {
		return fmt.Errorf("trials exhausted for %s: %w", grant.ProfileID, apperrors.ErrPlanRequired)
	}
	r.logger.InfoContext(ctx, "pro trial consumed", "user_id", grant.ProfileID, "model", grant.Model.ID)
	return nil
}
