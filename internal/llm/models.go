package llm

import (
	"slices"

	"github.com/samber/lo"
)

// ModelSpec 描述模型的上下文長度與輸出上限
type ModelSpec struct {
	ID                  string
	ContextWindow       int
	MaxCompletionTokens int
	Free                bool
	Encoding            string
}

const (
	EncodingO200K  = "o200k_base"
	EncodingCL100K = "cl100k_base"
)

// DefaultModels 是預設的模型目錄
var DefaultModels = []ModelSpec{
	{ID: "gpt-4o-mini", ContextWindow: 128000, MaxCompletionTokens: 16384, Free: true, Encoding: EncodingO200K},
	{ID: "gpt-3.5-turbo-0125", ContextWindow: 16385, MaxCompletionTokens: 4096, Free: true, Encoding: EncodingCL100K},
	{ID: "gpt-3.5-turbo", ContextWindow: 16385, MaxCompletionTokens: 4096, Free: true, Encoding: EncodingCL100K},
	{ID: "gpt-4o", ContextWindow: 128000, MaxCompletionTokens: 16384, Encoding: EncodingO200K},
	{ID: "gpt-4-turbo", ContextWindow: 128000, MaxCompletionTokens: 4096, Encoding: EncodingCL100K},
	{ID: "gpt-4", ContextWindow: 8192, MaxCompletionTokens: 8192, Encoding: EncodingCL100K},
}

// Catalog 是可查詢的模型目錄
type Catalog struct {
	specs map[string]ModelSpec
}

func NewCatalog(specs ...ModelSpec) *Catalog {
	if len(specs) == 0 {
		specs = DefaultModels
	}
	return &Catalog{specs: lo.SliceToMap(specs, func(s ModelSpec) (string, ModelSpec) {
		return s.ID, s
	})}
}

func (c *Catalog) Lookup(id string) (ModelSpec, bool) {
	spec, ok := c.specs[id]
	return spec, ok
}

func (c *Catalog) IsFree(id string) bool {
	spec, ok := c.specs[id]
	return ok && spec.Free
}

// IDs 依字母排序回傳所有模型 ID
func (c *Catalog) IDs() []string {
	ids := lo.Keys(c.specs)
	slices.Sort(ids)
	return ids
}
