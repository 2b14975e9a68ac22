package models

// All 回傳需要自動遷移的模型
func All() []any {
	return []any{&User{}, &Profile{}, &Debate{}, &Turn{}}
}
