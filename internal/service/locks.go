package service

import (
	"context"
	"sync"
)

// DebateLocks 讓同一場辯論的回合依序處理，不同辯論互不影響
type DebateLocks struct {
	mu    sync.Mutex
	locks map[string]*debateLock
}

type debateLock struct {
	ch   chan struct{}
	refs int
}

func NewDebateLocks() *DebateLocks {
	return &DebateLocks{locks: make(map[string]*debateLock)}
}

// Lock 取得辯論的鎖，ctx 結束時放棄等待
// 回傳的 unlock 可以重複呼叫
func (l *DebateLocks) Lock(ctx context.Context, debateID string) (func(), error) {
	l.mu.Lock()
	dl, ok := l.locks[debateID]
	if !ok {
		dl = &debateLock{ch: make(chan struct{}, 1)}
		l.locks[debateID] = dl
	}
	dl.refs++
	l.mu.Unlock()

	select {
	case dl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(debateID, dl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-dl.ch
			l.release(debateID, dl)
		})
	}, nil
}

func (l *DebateLocks) release(debateID string, dl *debateLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	dl.refs--
	if dl.refs == 0 {
		delete(l.locks, debateID)
	}
}

// Len 回傳目前被持有或等待中的辯論數
func (l *DebateLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
