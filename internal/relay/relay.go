// Package relay 將模型輸出串流給呼叫者，同時在背景累積完整內容並於結束後寫入儲存。
//
// 每段輸出先送進累積 goroutine 再寫給呼叫者，因此呼叫者收到的位元組
// 一定是最後寫入內容的前綴；正常結束時兩者完全相同。
package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"debateai/internal/llm"
)

// ErrNotPersisted 表示中斷的回合依設定沒有寫入
var ErrNotPersisted = errors.New("turn not persisted")

// PersistFunc 寫入完整的回合內容
type PersistFunc func(ctx context.Context, content string) error

type Options struct {
	PersistTimeout time.Duration
	// PersistPartial 決定呼叫者中途斷線時是否寫入已收到的部分內容
	PersistPartial bool
}

type Relay struct {
	opts   Options
	logger *slog.Logger
	wg     sync.WaitGroup
}

func New(opts Options, logger *slog.Logger) *Relay {
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 30 * time.Second
	}
	return &Relay{opts: opts, logger: logger}
}

type Result struct {
	Fragments   int
	Interrupted bool
	// Persisted 在寫入完成後收到一個結果並關閉
	Persisted <-chan error
}

type flusher interface {
	Flush()
}

// Pipe 讀取 stream 直到結束並寫入 sink，回傳時寫入可能仍在背景進行
// stream 會在回傳前關閉
func (r *Relay) Pipe(ctx context.Context, stream llm.Stream, sink io.Writer, persist PersistFunc) Result {
	fragments := make(chan string, 16)
	interrupted := make(chan bool, 1)
	persisted := make(chan error, 1)

	r.wg.Add(1)
	go r.accumulate(ctx, fragments, interrupted, persisted, persist)

	result := Result{Persisted: persisted}
	result.Interrupted = r.produce(ctx, stream, sink, fragments, &result.Fragments)

	interrupted <- result.Interrupted
	close(fragments)
	return result
}

func (r *Relay) produce(ctx context.Context, stream llm.Stream, sink io.Writer, fragments chan<- string, count *int) bool {
	defer stream.Close()
	f, canFlush := sink.(flusher)

	for {
		if ctx.Err() != nil {
			r.logger.Info("caller went away", "fragments", *count)
			return true
		}

		fragment, err := stream.Recv()
		if err == io.EOF {
			return false
		}
		if err != nil {
			if ctx.Err() != nil {
				return true
			}
			// 中途的模型錯誤視為串流結束，保留已收到的內容
			r.logger.Warn("completion stream ended with error", "error", err, "fragments", *count)
			return false
		}

		fragments <- fragment
		*count++

		if _, err := io.WriteString(sink, fragment); err != nil {
			r.logger.Info("caller write failed", "error", err, "fragments", *count)
			return true
		}
		if canFlush {
			f.Flush()
		}
	}
}

func (r *Relay) accumulate(ctx context.Context, fragments <-chan string, interrupted <-chan bool, persisted chan<- error, persist PersistFunc) {
	defer r.wg.Done()
	defer close(persisted)

	var content strings.Builder
	count := 0
	for fragment := range fragments {
		content.WriteString(fragment)
		count++
	}

	if <-interrupted && (!r.opts.PersistPartial || count == 0) {
		persisted <- ErrNotPersisted
		return
	}

	// 呼叫者的 context 可能已取消，寫入改用獨立的逾時
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.PersistTimeout)
	defer cancel()

	err := persist(persistCtx, content.String())
	if err != nil {
		r.logger.Error("failed to persist turn", "error", err, "bytes", content.Len())
	}
	persisted <- err
}

// Wait 等待所有背景寫入完成，用於關機流程
func (r *Relay) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
