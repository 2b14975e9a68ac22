package llm

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Tokenizer 計算文字的 token 數
type Tokenizer interface {
	Count(encoding, text string) (int, error)
}

var loaderOnce sync.Once

// TiktokenCounter 使用內嵌的 BPE 表，不需要網路
type TiktokenCounter struct {
	mu        sync.Mutex
	encodings map[string]*tiktoken.Tiktoken
}

func NewTiktokenCounter() *TiktokenCounter {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	return &TiktokenCounter{encodings: make(map[string]*tiktoken.Tiktoken)}
}

func (c *TiktokenCounter) Count(encoding, text string) (int, error) {
	enc, err := c.encoding(encoding)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

func (c *TiktokenCounter) encoding(name string) (*tiktoken.Tiktoken, error) {
	if name == "" {
		name = EncodingCL100K
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if enc, ok := c.encodings[name]; ok {
		return enc, nil
	}
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", name, err)
	}
	c.encodings[name] = enc
	return enc, nil
}
