// Package notifytest 提供记录型发送器，供测试断言通知已发出
package notifytest

import (
	"context"
	"sync"

	"github.com/MorseWayne/bp_store/internal/notify"
)

// Recorder 记录所有发送的消息，可注入错误
type Recorder struct {
	mu       sync.Mutex
	messages []notify.Message
	Err      error
}

// Send 记录消息
func (r *Recorder) Send(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return r.Err
}

// Messages 返回已记录消息的副本
func (r *Recorder) Messages() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Message(nil), r.messages...)
}

// Events 返回已记录消息的事件键
func (r *Recorder) Events() []string {
	var keys []string
	for _, m := range r.Messages() {
		keys = append(keys, m.Event)
	}
	return keys
}
