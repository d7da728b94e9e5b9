// Package async 执行不阻塞主流程的副作用任务（通知发送等）。
// 任务失败只记录日志，不重试。
package async

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
)

// Task 一个副作用任务
type Task func(ctx context.Context) error

// Runner 提交任务的接口
type Runner interface {
	Go(name string, task Task)
}

// GoroutineRunner 每个任务一个 goroutine，记录在途任务以便优雅退出时等待
type GoroutineRunner struct {
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewGoroutineRunner 创建异步执行器
func NewGoroutineRunner(logger *zap.Logger) *GoroutineRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoroutineRunner{logger: logger}
}

// Go 异步执行任务，调用方立即返回
func (r *GoroutineRunner) Go(name string, task Task) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		run(context.Background(), r.logger, name, task)
	}()
}

// Wait 等待所有在途任务完成，ctx 到期时返回错误
func (r *GoroutineRunner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait async tasks: %w", ctx.Err())
	}
}

// SyncRunner 同步执行任务，测试中用于断言副作用已发生
type SyncRunner struct {
	logger *zap.Logger
}

// NewSyncRunner 创建同步执行器
func NewSyncRunner(logger *zap.Logger) *SyncRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncRunner{logger: logger}
}

// Go 在当前 goroutine 中执行任务
func (r *SyncRunner) Go(name string, task Task) {
	run(context.Background(), r.logger, name, task)
}

func run(ctx context.Context, logger *zap.Logger, name string, task Task) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("async task panicked",
				zap.String("task", name),
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()

	if err := task(ctx); err != nil {
		logger.Warn("async task failed", zap.String("task", name), zap.Error(err))
	}
}
