// Package service 实现订单、库存、退换货的业务逻辑层。
package service

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/MorseWayne/bp_store/internal/config"
	"github.com/MorseWayne/bp_store/internal/notify"
)

// maxNumberAttempts 订单号、申请号唯一键冲突时的最大尝试次数
const maxNumberAttempts = 3

// Notifier 通知出口，实现方必须异步发送且不返回错误
type Notifier interface {
	Notify(ctx context.Context, ev notify.Event)
}

// Config 注入服务层的业务配置
type Config struct {
	StoreName string
	Bank      config.BankConfig
	Policy    config.PolicyConfig
}

// templateData 组装通知模板的公共字段
func (c Config) templateData() notify.TemplateData {
	return notify.TemplateData{
		StoreName:        c.StoreName,
		Bank:             c.Bank,
		ReturnWindowDays: c.Policy.ReturnWindowDays,
	}
}

// clock 可在测试中替换的时间和随机数来源
type clock struct {
	now  func() time.Time
	intn func(n int) int
}

func defaultClock() clock {
	return clock{now: time.Now, intn: rand.IntN}
}
