// Package notify 根据业务事件渲染模板，并通过邮件、聊天消息和事件总线发送通知。
// 发送始终在异步执行器中进行，失败只记录日志，不影响触发它的状态变更。
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MorseWayne/bp_store/internal/async"
)

// Channel 通知渠道
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelChat  Channel = "chat"
	ChannelEvent Channel = "event" // 领域事件，供下游系统订阅
)

// 事件键
const (
	EventOrderCreated         = "order.created"
	EventOrderPaymentReminder = "order.payment_reminder"
	EventReturnCreated        = "return.created"
)

// OrderStatusEvent 订单状态变更事件键
func OrderStatusEvent(statusKey string) string { return "order.status." + statusKey }

// ReturnStatusEvent 退换货状态变更事件键
func ReturnStatusEvent(statusKey string) string { return "return.status." + statusKey }

// Message 渲染完成、待发送的一条消息
type Message struct {
	Channel Channel
	Event   string
	To      string
	Subject string
	Body    string
	Key     string // 事件总线的分区键
	Payload []byte // 事件总线的 JSON 负载
}

// Sender 单个渠道的发送实现
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Event 待通知的业务事件
type Event struct {
	Key   string
	Email string
	Phone string
	// Channels 为空时发送到所有可用渠道
	Channels []Channel
	Data     TemplateData
}

// Dispatcher 通知分发器
type Dispatcher struct {
	senders   map[Channel]Sender
	templates *Templates
	runner    async.Runner
	logger    *zap.Logger
	now       func() time.Time
}

// NewDispatcher 创建分发器，senders 中缺失的渠道不发送
func NewDispatcher(senders map[Channel]Sender, templates *Templates, runner async.Runner, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		senders:   senders,
		templates: templates,
		runner:    runner,
		logger:    logger,
		now:       time.Now,
	}
}

// Notify 提交一次异步通知，立即返回
func (d *Dispatcher) Notify(_ context.Context, ev Event) {
	d.runner.Go("notify:"+ev.Key, func(ctx context.Context) error {
		return d.Deliver(ctx, ev)
	})
}

// Deliver 同步渲染并发送到各渠道，返回所有渠道的错误合集
func (d *Dispatcher) Deliver(ctx context.Context, ev Event) error {
	messages, err := d.render(ev)
	if err != nil {
		return fmt.Errorf("render %s: %w", ev.Key, err)
	}

	var errs []error
	for _, msg := range messages {
		sender, ok := d.senders[msg.Channel]
		if !ok {
			continue
		}
		if err := sender.Send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", msg.Channel, err))
			continue
		}
		d.logger.Debug("notification sent", zap.String("event", ev.Key), zap.String("channel", string(msg.Channel)))
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) render(ev Event) ([]Message, error) {
	wanted := func(c Channel) bool {
		if len(ev.Channels) == 0 {
			return true
		}
		for _, w := range ev.Channels {
			if w == c {
				return true
			}
		}
		return false
	}

	var messages []Message

	if ev.Email != "" && wanted(ChannelEmail) && d.templates.Has(ev.Key, ChannelEmail) {
		subject, body, err := d.templates.RenderEmail(ev.Key, ev.Data)
		if err != nil {
			return nil, err
		}
		messages = append(messages, Message{Channel: ChannelEmail, Event: ev.Key, To: ev.Email, Subject: subject, Body: body})
	}

	if ev.Phone != "" && wanted(ChannelChat) && d.templates.Has(ev.Key, ChannelChat) {
		body, err := d.templates.RenderChat(ev.Key, ev.Data)
		if err != nil {
			return nil, err
		}
		messages = append(messages, Message{Channel: ChannelChat, Event: ev.Key, To: ev.Phone, Body: body})
	}

	if _, ok := d.senders[ChannelEvent]; ok && wanted(ChannelEvent) {
		payload, key, err := encodeEvent(ev, d.now())
		if err != nil {
			return nil, err
		}
		messages = append(messages, Message{Channel: ChannelEvent, Event: ev.Key, Key: key, Payload: payload})
	}

	return messages, nil
}
