package notify

import (
	"encoding/json"
	"time"
)

// eventEnvelope 事件总线消息格式
type eventEnvelope struct {
	Event      string    `json:"event"`
	OccurredAt time.Time `json:"occurredAt"`
	Order      any       `json:"order,omitempty"`
	Return     any       `json:"return,omitempty"`
}

// encodeEvent 编码事件负载，分区键取订单号以保证同一订单的事件有序
func encodeEvent(ev Event, now time.Time) ([]byte, string, error) {
	env := eventEnvelope{Event: ev.Key, OccurredAt: now.UTC()}
	var key string
	if ev.Data.Order != nil {
		env.Order = ev.Data.Order
		key = ev.Data.Order.OrderNumber
	}
	if ev.Data.Return != nil {
		env.Return = ev.Data.Return
		if key == "" {
			key = ev.Data.Return.OrderNumber
		}
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, "", err
	}
	return payload, key, nil
}
