package notify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/MorseWayne/bp_store/internal/config"
	"github.com/MorseWayne/bp_store/internal/domain"
)

// TemplateData 模板可用的数据
type TemplateData struct {
	StoreName        string
	Bank             config.BankConfig
	ReturnWindowDays int
	Order            *domain.Order
	Return           *domain.ReturnRequest
}

// Templates 按事件键和渠道组织的消息模板。
// 邮件模板第一行为标题，其余为正文。
type Templates struct {
	set *template.Template
}

var templateFuncs = template.FuncMap{
	"won": formatWon,
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}

// NewTemplates 解析内置模板
func NewTemplates() (*Templates, error) {
	set := template.New("notify").Funcs(templateFuncs).Option("missingkey=zero")
	for name, text := range builtinTemplates {
		if _, err := set.New(name).Parse(text); err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
	}
	return &Templates{set: set}, nil
}

// MustTemplates 解析内置模板，失败时 panic
func MustTemplates() *Templates {
	t, err := NewTemplates()
	if err != nil {
		panic(err)
	}
	return t
}

func templateName(event string, channel Channel) string {
	return event + "." + string(channel)
}

// Has 判断事件在该渠道是否有模板
func (t *Templates) Has(event string, channel Channel) bool {
	return t.set.Lookup(templateName(event, channel)) != nil
}

// RenderEmail 渲染邮件标题和正文
func (t *Templates) RenderEmail(event string, data TemplateData) (string, string, error) {
	out, err := t.render(templateName(event, ChannelEmail), data)
	if err != nil {
		return "", "", err
	}
	subject, body, _ := strings.Cut(out, "\n")
	return strings.TrimSpace(subject), strings.TrimSpace(body), nil
}

// RenderChat 渲染聊天消息
func (t *Templates) RenderChat(event string, data TemplateData) (string, error) {
	out, err := t.render(templateName(event, ChannelChat), data)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (t *Templates) render(name string, data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := t.set.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// formatWon 以千分位格式化金额，例如 73000 -> 73,000원
func formatWon(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := fmt.Sprintf("%d", amount)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + "원"
}

const orderSummary = `주문번호: {{.Order.OrderNumber}}
{{range .Order.Items}}- {{.ProductName}} ({{.Size}}) x {{.Quantity}}
{{end}}결제금액: {{won .Order.TotalAmount}}`

var builtinTemplates = map[string]string{
	"order.created.email": `[{{.StoreName}}] 주문이 접수되었습니다 ({{.Order.OrderNumber}})
{{.Order.CustomerName}}님, 주문해 주셔서 감사합니다.

` + orderSummary + `

아래 계좌로 입금해 주시면 확인 후 발송해 드립니다.
{{.Bank.Name}} {{.Bank.Account}} (예금주: {{.Bank.Holder}})
입금자명: {{.Order.DepositorName}}`,

	"order.created.chat": `[{{.StoreName}}] {{.Order.CustomerName}}님 주문이 접수되었습니다.
주문번호 {{.Order.OrderNumber}} / {{won .Order.TotalAmount}}
입금계좌: {{.Bank.Name}} {{.Bank.Account}} ({{.Bank.Holder}})`,

	"order.payment_reminder.email": `[{{.StoreName}}] 입금 확인 요청 ({{.Order.OrderNumber}})
{{.Order.CustomerName}}님, 아직 입금이 확인되지 않았습니다.

` + orderSummary + `

{{.Bank.Name}} {{.Bank.Account}} (예금주: {{.Bank.Holder}})
입금자명: {{.Order.DepositorName}}`,

	"order.status.payment_confirmed.email": `[{{.StoreName}}] 입금이 확인되었습니다 ({{.Order.OrderNumber}})
{{.Order.CustomerName}}님, 입금이 확인되어 상품을 준비하고 있습니다.

` + orderSummary,

	"order.status.payment_confirmed.chat": `[{{.StoreName}}] {{.Order.CustomerName}}님, 주문 {{.Order.OrderNumber}} 입금이 확인되었습니다. 곧 발송해 드리겠습니다.`,

	"order.status.delayed.email": `[{{.StoreName}}] 발송 일정 안내 ({{.Order.OrderNumber}})
{{.Order.CustomerName}}님, 입금이 확인되었습니다.
주문하신 상품은 {{.Order.Status}} 예정입니다. 기다려 주셔서 감사합니다.

` + orderSummary,

	"order.status.delayed.chat": `[{{.StoreName}}] {{.Order.CustomerName}}님, 주문 {{.Order.OrderNumber}} 입금 확인. 상품은 {{.Order.Status}} 예정입니다.`,

	"order.status.shipping.email": `[{{.StoreName}}] 상품이 발송되었습니다 ({{.Order.OrderNumber}})
{{.Order.CustomerName}}님, 주문하신 상품이 발송되었습니다.
운송장 번호: {{deref .Order.TrackingNumber}}

` + orderSummary,

	"order.status.shipping.chat": `[{{.StoreName}}] {{.Order.CustomerName}}님, 주문 {{.Order.OrderNumber}} 상품이 발송되었습니다. 운송장 번호: {{deref .Order.TrackingNumber}}`,

	"order.status.delivered.email": `[{{.StoreName}}] 배송이 완료되었습니다 ({{.Order.OrderNumber}})
{{.Order.CustomerName}}님, 상품이 배송 완료되었습니다.
교환/반품은 배송 완료 후 {{.ReturnWindowDays}}일 이내에 신청하실 수 있습니다.`,

	"order.status.delivered.chat": `[{{.StoreName}}] {{.Order.CustomerName}}님, 주문 {{.Order.OrderNumber}} 배송이 완료되었습니다.`,

	"return.created.email": `[{{.StoreName}}] {{if eq .Return.Type "exchange"}}교환{{else}}반품{{end}} 신청이 접수되었습니다 ({{.Return.RequestNumber}})
{{.Order.CustomerName}}님, 신청이 접수되었습니다. 검토 후 안내해 드리겠습니다.
주문번호: {{.Order.OrderNumber}}
신청번호: {{.Return.RequestNumber}}`,

	"return.created.chat": `[{{.StoreName}}] {{.Order.CustomerName}}님, {{if eq .Return.Type "exchange"}}교환{{else}}반품{{end}} 신청({{.Return.RequestNumber}})이 접수되었습니다.`,

	"return.status.approved.email": `[{{.StoreName}}] 신청이 승인되었습니다 ({{.Return.RequestNumber}})
{{.Order.CustomerName}}님, {{if eq .Return.Type "exchange"}}교환{{else}}반품{{end}} 신청이 승인되었습니다.
{{if .Return.RefundAmount}}환불 예정 금액: {{won .Return.RefundAmount}} (반품 배송비 차감){{end}}`,

	"return.status.approved.chat": `[{{.StoreName}}] {{.Order.CustomerName}}님, 신청 {{.Return.RequestNumber}}이(가) 승인되었습니다. 수거 일정은 별도로 안내드립니다.`,

	"return.status.rejected.email": `[{{.StoreName}}] 신청 처리 결과 안내 ({{.Return.RequestNumber}})
{{.Order.CustomerName}}님, 죄송하지만 신청이 거절되었습니다.
사유: {{deref .Return.RejectReason}}`,

	"return.status.rejected.chat": `[{{.StoreName}}] {{.Order.CustomerName}}님, 신청 {{.Return.RequestNumber}}이(가) 거절되었습니다. 사유: {{deref .Return.RejectReason}}`,

	"return.status.collecting.chat": `[{{.StoreName}}] {{.Order.CustomerName}}님, 상품 수거가 시작되었습니다. 회수 운송장: {{deref .Return.ReturnTrackingNumber}}`,

	"return.status.collected.chat": `[{{.StoreName}}] {{.Order.CustomerName}}님, 상품이 회수되어 검수 중입니다.`,

	"return.status.completed.email": `[{{.StoreName}}] {{if eq .Return.Type "exchange"}}교환{{else}}반품{{end}} 처리가 완료되었습니다 ({{.Return.RequestNumber}})
{{.Order.CustomerName}}님, 신청하신 {{if eq .Return.Type "exchange"}}교환 상품이 발송되었습니다{{else}}환불 처리가 완료되었습니다{{end}}.`,

	"return.status.completed.chat": `[{{.StoreName}}] {{.Order.CustomerName}}님, 신청 {{.Return.RequestNumber}} 처리가 완료되었습니다.`,
}
