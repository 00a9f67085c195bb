// Package notifications renders and delivers post-commit notifications over
// email, SMS and the realtime hub.
package notifications

import (
	"context"
	"fmt"
	"strconv"
)

// Kind selects the templates and realtime audience of a message
type Kind string

const (
	KindVoucherSold          Kind = "voucher.sold"
	KindApplicationSubmitted Kind = "application.submitted"
	KindApplicationAdmitted  Kind = "application.admitted"
	KindApplicationRejected  Kind = "application.rejected"
	KindInvoicePaid          Kind = "invoice.paid"
)

// Message is a queued notification. It only carries JSON-safe values so it
// survives the AMQP hop unchanged.
type Message struct {
	Kind           Kind              `json:"kind"`
	To             string            `json:"to,omitempty"`
	ToName         string            `json:"toName,omitempty"`
	Phone          string            `json:"phone,omitempty"`
	AccountID      int64             `json:"accountId,omitempty"`
	Data           map[string]string `json:"data,omitempty"`
	AttachmentPath string            `json:"attachmentPath,omitempty"`
}

// Validate rejects messages no channel could deliver
func (m Message) Validate() error {
	if _, ok := registry[m.Kind]; !ok {
		return fmt.Errorf("unknown notification kind %q", m.Kind)
	}
	return nil
}

// With returns a copy of m with one more template value
func (m Message) With(key string, value interface{}) Message {
	data := make(map[string]string, len(m.Data)+1)
	for k, v := range m.Data {
		data[k] = v
	}
	switch v := value.(type) {
	case string:
		data[key] = v
	case int64:
		data[key] = strconv.FormatInt(v, 10)
	case int:
		data[key] = strconv.Itoa(v)
	default:
		data[key] = fmt.Sprint(v)
	}
	m.Data = data
	return m
}

// Queue hands messages to the delivery side after a transaction commits.
// Enqueue failures never affect the committed state.
type Queue interface {
	Enqueue(ctx context.Context, msgs ...Message) error
}
