package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/uniadmit/internal/pkg/email"
	"github.com/yigit/uniadmit/internal/pkg/websocket"
)

type fakeEmail struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (f *fakeEmail) Send(_ context.Context, msg email.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.err
}

type fakeSMS struct {
	to, body []string
	err      error
}

func (f *fakeSMS) Send(_ context.Context, to, message string) error {
	f.to = append(f.to, to)
	f.body = append(f.body, message)
	return f.err
}

type publishedEvent struct {
	event websocket.Event
	rooms []string
}

type fakeHub struct {
	events []publishedEvent
}

func (f *fakeHub) Publish(event websocket.Event, rooms ...string) error {
	f.events = append(f.events, publishedEvent{event: event, rooms: rooms})
	return nil
}

type dirResolver struct{ dir string }

func (r dirResolver) GetFullPath(fileURL string) (string, error) {
	return filepath.Join(r.dir, filepath.Base(fileURL)), nil
}

func voucherMessage() Message {
	return Message{Kind: KindVoucherSold, To: "buyer@example.com", Phone: "+233200000000"}.
		With("type", "Undergraduate").
		With("amount", "GHS 150.00").
		With("serial", "UG-ABCD1234").
		With("pin", "12345678")
}

func TestRenderVoucherSold(t *testing.T) {
	out, err := render(voucherMessage())
	require.NoError(t, err)

	assert.Equal(t, "Your Undergraduate application voucher", out.Subject)
	assert.Contains(t, out.HTML, "<!DOCTYPE html>")
	assert.Contains(t, out.HTML, "UG-ABCD1234")
	assert.Contains(t, out.Text, "PIN: 12345678")
	assert.Contains(t, out.SMS, "PIN 12345678")
}

func TestRenderEscapesHTML(t *testing.T) {
	msg := Message{Kind: KindApplicationRejected, ToName: "<b>Ama</b>"}
	out, err := render(msg)
	require.NoError(t, err)
	assert.NotContains(t, out.HTML, "<b>Ama</b>")
	assert.Contains(t, out.HTML, "&lt;b&gt;Ama&lt;/b&gt;")
	assert.Contains(t, out.Text, "Dear <b>Ama</b>")
}

func TestRenderUnknownKind(t *testing.T) {
	_, err := render(Message{Kind: "nope"})
	assert.Error(t, err)
	assert.Error(t, Message{Kind: "nope"}.Validate())
}

func TestDispatchUsesEveryChannel(t *testing.T) {
	mail, text, hub := &fakeEmail{}, &fakeSMS{}, &fakeHub{}
	d := NewDispatcher(mail, text, hub, nil, time.Second, zerolog.Nop())

	msg := voucherMessage()
	require.NoError(t, d.Dispatch(context.Background(), msg))

	require.Len(t, mail.sent, 1)
	assert.Equal(t, "buyer@example.com", mail.sent[0].To)
	assert.Equal(t, []string{"+233200000000"}, text.to)

	require.Len(t, hub.events, 1)
	ev := hub.events[0]
	assert.Equal(t, websocket.EventVoucherSold, ev.event.Type)
	assert.ElementsMatch(t, []string{"role:finance", "role:admin"}, ev.rooms)
	payload := ev.event.Payload.(map[string]string)
	assert.NotContains(t, payload, "pin")
	assert.Equal(t, "UG-ABCD1234", payload["serial"])
}

func TestDispatchAttachesLetter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "letter_7.pdf"), []byte("%PDF-1.4"), 0o644))

	mail, hub := &fakeEmail{}, &fakeHub{}
	d := NewDispatcher(mail, nil, hub, dirResolver{dir: dir}, time.Second, zerolog.Nop())

	msg := Message{Kind: KindApplicationAdmitted, To: "ama@example.com", ToName: "Ama Mensah", AccountID: 7, AttachmentPath: "/uploads/letters/letter_7.pdf"}.
		With("program", "BSc Computer Science").
		With("systemId", "2026000123")
	require.NoError(t, d.Dispatch(context.Background(), msg))

	require.Len(t, mail.sent, 1)
	require.Len(t, mail.sent[0].Attachments, 1)
	att := mail.sent[0].Attachments[0]
	assert.Equal(t, "letter_7.pdf", att.Filename)
	assert.Equal(t, "application/pdf", att.ContentType)
	assert.Equal(t, []byte("%PDF-1.4"), att.Data)
	assert.Contains(t, mail.sent[0].HTMLBody, "Ama Mensah")

	require.Len(t, hub.events, 1)
	assert.Contains(t, hub.events[0].rooms, websocket.AccountRoom(7))
}

func TestDispatchJoinsChannelErrors(t *testing.T) {
	mail := &fakeEmail{err: errors.New("smtp down")}
	text := &fakeSMS{err: errors.New("gateway down")}
	hub := &fakeHub{}
	d := NewDispatcher(mail, text, hub, nil, time.Second, zerolog.Nop())

	err := d.Dispatch(context.Background(), voucherMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
	assert.Contains(t, err.Error(), "gateway down")
	// realtime still attempted
	assert.Len(t, hub.events, 1)
}

func TestDispatchSkipsEmailWithoutBody(t *testing.T) {
	mail, hub := &fakeEmail{}, &fakeHub{}
	d := NewDispatcher(mail, nil, hub, nil, time.Second, zerolog.Nop())

	msg := Message{Kind: KindApplicationSubmitted, To: "ama@example.com", AccountID: 3}.With("applicationId", 11)
	require.NoError(t, d.Dispatch(context.Background(), msg))
	assert.Empty(t, mail.sent)
	require.Len(t, hub.events, 1)
	assert.Contains(t, hub.events[0].rooms, "role:registrar")
}

type countingSink struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (s *countingSink) Dispatch(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return s.err
}

func TestInlineQueueDispatchesAfterRequestEnds(t *testing.T) {
	sink := &countingSink{}
	q := NewInlineQueue(sink, time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, q.Enqueue(ctx, voucherMessage(), Message{Kind: KindApplicationRejected}))
	cancel()
	q.Close()

	assert.Len(t, sink.msgs, 2)
}

func TestInlineQueueRejectsUnknownKinds(t *testing.T) {
	sink := &countingSink{}
	q := NewInlineQueue(sink, time.Second, zerolog.Nop())
	assert.Error(t, q.Enqueue(context.Background(), voucherMessage(), Message{Kind: "bogus"}))
	q.Close()
	assert.Empty(t, sink.msgs)
}

type fakeChannel struct {
	exchange string
	keys     []string
	bodies   [][]byte
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange = exchange
	f.keys = append(f.keys, key)
	f.bodies = append(f.bodies, msg.Body)
	return nil
}

func TestAMQPQueueRoutesByKind(t *testing.T) {
	ch := &fakeChannel{}
	q := &AMQPQueue{ch: ch, exchange: "uniadmit.notifications", logger: zerolog.Nop()}

	require.NoError(t, q.Enqueue(context.Background(), voucherMessage()))
	assert.Equal(t, "uniadmit.notifications", ch.exchange)
	assert.Equal(t, []string{"voucher.sold"}, ch.keys)

	var decoded Message
	require.NoError(t, json.Unmarshal(ch.bodies[0], &decoded))
	assert.Equal(t, voucherMessage(), decoded)
}

type fakeAck struct {
	acked   int
	nacked  int
	requeue []bool
}

func (a *fakeAck) Ack(uint64, bool) error { a.acked++; return nil }
func (a *fakeAck) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked++
	a.requeue = append(a.requeue, requeue)
	return nil
}
func (a *fakeAck) Reject(uint64, bool) error { return nil }

func delivery(t *testing.T, ack *fakeAck, redelivered bool) amqp.Delivery {
	body, err := json.Marshal(voucherMessage())
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, Body: body, Redelivered: redelivered}
}

func TestConsumerAcksOnSuccess(t *testing.T) {
	ack := &fakeAck{}
	c := &Consumer{sink: &countingSink{}, logger: zerolog.Nop()}
	c.handle(context.Background(), delivery(t, ack, false))
	assert.Equal(t, 1, ack.acked)
	assert.Zero(t, ack.nacked)
}

func TestConsumerRequeuesOnce(t *testing.T) {
	sink := &countingSink{err: errors.New("boom")}
	c := &Consumer{sink: sink, logger: zerolog.Nop()}

	ack := &fakeAck{}
	c.handle(context.Background(), delivery(t, ack, false))
	c.handle(context.Background(), delivery(t, ack, true))

	assert.Equal(t, []bool{true, false}, ack.requeue)
	assert.Zero(t, ack.acked)
}

func TestConsumerDropsMalformedBody(t *testing.T) {
	ack := &fakeAck{}
	c := &Consumer{sink: &countingSink{}, logger: zerolog.Nop()}
	c.handle(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("{")})
	assert.Equal(t, []bool{false}, ack.requeue)
}

type failingQueue struct{}

func (failingQueue) Enqueue(context.Context, ...Message) error { return errors.New("broker down") }

func TestFanoutQueueReachesEveryQueue(t *testing.T) {
	sink := &countingSink{}
	inline := NewInlineQueue(sink, time.Second, zerolog.Nop())
	q := FanoutQueue{failingQueue{}, inline}

	err := q.Enqueue(context.Background(), voucherMessage())
	inline.Close()

	assert.EqualError(t, err, "broker down")
	assert.Len(t, sink.msgs, 1)
}
