package events

import (
	"context"
	"testing"
	"time"

	"github.com/alfredjeanlab/guardian/internal/model"
	"github.com/nats-io/nats.go"
)

func TestNoopPublisher(t *testing.T) {
	pub := &NoopPublisher{}
	if err := pub.Publish(context.Background(), TopicSidecarData, Payload{URL: "u"}); err != nil {
		t.Fatalf("NoopPublisher.Publish returned unexpected error: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("NoopPublisher.Close returned unexpected error: %v", err)
	}
}

func TestNoopSubscriber_CancelClosesChannel(t *testing.T) {
	sub := &NoopSubscriber{}
	ch, cancel, err := sub.Subscribe(TopicSidecarData)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed after cancel")
	}
}

func TestImplementsInterfaces(t *testing.T) {
	var _ Publisher = (*NoopPublisher)(nil)
	var _ Publisher = (*NATSPublisher)(nil)
	var _ Subscriber = (*NoopSubscriber)(nil)
	var _ Subscriber = (*NATSSubscriber)(nil)
}

// subscribeRaw captures messages on topic using a plain NATS connection.
func subscribeRaw(t *testing.T, url, topic string) chan *nats.Msg {
	t.Helper()
	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	t.Cleanup(nc.Close)

	ch := make(chan *nats.Msg, 8)
	if _, err := nc.ChanSubscribe(topic, ch); err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	if err := nc.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	return ch
}

// newTestPublisher connects a publisher and a raw capture subscription to
// an embedded broker.
func newTestPublisher(t *testing.T) (*NATSPublisher, chan *nats.Msg) {
	t.Helper()
	srv, err := StartEmbedded("127.0.0.1", -1)
	if err != nil {
		t.Fatalf("StartEmbedded: %v", err)
	}
	t.Cleanup(srv.Shutdown)

	pub, err := NewNATSPublisher(srv.ClientURL())
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	t.Cleanup(func() { pub.Close() })
	return pub, subscribeRaw(t, srv.ClientURL(), TopicSidecarData)
}

func TestNATSPublisher_Publish(t *testing.T) {
	pub, ch := newTestPublisher(t)

	encoded, err := Encode(ContractV1, model.ClassificationEvent{URL: "https://youtube.com/shorts/d"}.WithAnalysis("주의"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	deadline := func() context.Context {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		t.Cleanup(cancel)
		return ctx
	}

	for _, tc := range []struct {
		name  string
		ctx   context.Context
		event any
		want  string
	}{
		{"Struct", context.Background(), Payload{URL: "https://youtube.com/shorts/a"}, `{"url":"https://youtube.com/shorts/a"}`},
		{"Bytes", context.Background(), []byte("https://youtube.com/shorts/b"), "https://youtube.com/shorts/b"},
		{"String", context.Background(), "https://youtube.com/shorts/c", `"https://youtube.com/shorts/c"`},
		{"EncodedWithDeadline", deadline(), encoded, string(encoded)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if err := pub.Publish(tc.ctx, TopicSidecarData, tc.event); err != nil {
				t.Fatalf("Publish: %v", err)
			}
			select {
			case msg := <-ch:
				if string(msg.Data) != tc.want {
					t.Errorf("payload = %s, want %s", msg.Data, tc.want)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("timed out waiting for published payload")
			}
		})
	}

	if _, err := Decode(ContractV1, encoded); err != nil {
		t.Errorf("encoded payload does not decode: %v", err)
	}
}

func TestNATSPublisher_PublishAfterClose(t *testing.T) {
	pub, _ := newTestPublisher(t)
	if err := pub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := pub.Publish(context.Background(), TopicSidecarData, Payload{URL: "u"}); err == nil {
		t.Error("Publish after Close succeeded")
	}
}

func TestNATSPublisher_UnencodableEvent(t *testing.T) {
	pub, _ := newTestPublisher(t)
	if err := pub.Publish(context.Background(), TopicSidecarData, make(chan int)); err == nil {
		t.Error("Publish of a channel succeeded")
	}
}
