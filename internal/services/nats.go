package services

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const eventStream = "document-events"

// NatsService publishes durable document events and hosts the service's
// consumers.
type NatsService struct {
	Conn *nats.Conn
	js   nats.JetStreamContext
}

// ConnectNATS connects to NATS and initializes JetStream and the event
// stream.
func ConnectNATS(url string) (*NatsService, error) {
	opts := []nats.Option{
		nats.Name("document-service"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("[NATS] disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[NATS] reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Println("[NATS] connection closed")
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, err
	}

	svc := &NatsService{Conn: conn, js: js}
	if err := svc.ensureStream(); err != nil {
		log.Printf("[NATS] warning: failed to ensure stream: %v", err)
	}

	log.Println("[NATS] connected and JetStream initialized")
	return svc, nil
}

func (n *NatsService) ensureStream() error {
	if _, err := n.js.StreamInfo(eventStream); err == nil {
		log.Printf("[NATS] stream %s already exists", eventStream)
		return nil
	}

	streamCfg := &nats.StreamConfig{
		Name:     eventStream,
		Subjects: []string{"documents.*", "leads.*"},
		Storage:  nats.FileStorage,
		MaxAge:   30 * 24 * time.Hour,
	}
	_, err := n.js.AddStream(streamCfg)
	return err
}

// PublishEvent publishes an event via JetStream (durable, stored).
// subject e.g. "documents.committed"
func (n *NatsService) PublishEvent(subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	// Use a message ID for idempotency
	msgID := uuid.New().String()
	if _, err := n.js.Publish(subject, data, nats.MsgId(msgID)); err != nil {
		log.Printf("[NATS] publish failed subject=%s err=%v", subject, err)
		return err
	}
	return nil
}

// SubscribeEvent creates a durable, ack-based consumer. The handler is
// responsible for Ack() on success.
func (n *NatsService) SubscribeEvent(subject, durableName string, handler nats.MsgHandler) (*nats.Subscription, error) {
	sub, err := n.js.Subscribe(subject, handler, nats.Durable(durableName), nats.ManualAck())
	if err != nil {
		return nil, err
	}
	log.Printf("[NATS] subscribed (jetstream) subject=%s durable=%s", subject, durableName)
	return sub, nil
}

func (n *NatsService) Close() {
	if n.Conn != nil && n.Conn.IsConnected() {
		n.Conn.Close()
	}
}
