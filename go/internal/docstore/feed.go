package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/huddle/go/internal/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// ChangeFeed carries document change notices between clients.
type ChangeFeed interface {
	Publish(ctx context.Context, change events.DocumentChangedPayload) error
	// Watch calls fn for every change published to collection after Watch returns.
	Watch(ctx context.Context, collection string, fn func(events.DocumentChangedPayload)) (stop func(), err error)
	Close() error
}

type JetStreamConfig struct {
	URL             string
	StreamName      string
	SubjectPrefix   string
	MaxReconnects   int
	ReconnectWait   time.Duration
	MaxAge          time.Duration // How long to keep change notices
	Replicas        int
	DuplicateWindow time.Duration
}

func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:             nats.DefaultURL,
		StreamName:      "HUDDLE_DOCS",
		SubjectPrefix:   "huddle.docs",
		MaxReconnects:   -1, // Infinite
		ReconnectWait:   2 * time.Second,
		MaxAge:          24 * time.Hour,
		Replicas:        1,
		DuplicateWindow: 2 * time.Minute,
	}
}

// JetStreamFeed publishes change notices to a JetStream stream and watches them with
// ordered consumers, one per subscription.
type JetStreamFeed struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config JetStreamConfig
}

var _ ChangeFeed = (*JetStreamFeed)(nil)

func NewJetStreamFeed(ctx context.Context, cfg JetStreamConfig) (*JetStreamFeed, error) {
	opts := []nats.Option{
		nats.Name("huddle-docstore"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	f := &JetStreamFeed{nc: nc, js: js, config: cfg}
	if err := f.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	return f, nil
}

func (f *JetStreamFeed) ensureStream(ctx context.Context) error {
	sc := jetstream.StreamConfig{
		Name:        f.config.StreamName,
		Description: "Document change notices for huddle clients",
		Subjects:    []string{fmt.Sprintf("%s.>", f.config.SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      f.config.MaxAge,
		Storage:     jetstream.MemoryStorage,
		Replicas:    f.config.Replicas,
		Duplicates:  f.config.DuplicateWindow,
	}

	stream, err := f.js.Stream(ctx, f.config.StreamName)
	if err != nil {
		if _, err = f.js.CreateStream(ctx, sc); err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		log.Info().Str("stream", f.config.StreamName).Msg("created JetStream stream")
		return nil
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return fmt.Errorf("get stream info: %w", err)
	}
	if info.Config.MaxAge != sc.MaxAge || info.Config.Duplicates != sc.Duplicates || info.Config.Replicas != sc.Replicas {
		if _, err = f.js.UpdateStream(ctx, sc); err != nil {
			return fmt.Errorf("update stream: %w", err)
		}
		log.Info().Str("stream", f.config.StreamName).Msg("updated JetStream stream")
	}
	return nil
}

func (f *JetStreamFeed) subject(collection string) string {
	return fmt.Sprintf("%s.%s", f.config.SubjectPrefix, collection)
}

func (f *JetStreamFeed) Publish(ctx context.Context, change events.DocumentChangedPayload) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}

	subject := f.subject(change.Collection)
	ack, err := f.js.PublishMsg(ctx, &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Collection": []string{change.Collection},
			"Doc-ID":     []string{change.DocID},
		},
	},
		jetstream.WithMsgID(change.ChangeID),
		jetstream.WithExpectStream(f.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}

	log.Debug().
		Str("subject", subject).
		Str("doc_id", change.DocID).
		Uint64("sequence", ack.Sequence).
		Msg("published document change")
	return nil
}

func (f *JetStreamFeed) Watch(ctx context.Context, collection string, fn func(events.DocumentChangedPayload)) (func(), error) {
	consumer, err := f.js.OrderedConsumer(ctx, f.config.StreamName, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{f.subject(collection)},
		DeliverPolicy:  jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("create ordered consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		var change events.DocumentChangedPayload
		if err := json.Unmarshal(msg.Data(), &change); err != nil {
			log.Error().Err(err).Str("subject", msg.Subject()).Msg("failed to decode document change")
			return
		}
		fn(change)
	})
	if err != nil {
		return nil, fmt.Errorf("start consumer: %w", err)
	}
	return cc.Stop, nil
}

// Connected reports whether the NATS connection is currently up.
func (f *JetStreamFeed) Connected() bool {
	return f.nc != nil && f.nc.IsConnected()
}

func (f *JetStreamFeed) Close() error {
	if f.nc != nil {
		f.nc.Close()
	}
	return nil
}
