package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/okian/quicktagger/internal/domain/model"
	"github.com/okian/quicktagger/pkg/logger"
)

// NATSConfig configures the NATS publisher.
type NATSConfig struct {
	URL           string
	Subject       string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns reconnect-forever defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Subject:       "quicktagger.events",
		Name:          "quicktagger",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// NATSPublisher publishes envelopes on <subject>.<category>.
type NATSPublisher struct {
	nc     *nats.Conn
	cfg    NATSConfig
	logger logger.Logger
	now    func() time.Time
}

var _ Publisher = (*NATSPublisher)(nil)

// NewNATS connects to the server at cfg.URL.
func NewNATS(cfg NATSConfig, log logger.Logger) (*NATSPublisher, error) {
	if log == nil {
		log = logger.Get().Named("nats-publisher")
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn(context.Background(), "NATS disconnected", logger.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info(context.Background(), "NATS reconnected", logger.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error(context.Background(), "NATS error", logger.Error(err))
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	log.Info(context.Background(), "NATS publisher connected",
		logger.String("url", nc.ConnectedUrl()),
		logger.String("subject", cfg.Subject),
	)
	return &NATSPublisher{nc: nc, cfg: cfg, logger: log, now: time.Now}, nil
}

// Publish sends e. The envelope id doubles as the JetStream dedupe id.
func (p *NATSPublisher) Publish(ctx context.Context, e model.Event) error {
	if p.nc.IsClosed() {
		return ErrClosed
	}
	env := NewEnvelope(e, p.now())
	body, err := env.Encode()
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	msg := nats.NewMsg(Topic(p.cfg.Subject, e))
	msg.Header.Set(nats.MsgIdHdr, env.ID)
	msg.Header.Set("Content-Type", "application/json")
	msg.Data = body
	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	if _, ok := ctx.Deadline(); ok {
		return p.nc.FlushWithContext(ctx)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.nc.IsClosed() {
		return nil
	}
	return p.nc.Drain()
}
