package player

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/bilbercode/rtsp-control/internal/describe"
	"github.com/bilbercode/rtsp-control/internal/media"
	"github.com/bilbercode/rtsp-control/internal/rtsp"
	"github.com/bilbercode/rtsp-control/internal/rtsp/transport"
)

const (
	TransportTCP = "tcp"
	TransportUDP = "udp"

	DefaultKeepAlive = 30 * time.Second

	teardownTimeout = 5 * time.Second
)

var (
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrNoSession        = errors.New("no session ID returned")
	ErrTransportRefused = errors.New("server did not accept the requested transport")
)

type Config struct {
	URL string
	// Transport is TransportTCP (interleaved) or TransportUDP.
	Transport string
	// ClientPort is the first UDP port requested when Transport is TransportUDP.
	ClientPort int
	Range      string
	// Duration stops playback after the given time, zero plays until the
	// context is cancelled.
	Duration  time.Duration
	KeepAlive time.Duration
}

// Player runs a complete playback session over one client.
type Player struct {
	client   *rtsp.Client
	cfg      Config
	observer *media.Observer
	logger   *log.Entry
}

func New(client *rtsp.Client, cfg Config, logger *log.Entry) *Player {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	if cfg.Transport == "" {
		cfg.Transport = TransportTCP
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = DefaultKeepAlive
	}
	return &Player{
		client:   client,
		cfg:      cfg,
		observer: media.NewObserver(logger),
		logger:   logger,
	}
}

func (p *Player) Stats() media.Stats {
	return p.observer.Stats()
}

func (p *Player) Run(ctx context.Context) error {
	err := p.client.Connect(ctx, p.cfg.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", p.cfg.URL, err)
	}
	defer p.client.Close()
	p.logger.Infof("connected to %s", p.client.RemoteAddress())

	res, err := p.client.Options(ctx)
	if err = checkResponse(res, err, rtsp.MethodOptions); err != nil {
		return err
	}
	p.logger.WithField("public", res.Header.Get("Public")).Info("server capabilities received")

	res, err = p.client.Describe(ctx)
	if err = checkResponse(res, err, rtsp.MethodDescribe); err != nil {
		return err
	}
	description, err := describe.Parse(p.client.URL(), res)
	if err != nil {
		return fmt.Errorf("failed to read session description: %w", err)
	}
	p.logger.Infof("server described %d media", len(description.Medias))

	unsubscribe := p.client.SubscribeInterleavedFrames(p.observer.HandleFrame)
	defer unsubscribe()

	keepAlive := p.cfg.KeepAlive
	for i, m := range description.Medias {
		option := transport.NewInterleaved(i * 2)
		if p.cfg.Transport == TransportUDP {
			option = transport.NewUDP(p.cfg.ClientPort + i*2)
		}

		res, err = p.client.Setup(ctx, m.Control, option.String())
		if err = checkResponse(res, err, rtsp.MethodSetup); err != nil {
			return err
		}

		if p.client.Session() == "" {
			sessionID, timeout := rtsp.ParseSession(res.Header.Get(rtsp.HeaderSession))
			if sessionID == "" {
				return ErrNoSession
			}
			p.client.SetSession(sessionID)
			if timeout > 0 && timeout/2 < keepAlive {
				keepAlive = timeout / 2
			}
		}

		err = checkTransport(option, res.Header.Values(rtsp.HeaderTransport))
		if err != nil {
			return fmt.Errorf("failed to set up %s: %w", m.Control, err)
		}
		p.logger.Infof("%s media set up at %s", m.Type, m.Control)
	}

	res, err = p.client.Play(ctx, &rtsp.PlayOptions{Range: p.cfg.Range})
	if err = checkResponse(res, err, rtsp.MethodPlay); err != nil {
		return err
	}
	p.logger.WithField("session", p.client.Session()).Info("playing")

	err = p.hold(ctx, keepAlive)
	if err != nil {
		return err
	}

	teardownCtx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()
	res, err = p.client.Teardown(teardownCtx)
	if err = checkResponse(res, err, rtsp.MethodTeardown); err != nil {
		return err
	}
	p.logger.Info("session torn down")
	return nil
}

// hold keeps the session alive until the context ends, the configured
// duration elapses or the connection drops.
func (p *Player) hold(ctx context.Context, keepAlive time.Duration) error {
	if p.cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Duration)
		defer cancel()
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		timer := time.NewTimer(keepAlive)
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-timer.C:
				res, err := p.client.GetParameter(ctx)
				if ctx.Err() != nil {
					return nil
				}
				if err != nil {
					return fmt.Errorf("keep-alive failed: %w", err)
				}
				p.logger.WithField("code", res.Code).Debug("keep-alive answered")
				timer.Reset(keepAlive)
			}
		}
	})

	group.Go(func() error {
		select {
		case <-ctx.Done():
			return nil
		case <-p.client.Done():
			err := p.client.Err()
			if err == nil {
				err = rtsp.ErrConnectionLost
			}
			return err
		}
	})

	return group.Wait()
}

// checkTransport verifies that the Transport header of a SETUP reply grants
// what was requested: the same interleaved channels over TCP, or a server port
// pair over UDP.
func checkTransport(requested transport.Option, values []string) error {
	header, err := transport.Parse(values)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransportRefused, err)
	}

	for _, o := range header.Options() {
		if o.Protocol() != requested.Protocol() {
			continue
		}
		if requested.Protocol() == transport.ProtocolUDP {
			if _, ok := o.ServerPort(); ok {
				return nil
			}
			continue
		}
		want, _ := requested.Interleaved()
		got, ok := o.Interleaved()
		if ok && len(got) > 0 && got[0] == want[0] {
			return nil
		}
	}
	return fmt.Errorf("%w: asked for %s, got %s", ErrTransportRefused, requested, header)
}

func checkResponse(res *rtsp.Response, err error, method rtsp.Method) error {
	if err != nil {
		return fmt.Errorf("failed to send %s: %w", method, err)
	}
	if !res.IsSuccess() {
		return fmt.Errorf("%w: %s answered %d %s", ErrUnexpectedStatus, method, res.Code, res.Message)
	}
	return nil
}
