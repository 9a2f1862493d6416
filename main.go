package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/jawher/mow.cli"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/bilbercode/rtsp-control/internal/player"
	"github.com/bilbercode/rtsp-control/internal/rtsp"
)

const (
	appName = "rtspctl"
	appDesc = "RTSP control channel client"
)

func main() {

	app := cli.App(appName, appDesc)

	streamURL := app.String(cli.StringOpt{
		Name:   "url",
		Desc:   "rtsp:// or rtsps:// URL of the stream",
		EnvVar: "RTSP_URL",
		Value:  "rtsp://localhost:8554/stream",
	})

	transportMode := app.String(cli.StringOpt{
		Name:   "transport",
		Desc:   "media transport to negotiate, tcp (interleaved) or udp",
		EnvVar: "RTSP_TRANSPORT",
		Value:  player.TransportTCP,
	})

	clientPort := app.Int(cli.IntOpt{
		Name:   "client-port",
		Desc:   "first local UDP port requested for udp transport",
		EnvVar: "RTSP_CLIENT_PORT",
		Value:  5000,
	})

	playRange := app.String(cli.StringOpt{
		Name:   "range",
		Desc:   "range header sent with PLAY, e.g. npt=0-",
		EnvVar: "RTSP_RANGE",
		Value:  "",
	})

	duration := app.String(cli.StringOpt{
		Name:   "duration",
		Desc:   "stop playback after this long, 0 plays until interrupted",
		EnvVar: "PLAY_DURATION",
		Value:  "0s",
	})

	keepAlive := app.String(cli.StringOpt{
		Name:   "keepalive",
		Desc:   "interval between GET_PARAMETER keep-alives",
		EnvVar: "KEEPALIVE_INTERVAL",
		Value:  player.DefaultKeepAlive.String(),
	})

	dialTimeout := app.String(cli.StringOpt{
		Name:   "dial-timeout",
		Desc:   "timeout for establishing the TCP connection",
		EnvVar: "DIAL_TIMEOUT",
		Value:  "10s",
	})

	userAgent := app.String(cli.StringOpt{
		Name:   "user-agent",
		Desc:   "User-Agent header sent with every request",
		EnvVar: "USER_AGENT",
		Value:  rtsp.DefaultUserAgent,
	})

	metricsAddr := app.String(cli.StringOpt{
		Name:   "metrics.addr",
		Desc:   "address to serve prometheus metrics on, empty disables it",
		EnvVar: "METRICS_ADDR",
		Value:  "",
	})

	logLevel := app.String(cli.StringOpt{
		Name:   "log.level",
		Desc:   "log level",
		EnvVar: "LOG_LEVEL",
		Value:  "info",
	})

	app.Action = func() {
		level, err := log.ParseLevel(*logLevel)
		if err != nil {
			log.WithError(err).Panic("failed to parse log level")
		}
		log.SetLevel(level)

		cfg := player.Config{
			URL:        *streamURL,
			Transport:  *transportMode,
			ClientPort: *clientPort,
			Range:      *playRange,
			Duration:   mustDuration("duration", *duration),
			KeepAlive:  mustDuration("keepalive", *keepAlive),
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger := log.WithField("app", appName)
		client := rtsp.NewClient(rtsp.Config{
			UserAgent:   *userAgent,
			DialTimeout: mustDuration("dial-timeout", *dialTimeout),
			Logger:      logger,
		})
		client.Subscribe(func(event *rtsp.Event) {
			logger.WithField("remote", event.Client.RemoteAddress()).Infof("client %s", event.Type)
		})

		p := player.New(client, cfg, logger)

		group, ctx := errgroup.WithContext(ctx)
		group.Go(func() error {
			defer stop()
			return p.Run(ctx)
		})

		if *metricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			server := &http.Server{Addr: *metricsAddr, Handler: mux}
			group.Go(func() error {
				err := server.ListenAndServe()
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			})
			group.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})
		}

		err = group.Wait()
		stats := p.Stats()
		logger.WithFields(log.Fields{
			"rtp":     stats.RTPPackets,
			"rtcp":    stats.RTCPPackets,
			"invalid": stats.Invalid,
		}).Info("playback finished")
		if err != nil {
			log.WithError(err).Fatal("stopped")
		}
	}

	err := app.Run(os.Args)
	if err != nil {
		log.WithError(err).Panic("failed to execute application")
	}
}

func mustDuration(name, value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		log.WithError(err).Panicf("failed to parse %s", name)
	}
	return d
}
