// cmd/solaredge-bridge/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tamzrod/solaredge-bridge/internal/config"
	"github.com/tamzrod/solaredge-bridge/internal/live"
	"github.com/tamzrod/solaredge-bridge/internal/metrics"
	"github.com/tamzrod/solaredge-bridge/internal/poller"
	"github.com/tamzrod/solaredge-bridge/internal/registry"
	"github.com/tamzrod/solaredge-bridge/internal/registry/mqtt"
	"github.com/tamzrod/solaredge-bridge/internal/registry/sqlite"
	"github.com/tamzrod/solaredge-bridge/internal/status"
)

// store is what both registry backends offer.
type store interface {
	registry.Registry
	registry.Lister
	registry.Deleter
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if len(os.Args) < 2 {
		log.Fatal("usage: solaredge-bridge <config.yaml|config.toml>")
	}

	cfgPath := os.Args[1]

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Fatalf("log level: %v", err)
	}
	log.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Registry + listeners
	// --------------------

	var base store = registry.NewMemory()
	if cfg.Registry.Path != "" {
		db, err := sqlite.Open(cfg.Registry.Path)
		if err != nil {
			log.Fatalf("registry open failed: %v", err)
		}
		defer db.Close()
		base = db
	}

	m := metrics.New()
	hub := live.NewHub()
	listeners := []registry.Listener{m, hub}

	var mirror *mqtt.Mirror
	if cfg.MQTT.Broker != "" {
		var client paho.Client
		mirror, client, err = mqtt.Dial(
			mqtt.ClientConfig{
				Broker:   cfg.MQTT.Broker,
				ClientID: cfg.MQTT.ClientID,
				Username: cfg.MQTT.Username,
				Password: cfg.MQTT.Password,
			},
			mqtt.Options{
				Topic:           cfg.MQTT.Topic,
				DiscoveryPrefix: cfg.MQTT.DiscoveryPrefix,
			},
			func(mm *mqtt.Mirror) {
				// retained discovery configs may have been wiped by the broker
				entries, err := base.List()
				if err != nil {
					log.WithError(err).Warn("registry list failed")
					return
				}
				if err := mm.Announce(entries); err != nil {
					log.WithError(err).Warn("mqtt announce failed")
				}
			},
		)
		if err != nil {
			log.Fatalf("mqtt: %v", err)
		}
		defer client.Disconnect(250)
		listeners = append(listeners, mirror)
	}

	reg := registry.Notify(base, listeners...)

	// --------------------
	// Engine
	// --------------------

	p, closePoller, err := poller.Build(cfg, reg)
	if err != nil {
		log.Fatalf("poller build failed: %v", err)
	}
	defer closePoller()

	tracker := status.NewTracker()
	out := make(chan poller.TickResult)

	g, ctx := errgroup.WithContext(ctx)

	// poller producer
	g.Go(func() error {
		p.Run(ctx, out)
		return nil
	})

	// Orchestrator (runner-owned status + 1Hz seconds ticker)
	g.Go(func() error {
		secTicker := time.NewTicker(time.Second)
		defer secTicker.Stop()

		deliver := func() {
			snap := tracker.Snapshot()
			hub.BroadcastStatus(snap)
			if mirror != nil {
				if err := mirror.WriteStatus(snap); err != nil {
					log.WithError(err).Warn("mqtt status write failed")
				}
			}
		}

		// Full status publish on start.
		deliver()

		for {
			select {
			case <-ctx.Done():
				if mirror != nil {
					if err := mirror.SetAvailable(false); err != nil {
						log.WithError(err).Debug("mqtt offline publish failed")
					}
				}
				return nil

			case res := <-out:
				m.Observe(res)

				if mirror != nil {
					if err := mirror.SetAvailable(res.State == poller.Connected); err != nil {
						log.WithError(err).Warn("mqtt availability publish failed")
					}
				}

				if tracker.Observe(res) {
					deliver()
				}

			case <-secTicker.C:
				// counts 1 Hz while not OK
				if tracker.TickSecond() {
					deliver()
				}
			}
		}
	})

	// HTTP API
	if cfg.HTTP.Listen != "" {
		srv := live.NewServer(live.Deps{
			Registry: reg,
			Tracker:  tracker,
			Hub:      hub,
			Units:    p.Units,
			Metrics:  m.Handler(),
		})
		g.Go(func() error {
			return srv.Run(ctx, cfg.HTTP.Listen)
		})
	}

	log.WithFields(log.Fields{
		"endpoint": cfg.Inverter.Endpoint,
		"interval": cfg.Poll.Interval(),
	}).Info("solaredge bridge started")

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("bridge stopped with error")
		return
	}
	log.Info("bridge stopped")
}
