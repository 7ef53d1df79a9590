// Command client is a minimal replicore client: it dials a server, runs
// the connect handshake, and drives the receive/reconcile half of
// replication (spec.md §4.6-§4.10) against a local, in-memory entity
// store. A real game client supplies its own host ECS in place of
// localEntities and its own input source in place of RecordInput's nil
// placeholder.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"replicore/dilation"
	"replicore/identity"
	"replicore/ids"
	"replicore/internal/config"
	"replicore/internal/telemetry"
	"replicore/protocol"
	"replicore/registry"
	"replicore/replication"
	"replicore/session"
	"replicore/tick"
	"replicore/transport"
	"replicore/transport/quictransport"
)

func main() {
	confPath := flag.String("config", "", "Path to session config file")
	addr := flag.String("connect", "localhost:4433", "Server address to dial")
	kindsPath := flag.String("kinds", registry.DefaultFileName, "Path to the component-kind registry file")
	flag.Parse()

	var cfg *config.Session
	var err error
	if *confPath != "" {
		cfg, err = config.Load(*confPath)
	} else {
		cfg, err = config.LoadDefaultPath()
	}
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := telemetry.New(cfg.TelemetryConfig())
	defer log.Sync()

	kinds, err := registry.Open(*kindsPath)
	if err != nil {
		log.Sugar().Fatalf("failed to open component-kind registry: %v", err)
	}

	descriptors := registry.NewTable()
	expectedProtocol := protocol.ComputeProtocolId(kinds.Names())

	dialCtx, dialCancel := context.WithTimeout(context.Background(), quictransport.DefaultDialTimeout)
	defer dialCancel()

	tlsConf := &tls.Config{InsecureSkipVerify: true, NextProtos: []string{"replicore"}}
	localID := ids.ClientId(uint64(os.Getpid()))
	conn, err := quictransport.Dial(dialCtx, *addr, tlsConf, nil, localID)
	if err != nil {
		log.Sugar().Fatalf("failed to dial %s: %v", *addr, err)
	}
	defer conn.Close()

	if err := handshake(dialCtx, conn, expectedProtocol, log); err != nil {
		log.Sugar().Fatalf("handshake with %s failed: %v", *addr, err)
	}

	ents := newLocalEntities()
	ident := identity.New(ents.spawn, ents.despawn, ents.isLive)
	replClient := replication.NewClient(descriptors, ident)
	dil := dilation.New(cfg.Step())
	codec := protocol.NewCodec(protocol.FlateCompressor{})

	pipe := newClientPipeline(conn, codec, descriptors, replClient, dil, cfg.Step(), log)

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	go pipe.ReceiveLoop(runCtx)

	driver := tick.NewDriver(cfg.Step(), log)
	driver.SetRingHorizon(cfg.RingHorizonTicks)
	driver.AddSim(func(*tick.Driver, tick.Tick) {
		// host-owned local prediction step; out of scope (spec.md §1).
	})
	driver.AddMeta(pipe.Meta)
	driver.AddRewind(pipe.Rewind)
	driver.AddApplyUpdateHistory(pipe.ApplyUpdateHistory)
	driver.AddApplyInputHistory(pipe.ApplyInputHistory)

	runTickLoop(conn, driver, pipe, log)
}

// handshake sends a Connect over ChannelServerMessage and waits for the
// server's Accepted/Rejected response (spec.md §4's handshake gate).
func handshake(ctx context.Context, conn *quictransport.Connection, expected protocol.ProtocolId, log *zap.Logger) error {
	encoded, err := session.EncodeConnect(session.Connect{ProtocolId: expected})
	if err != nil {
		return err
	}
	if err := conn.Send(ctx, transport.ChannelServerMessage, encoded); err != nil {
		return err
	}
	raw, err := conn.Receive(ctx, transport.ChannelServerMessage)
	if err != nil {
		return err
	}
	resp, err := session.DecodeServerMessage(raw)
	if err != nil {
		return err
	}
	if resp.Rejected != nil {
		return fmt.Errorf("rejected: %s", resp.Rejected.Reason)
	}
	if resp.Accepted == nil {
		return fmt.Errorf("neither accepted nor rejected")
	}
	log.Sugar().Infof("connected as %s", resp.Accepted.Client)
	return nil
}

// runTickLoop drives the fixed-timestep Driver and, once per ticker frame
// (however many ticks that frame consumed), records a placeholder input for
// the current tick and sends this client's outgoing ClientInputMessage.
func runTickLoop(conn *quictransport.Connection, driver *tick.Driver, pipe *clientPipeline, log *zap.Logger) {
	ticker := time.NewTicker(driver.Info().EffectiveStep())
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-conn.Disconnected():
			log.Info("disconnected from server")
			return
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if err := driver.Advance(dt); err != nil {
				log.Warn("advance failed", zap.Error(err))
				continue
			}
			pipe.RecordInput(driver.Current(), nil)

			sendCtx, sendCancel := context.WithTimeout(context.Background(), time.Second)
			if err := pipe.SendInput(sendCtx, driver.Current()); err != nil {
				log.Warn("send input failed", zap.Error(err))
			}
			sendCancel()
		}
	}
}
