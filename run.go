package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"replicore/ack"
	"replicore/demand"
	"replicore/dispatcher"
	"replicore/ids"
	"replicore/internal/config"
	"replicore/internal/telemetry"
	"replicore/lobby"
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
	listen := flag.String("listen", ":4433", "UDP address to listen on")
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
	defer kinds.Save()

	descriptors := registry.NewTable()

	driver := tick.NewDriver(cfg.Step(), log)
	// The host's simulation step is an external collaborator (spec.md §1);
	// this server has no ECS plugged in, so Sim is a documented no-op. A
	// host binary wires its own authoritative step in here instead.
	driver.AddSim(func(*tick.Driver, tick.Tick) {})

	clients := replication.NewClients()
	disp := dispatcher.New(dispatcher.Requires{}, dispatcher.NewSizeEstimator(), dispatcher.NewLedger())
	disp.MTU = cfg.MTUBytes
	server := replication.NewServer(descriptors, disp, clients)

	lob := lobby.New()
	demands := demand.New()
	codec := protocol.NewCodec(protocol.FlateCompressor{})
	pipeline := replication.NewPipeline(server, codec, lob, demands, cfg.MessageCeilingBytes, log)
	driver.AddMeta(pipeline.Meta)

	guard := session.NewGuard()
	expectedProtocol := protocol.ComputeProtocolId(kinds.Names())

	tlsConf, err := selfSignedTLSConfig()
	if err != nil {
		log.Sugar().Fatalf("failed to build TLS config: %v", err)
	}

	var nextClient atomic.Uint64
	ln, err := quictransport.Listen(*listen, tlsConf, nil, func() ids.ClientId {
		return ids.ClientId(nextClient.Add(1))
	})
	if err != nil {
		log.Sugar().Fatalf("failed to listen on %s: %v", *listen, err)
	}
	defer ln.Close()

	log.Sugar().Infof("replicore listening on %s, tick step %s", *listen, cfg.Step())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wg := &sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		runTickLoop(ctx, driver, log)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		acceptLoop(ctx, ln, driver, pipeline, clients, guard, expectedProtocol, log)
	}()

	wg.Wait()
	log.Info("replicore shut down")
}

// runTickLoop drives the fixed-timestep Driver. All per-tick replication
// work (producers, demand grants, send) runs inside the meta phase
// pipeline.Meta registers on driver, so it executes exactly once per
// consumed real step rather than once per Advance call (spec.md §4.1).
func runTickLoop(ctx context.Context, driver *tick.Driver, log *zap.Logger) {
	ticker := time.NewTicker(driver.Info().EffectiveStep())
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if err := driver.Advance(dt); err != nil {
				log.Warn("advance failed", zap.Error(err))
			}
		}
	}
}

// acceptLoop accepts new QUIC connections until ctx is cancelled, handing
// each one off to its own handshake+session goroutine so a slow or
// misbehaving client cannot stall new connections from being accepted.
func acceptLoop(ctx context.Context, ln *quictransport.Listener, driver *tick.Driver, pipeline *replication.Pipeline, clients *replication.Clients, guard *session.Guard, expected protocol.ProtocolId, log *zap.Logger) {
	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			return
		}
		go handleConnection(ctx, conn, driver, pipeline, clients, guard, expected, log)
	}
}

// handleConnection runs the server side of the connect handshake
// (session.Accept) over ChannelServerMessage, registers an accepted
// client into replication.Clients so the tick pipeline can reach it, and
// then receives that client's ClientInputMessage traffic until it
// disconnects, at which point its lobby entry (if any) is removed (spec.md §4, SPEC_FULL.md's supplemented handshake).
func handleConnection(ctx context.Context, conn transport.Connection, driver *tick.Driver, pipeline *replication.Pipeline, clients *replication.Clients, guard *session.Guard, expected protocol.ProtocolId, log *zap.Logger) {
	client := conn.Client()

	raw, err := conn.Receive(ctx, transport.ChannelServerMessage)
	if err != nil {
		log.Warn("handshake receive failed", zap.Stringer("client", client), zap.Error(err))
		conn.Close()
		return
	}
	connectMsg, err := session.DecodeConnect(raw)
	if err != nil {
		log.Warn("handshake decode failed", zap.Stringer("client", client), zap.Error(err))
		conn.Close()
		return
	}

	resp := session.Accept(client, connectMsg, expected, guard)
	encoded, err := session.EncodeServerMessage(resp)
	if err != nil {
		log.Error("encode handshake response failed", zap.Stringer("client", client), zap.Error(err))
		conn.Close()
		return
	}
	if err := conn.Send(ctx, transport.ChannelServerMessage, encoded); err != nil {
		log.Warn("send handshake response failed", zap.Stringer("client", client), zap.Error(err))
		conn.Close()
		return
	}
	if resp.Rejected != nil {
		log.Info("client rejected", zap.Stringer("client", client), zap.String("reason", resp.Rejected.Reason))
		conn.Close()
		return
	}

	clients.ConnectAt(client, ack.New(driver.Current()), conn)
	log.Info("client accepted", zap.Stringer("client", client))

	go receiveInputLoop(ctx, conn, pipeline, client, log)

	<-conn.Disconnected()
	pipeline.Lobby.Remove(client)
	clients.Disconnect(client)
	log.Info("client disconnected", zap.Stringer("client", client))
}

// receiveInputLoop drains a client's ClientInputMessage datagrams until it
// disconnects or ctx is cancelled, folding each into the pipeline's
// ack/ledger bookkeeping.
func receiveInputLoop(ctx context.Context, conn transport.Connection, pipeline *replication.Pipeline, client ids.ClientId, log *zap.Logger) {
	for {
		raw, err := conn.Receive(ctx, transport.ChannelClientInput)
		if err != nil {
			return
		}
		msg, err := pipeline.Codec.DecodeInput(raw)
		if err != nil {
			log.Warn("decode client input failed", zap.Stringer("client", client), zap.Error(err))
			continue
		}
		pipeline.ApplyClientInput(client, msg)
	}
}
