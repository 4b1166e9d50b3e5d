// Command raftsessiond runs the example session-object service: a net/rpc
// front door for Zookeeper-shaped commands/queries, and a gRPC front door
// for the session event-publish stream (pkg/transport/grpcconn), both
// driven through the same pkg/server.Server instance.
package main

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"net/rpc"
	"os"
	"time"

	flag "github.com/spf13/pflag"
	"google.golang.org/grpc"

	copycatconfig "github.com/hwlsniper/copycat/pkg/config"
	"github.com/hwlsniper/copycat/pkg/persistence"
	"github.com/hwlsniper/copycat/pkg/server"
	"github.com/hwlsniper/copycat/pkg/transport/grpcconn"
)

const serverName = "Zookeeper"

func main() {
	fs := flag.NewFlagSet("raftsessiond", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	copycatconfig.RegisterFlags(fs)
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatal("parsing flags:", err)
	}

	cfg, err := copycatconfig.Load(*configPath, fs)
	if err != nil {
		log.Fatal("loading config:", err)
	}

	logManager, err := persistence.NewLogManager(cfg.LogDir)
	if err != nil {
		log.Fatal("opening log directory:", err)
	}

	zk := server.NewServerWithTimeout(cfg.SessionTimeout).SetLogManager(logManager)

	go runKeepAliveSweep(zk, cfg.SessionTimeout, cfg.KeepAliveInterval)
	go runResponseGCSweep(zk, cfg.ResponseGCInterval)
	go serveRPC(zk, cfg.RPCAddress)
	serveGRPC(zk, cfg.GRPCAddress)
}

func serveRPC(zk *server.Server, addr string) {
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName(serverName, zk); err != nil {
		log.Fatal("register error:", err)
	}
	mux := http.NewServeMux()
	mux.Handle(rpc.DefaultRPCPath, rpcServer)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal("rpc listen error:", err)
	}
	log.Printf("raftsessiond: rpc listening on %s", addr)
	if err := http.Serve(lis, mux); err != nil {
		log.Fatal("rpc serve error:", err)
	}
}

func serveGRPC(zk *server.Server, addr string) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal("grpc listen error:", err)
	}

	grpcServer := grpc.NewServer()
	grpcconn.RegisterPublisherServer(grpcServer, &grpcconn.Server{
		OnConnect: func(clientID string, conn *grpcconn.Conn) error {
			if err := zk.AttachConnection(clientID, conn); err != nil {
				return fmt.Errorf("attaching connection for %s: %w", clientID, err)
			}
			log.Printf("raftsessiond: publish stream attached for client %s", clientID)
			return conn.Wait()
		},
	})

	log.Printf("raftsessiond: grpc listening on %s", addr)
	if err := grpcServer.Serve(lis); err != nil {
		log.Fatal("grpc serve error:", err)
	}
}

// runKeepAliveSweep periodically expires sessions that have gone silent
// past timeout. pkg/registry only performs the mechanical sweep
// (ExpireBefore); this decides the cadence.
func runKeepAliveSweep(zk *server.Server, timeout, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		expired := zk.Sessions().ExpireBefore(time.Now().Add(-timeout))
		if len(expired) > 0 {
			log.Printf("raftsessiond: expired %d stale session(s)", len(expired))
		}
	}
}

// runResponseGCSweep periodically discards cached command responses up to
// each session's current command sequence, raising its low-water mark
// (Session.ClearResponses via Registry.GCResponses). It runs on its own
// cadence, independent of runKeepAliveSweep.
func runResponseGCSweep(zk *server.Server, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		zk.Sessions().GCResponses()
	}
}
