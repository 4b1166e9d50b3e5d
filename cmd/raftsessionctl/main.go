// Command raftsessionctl is an example client for raftsessiond: it opens a
// session over net/rpc (pkg/client), attaches a gRPC publish stream for
// server-originated events (pkg/transport/grpcconn), issues a few
// Zookeeper-shaped commands and queries, and prints whatever events arrive
// before exiting. Shaped after the original cmd/client/main.go's request
// sequencing, minus the pbzk-specific request/response plumbing that
// package never survived the retrieval pack with.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/hwlsniper/copycat/pkg/client"
	"github.com/hwlsniper/copycat/pkg/session"
	"github.com/hwlsniper/copycat/pkg/transport/grpcconn"
	"github.com/hwlsniper/copycat/pkg/zookeeper"
)

func main() {
	rpcAddr := flag.String("rpc-address", "localhost:8080", "raftsessiond net/rpc address")
	grpcAddr := flag.String("grpc-address", "localhost:8081", "raftsessiond gRPC publish address")
	flag.Parse()

	c, err := client.NewClient(*rpcAddr)
	if err != nil {
		log.Fatal("dialing:", err)
	}
	defer c.Close()
	log.Printf("connected as client %s", c.ClientID())

	conn, cc, err := grpcconn.Dial(context.Background(), *grpcAddr, c.ClientID())
	if err != nil {
		log.Fatal("dialing publish stream:", err)
	}
	defer cc.Close()
	defer conn.Close()
	conn.Handler("publish", func(req *session.PublishRequest) (*session.PublishResponse, error) {
		for _, ev := range req.Events {
			log.Printf("event: %s = %v", ev.Name, ev.Payload)
		}
		return &session.PublishResponse{Status: session.StatusOK}, nil
	})

	if _, err := c.Create(&zookeeper.CreateReq{Path: "/zoo", Data: []byte("secrets")}); err != nil {
		log.Fatal("create /zoo:", err)
	}
	if _, err := c.Create(&zookeeper.CreateReq{Path: "/zoo/giraffe", Data: []byte("more secrets")}); err != nil {
		log.Fatal("create /zoo/giraffe:", err)
	}

	data, err := c.GetData(&zookeeper.GetDataReq{Path: "/zoo"})
	if err != nil {
		log.Fatal("get /zoo:", err)
	}
	log.Printf("/zoo data=%q version=%d", data.Data, data.Version)

	children, err := c.GetChildren(&zookeeper.GetChildrenReq{Path: "/zoo"})
	if err != nil {
		log.Fatal("get children /zoo:", err)
	}
	log.Printf("/zoo children=%v", children.Children)

	// Give any server-originated events a moment to arrive before exiting.
	time.Sleep(500 * time.Millisecond)
}
