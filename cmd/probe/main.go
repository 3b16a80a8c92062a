// Command probe exits 0 when the taskhub server at -a reports SERVING over
// gRPC health, 1 otherwise.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/taskhub/internal/client/probe"
	gs "github.com/dmitrijs2005/taskhub/internal/server/grpc"
)

func main() {
	addr := flag.String("a", "localhost:50051", "gRPC health endpoint")
	timeout := flag.Duration("t", 3*time.Second, "check timeout")
	flag.Parse()

	c, err := probe.NewClient(*addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer c.Close()

	if err := c.Check(context.Background(), gs.ServiceName, *timeout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		c.Close()
		os.Exit(1)
	}
	fmt.Println("SERVING")
}
