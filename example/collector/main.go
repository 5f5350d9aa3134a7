package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/quarks-tech/fluentforward-go/pkg/delivery"
	"github.com/quarks-tech/fluentforward-go/pkg/fluent"
	"github.com/quarks-tech/fluentforward-go/pkg/wire"
)

func main() {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		log.Fatal(err)
	}

	go serve(ln)

	client := fluent.New(ln.Addr().String(), "example.access")

	for i := 1; i <= 3; i++ {
		err = client.Post(context.Background(), map[string]any{
			"path":   fmt.Sprintf("/books/%d", i),
			"status": 200,
		})
		if err != nil {
			log.Fatal(err)
		}
	}

	// Once the collector is gone the record lands in the buffer file.
	_ = ln.Close()

	buffer := filepath.Join(os.TempDir(), "fluentforward-example.buf")

	offline := fluent.NewWithConfig(ln.Addr().String(), "example.access", delivery.RetryConfig{
		MaxAttempts: 3,
		BufferPath:  buffer,
	})

	if err = offline.Post(context.Background(), map[string]any{"path": "/offline"}); err != nil {
		log.Fatal(err)
	}

	fmt.Println("buffered to", buffer)
	time.Sleep(100 * time.Millisecond)
}

func serve(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}

		b, err := io.ReadAll(conn)
		_ = conn.Close()

		if err != nil {
			fmt.Println(err)
			continue
		}

		r, err := wire.DecodeRecord(b)
		if err != nil {
			fmt.Println(err)
			continue
		}

		fmt.Printf("%s %s %v\n", r.Time, r.Tag, r.Data)
	}
}
