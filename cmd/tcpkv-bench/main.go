// Command tcpkv-bench is a minimal load generator for a tcpkv server: N
// goroutines each alternate SET/GET against a per-client key for a fixed
// duration and report throughput.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/pflag"
)

func main() {
	var (
		host    = pflag.String("host", "127.0.0.1", "server host")
		port    = pflag.Int("port", 8080, "server port")
		clients = pflag.Int("clients", 50, "concurrent client connections")
		seconds = pflag.Int("seconds", 5, "benchmark duration in seconds")
	)
	pflag.Parse()

	addr := fmt.Sprintf("%s:%d", *host, *port)

	var wg sync.WaitGroup
	var ops atomic.Uint64
	start := make(chan struct{})
	stop := make(chan struct{})

	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go worker(i, addr, start, stop, &ops, &wg)
	}

	t0 := time.Now()
	close(start)
	time.Sleep(time.Duration(*seconds) * time.Second)
	close(stop)
	wg.Wait()
	elapsed := time.Since(t0).Seconds()

	total := ops.Load()
	fmt.Printf("clients=%d seconds=%.3f ops=%d ops/sec=%.1f\n",
		*clients, elapsed, total, float64(total)/elapsed)
}

func worker(id int, addr string, start, stop <-chan struct{}, ops *atomic.Uint64, wg *sync.WaitGroup) {
	defer wg.Done()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dial:", err)
		return
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	if _, err := r.ReadString('\n'); err != nil { // banner
		return
	}

	<-start

	key := fmt.Sprintf("k%d", id)
	setCmd := []byte("SET " + key + " 123\n")
	getCmd := []byte("GET " + key + "\n")

	for {
		select {
		case <-stop:
			return
		default:
		}

		if _, err := conn.Write(setCmd); err != nil {
			return
		}
		if _, err := r.ReadString('\n'); err != nil {
			return
		}
		if _, err := conn.Write(getCmd); err != nil {
			return
		}
		if _, err := r.ReadString('\n'); err != nil {
			return
		}
		ops.Add(2)
	}
}
