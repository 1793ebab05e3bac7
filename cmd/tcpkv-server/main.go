// Command tcpkv-server runs the tcpkv line-protocol TCP server. It exits 0
// on orderly shutdown (SIGINT/SIGTERM) and 1 on startup failure.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"tcpkv"
	"tcpkv/internal/config"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, help, err := config.Parse(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if help {
		fmt.Print(config.Usage)
		return 0
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init:", err)
		return 1
	}
	defer logger.Sync() //nolint:errcheck

	srv := tcpkv.New(fmt.Sprintf(":%d", cfg.Port), cfg, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down", zap.String("signal", sig.String()))
		srv.Shutdown()
	}()

	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server exited", zap.Error(err))
		return 1
	}
	logger.Info("bye")
	return 0
}
