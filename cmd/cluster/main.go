// cmd/cluster loads a cluster configuration file and runs the whole
// cluster — every replica plus every scripted client — in one process.
// Playing the role of the original Python implementation's main.py, which
// takes the same JSON test-configuration file as its sole argument.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"consistentkv/internal/bootstrap"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <config.json>\n", os.Args[0])
		os.Exit(1)
	}

	f, err := os.Open(os.Args[1])
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	cfg, err := bootstrap.Load(f)
	f.Close()
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("received shutdown signal")
		cancel()
	}()

	if err := bootstrap.Launch(ctx, cfg); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}
