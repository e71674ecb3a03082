// Command tinyvalid watches a directory for incoming tabular files,
// validates each one against a configured ruleset, and files it under a
// processed or rejected directory, while also exposing an HTTP and a
// gRPC management surface over the same configuration store.
package main

import (
	"flag"
	"log"
	"net"
	"net/http"
	"os"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/anthropics/tinyvalid/internal/config"
	"github.com/anthropics/tinyvalid/internal/engine"
	"github.com/anthropics/tinyvalid/internal/httpapi"
	"github.com/anthropics/tinyvalid/internal/rpcapi"
	"github.com/anthropics/tinyvalid/internal/watch"
)

var (
	flagConfig    = flag.String("config", "tinyvalid.yaml", "path to the persisted configuration document")
	flagInput     = flag.String("input", "./data/input", "directory polled for incoming files")
	flagProcessed = flag.String("processed", "./data/processed", "directory files are moved to after passing validation")
	flagRejected  = flag.String("rejected", "./data/rejected", "directory files are moved to after failing or erroring")
	flagSchedule  = flag.String("schedule", "@every 1s", "cron schedule for the directory poll")
	flagHTTP      = flag.String("http", ":8080", "HTTP listen address (empty to disable)")
	flagGRPC      = flag.String("grpc", ":9090", "gRPC listen address (empty to disable)")
	flagVerbose   = flag.Bool("v", false, "write log output to stdout instead of stderr")
)

func main() {
	flag.Parse()

	logger := log.New(os.Stdout, "tinyvalid: ", log.LstdFlags)
	if !*flagVerbose {
		logger.SetOutput(os.Stderr)
	}

	store := config.New(*flagConfig)
	if err := store.Load(); err != nil {
		log.Fatalf("load config %s: %v", *flagConfig, err)
	}

	eng := engine.New(store, logger)

	dirs := watch.Dirs{Input: *flagInput, Processed: *flagProcessed, Rejected: *flagRejected}
	watcher, err := watch.New(dirs, eng, logger, *flagSchedule)
	if err != nil {
		log.Fatalf("build watcher: %v", err)
	}
	if err := watcher.Start(); err != nil {
		log.Fatalf("start watcher: %v", err)
	}
	defer watcher.Stop()

	// Register the JSON codec once, before any gRPC server starts
	// listening, so every hand-registered method on it decodes JSON.
	encoding.RegisterCodec(rpcapi.Codec())

	var grpcErr error
	if *flagGRPC != "" {
		go func() {
			lis, err := net.Listen("tcp", *flagGRPC)
			if err != nil {
				log.Printf("gRPC listen error: %v", err)
				grpcErr = err
				return
			}
			gs := grpc.NewServer()
			rpcapi.Register(gs, rpcapi.New(eng, store, logger))
			log.Printf("gRPC listening on %s", *flagGRPC)
			if err := gs.Serve(lis); err != nil {
				log.Printf("gRPC serve error: %v", err)
				grpcErr = err
			}
		}()
	}

	if *flagHTTP != "" {
		srv := httpapi.New(store, eng, logger)
		log.Printf("HTTP listening on %s", *flagHTTP)
		if err := http.ListenAndServe(*flagHTTP, srv.Handler()); err != nil {
			log.Printf("HTTP serve error: %v", err)
			if grpcErr != nil {
				os.Exit(1)
			}
		}
	} else {
		select {}
	}
}
