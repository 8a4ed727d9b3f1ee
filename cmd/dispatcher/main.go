// Command dispatcher runs the model-dispatch HTTP surface: it loads the
// backend pool from a config file, serves the northbound task endpoints,
// and proxies them to whichever backend the Selector picks.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/pfworks/model-dispatch/internal/capability"
	"github.com/pfworks/model-dispatch/internal/config"
	"github.com/pfworks/model-dispatch/internal/httpapi"
	"github.com/pfworks/model-dispatch/internal/probeclient"
	"github.com/pfworks/model-dispatch/internal/proxy"
	"github.com/pfworks/model-dispatch/internal/registry"
	"github.com/pfworks/model-dispatch/internal/selector"
	"github.com/pfworks/model-dispatch/internal/splitter"
	"github.com/pfworks/model-dispatch/internal/statusagg"
	"github.com/pfworks/model-dispatch/internal/tracing"
)

func main() {
	var (
		addr        = flag.String("addr", ":5000", "address to listen on")
		configPath  = flag.String("config", "backends.json", "path to the backend pool config file")
		capsPath    = flag.String("capabilities", "capabilities.yaml", "optional path to a capability-table override file")
		staticDir   = flag.String("static-dir", "", "directory of static HTML assets to serve at / and /status")
		logFile     = flag.String("log-file", "", "path to the log file (in addition to stdout)")
		watchConfig = flag.Bool("watch-config", true, "hot-reload the backend pool when the config file changes")
		tracingOn   = flag.Bool("tracing", false, "enable OpenTelemetry tracing to stdout")
		serviceName = flag.String("service-name", "model-dispatch", "service name reported in traces")
	)
	flag.Parse()

	if err := config.SetupLogging(*logFile); err != nil {
		log.Fatalf("dispatcher: failed to set up logging: %v", err)
	}

	shutdownTracing, err := tracing.Init(tracing.Config{Enabled: *tracingOn, ServiceName: *serviceName})
	if err != nil {
		log.Fatalf("dispatcher: failed to set up tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	caps, err := capability.LoadFile(*capsPath)
	if err != nil {
		log.Printf("dispatcher: using built-in capability table (%v)", err)
	}

	store := config.NewStore(*configPath, caps)
	reg := registry.New(store.Snapshot())

	if *watchConfig {
		stop := make(chan struct{})
		if err := store.Watch(stop); err != nil {
			log.Printf("dispatcher: config hot-reload disabled: %v", err)
		} else {
			go reconcileLoop(store, reg, stop)
		}
	}

	probe := probeclient.New()
	sel := selector.New(reg, probe, caps)
	px := proxy.New(reg, sel)
	split := splitter.New(px)
	status := statusagg.New(reg, probe)

	engine := &httpapi.Engine{Proxy: px, Splitter: split, Status: status, Caps: caps}
	router := httpapi.NewRouter(engine, *staticDir)

	srv := &http.Server{
		Addr:    *addr,
		Handler: router,
	}

	go func() {
		log.Printf("dispatcher: listening on %s (config=%s)", *addr, *configPath)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("dispatcher: server failed: %v", err)
		}
	}()

	waitForShutdown(srv)
}

// reconcileLoop republishes the registry's descriptor list whenever the
// config store picks up a reload, until stop is closed. Store.Watch
// updates the store's own snapshot asynchronously on fsnotify events;
// this loop is what actually pushes that snapshot into the Registry.
func reconcileLoop(store *config.Store, reg *registry.Registry, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			reg.Reconcile(store.Snapshot())
		}
	}
}

func waitForShutdown(srv *http.Server) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("dispatcher: shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("dispatcher: graceful shutdown failed: %v", err)
	}
}
