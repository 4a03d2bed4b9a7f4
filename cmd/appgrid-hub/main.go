package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/appgrid-io/appgrid/core/distribution"
	"github.com/appgrid-io/appgrid/core/infra/buildinfo"
	"github.com/appgrid-io/appgrid/core/infra/bus"
	"github.com/appgrid-io/appgrid/core/infra/config"
	infraMetrics "github.com/appgrid-io/appgrid/core/infra/metrics"
	"github.com/appgrid-io/appgrid/core/infra/redisutil"
)

const defaultHTTPAddr = ":8090"

func main() {
	log.Println("appgrid hub starting...")
	buildinfo.Log("appgrid-hub")

	cfg := config.Load()

	metrics := infraMetrics.NewProm("appgrid_hub")
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", infraMetrics.Handler())
		srv := &http.Server{
			Addr:         cfg.MetricsAddr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		log.Printf("hub metrics on %s/metrics", cfg.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()

	natsBus, err := bus.NewNatsBus(cfg.NatsURL)
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}
	defer natsBus.Close()

	hub := distribution.NewHub(metrics)
	go hub.Run()
	defer hub.Close()

	var rl *distribution.Relay
	redisClient, err := redisutil.NewClient(cfg.RedisURL)
	if err != nil {
		log.Printf("cross-instance relay disabled: %v", err)
	} else {
		defer redisClient.Close()
		rl = distribution.NewRelay(redisClient)
		if err := rl.Start(hub); err != nil {
			log.Fatalf("failed to start relay: %v", err)
		}
		defer rl.Stop()
	}

	svc := distribution.NewService(hub, rl)
	if err := svc.Attach(natsBus); err != nil {
		log.Fatalf("failed to attach to bus: %v", err)
	}

	httpAddr := os.Getenv("HUB_HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = defaultHTTPAddr
	}
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		mux.HandleFunc("/stream", svc.Handler())
		srv := &http.Server{
			Addr:              httpAddr,
			Handler:           mux,
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		log.Printf("hub stream on %s/stream", httpAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http server error: %v", err)
		}
	}()

	log.Println("hub running. waiting for signals...")
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("hub shutting down")
}
