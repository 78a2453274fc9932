package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"brewtrack.dev/internal/account"
	"brewtrack.dev/internal/httpapi"
	"brewtrack.dev/internal/obs"
	"brewtrack.dev/internal/store/pg"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	dsn := os.Getenv("BREWTRACK_PG_DSN")
	if dsn == "" {
		log.Fatal("BREWTRACK_PG_DSN is required")
	}
	secret := os.Getenv("BREWTRACK_TOKEN_SECRET")
	if secret == "" {
		log.Fatal("BREWTRACK_TOKEN_SECRET is required")
	}

	store, err := pg.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	var tokenOpts []account.TokenOption
	if issuer := os.Getenv("BREWTRACK_TOKEN_ISSUER"); issuer != "" {
		tokenOpts = append(tokenOpts, account.WithIssuer(issuer))
	}
	if raw := os.Getenv("BREWTRACK_TOKEN_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatalf("parse BREWTRACK_TOKEN_TTL: %v", err)
		}
		tokenOpts = append(tokenOpts, account.WithTTL(ttl))
	}
	tokens, err := account.NewTokenManager(secret, tokenOpts...)
	if err != nil {
		log.Fatalf("token manager: %v", err)
	}

	hashCost := account.DefaultHashCost
	if raw := os.Getenv("BREWTRACK_HASH_COST"); raw != "" {
		hashCost, err = strconv.Atoi(raw)
		if err != nil {
			log.Fatalf("parse BREWTRACK_HASH_COST: %v", err)
		}
	}

	accounts, err := account.NewService(store, account.NewHasher(hashCost), tokens)
	if err != nil {
		log.Fatalf("account service: %v", err)
	}

	probe := httpapi.ReadyProbe{DB: store.DB()}
	api := httpapi.New(accounts, probe, version)

	addr := os.Getenv("BREWTRACK_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting brewtrack-api %s on %s", version, srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// Optional gRPC health endpoint for platforms that probe over gRPC.
	grpcSrv := httpapi.NewGRPCServer(probe)
	if grpcAddr := os.Getenv("BREWTRACK_GRPC_ADDR"); grpcAddr != "" {
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		log.Printf("Starting gRPC health on %s", grpcAddr)
		go func() {
			if err := grpcSrv.Serve(lis); err != nil {
				log.Fatalf("grpc serve: %v", err)
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	grpcSrv.GracefulStop()
	log.Println("Stopped")
}
