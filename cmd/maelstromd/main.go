// Command maelstromd serves reconstructed pool state over HTTP. It keeps a
// PoolSystem refreshed against one chain's contract and exposes the cached
// view, per-pool detail, the curated token list and Prometheus metrics.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	maelstrom "github.com/rohans02/maelstrom-go"
	"github.com/rohans02/maelstrom-go/client"
	"github.com/rohans02/maelstrom-go/tokenlist"
)

type config struct {
	rpcURL          string
	chainID         uint64
	listenAddr      string
	refreshInterval time.Duration
}

func loadConfig() (config, error) {
	// A local .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg := config{
		rpcURL:          os.Getenv("MAELSTROM_RPC_URL"),
		chainID:         maelstrom.ChainEthereumClassic,
		listenAddr:      ":8080",
		refreshInterval: 30 * time.Second,
	}
	if cfg.rpcURL == "" {
		return config{}, errors.New("MAELSTROM_RPC_URL is required")
	}
	if v := os.Getenv("MAELSTROM_CHAIN_ID"); v != "" {
		chainID, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return config{}, errors.New("MAELSTROM_CHAIN_ID must be an integer")
		}
		cfg.chainID = chainID
	}
	if v := os.Getenv("MAELSTROM_LISTEN_ADDR"); v != "" {
		cfg.listenAddr = v
	}
	if v := os.Getenv("MAELSTROM_REFRESH_INTERVAL"); v != "" {
		interval, err := time.ParseDuration(v)
		if err != nil {
			return config{}, errors.New("MAELSTROM_REFRESH_INTERVAL must be a duration like 30s")
		}
		cfg.refreshInterval = interval
	}
	return cfg, nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ethClient, err := ethclient.DialContext(ctx, cfg.rpcURL)
	if err != nil {
		logger.Error("failed to connect to RPC endpoint", "url", cfg.rpcURL, "error", err)
		os.Exit(1)
	}
	defer ethClient.Close()

	reader, err := client.NewReader(ethClient, cfg.chainID, 0, logger)
	if err != nil {
		logger.Error("failed to build reader", "chain", cfg.chainID, "error", err)
		os.Exit(1)
	}

	promReg := prometheus.NewRegistry()
	system, err := maelstrom.NewPoolSystem(ctx, &maelstrom.Config{
		SystemName:       "maelstromd",
		PrometheusReg:    promReg,
		ListPools:        reader.AllPools,
		ErrorHandler:     func(error) {},
		RefreshFrequency: cfg.refreshInterval,
		Logger:           logger,
	})
	if err != nil {
		logger.Error("failed to start pool system", "error", err)
		os.Exit(1)
	}

	lists := tokenlist.NewCache(nil)

	router := mux.NewRouter()
	router.HandleFunc("/healthz", handleHealth(system)).Methods(http.MethodGet)
	router.HandleFunc("/pools", handlePools(system)).Methods(http.MethodGet)
	router.HandleFunc("/pools/{token}", handlePool(reader)).Methods(http.MethodGet)
	router.HandleFunc("/tokens", handleTokens(lists, cfg.chainID)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	server := &http.Server{
		Addr:         cfg.listenAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", cfg.listenAddr, "chain", cfg.chainID)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown incomplete", "error", err)
	}
}

func handleHealth(system *maelstrom.PoolSystem) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":          "ok",
			"lastRefreshedAt": system.LastRefreshedAt(),
			"pools":           len(system.View()),
		})
	}
}

func handlePools(system *maelstrom.PoolSystem) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, system.View())
	}
}

func handlePool(reader *client.Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenHex := mux.Vars(r)["token"]
		if !common.IsHexAddress(tokenHex) {
			writeError(w, http.StatusBadRequest, "invalid token address")
			return
		}

		user := common.Address{}
		if userHex := r.URL.Query().Get("user"); userHex != "" {
			if !common.IsHexAddress(userHex) {
				writeError(w, http.StatusBadRequest, "invalid user address")
				return
			}
			user = common.HexToAddress(userHex)
		}

		pool, err := reader.Pool(r.Context(), common.HexToAddress(tokenHex), user)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, pool)
	}
}

func handleTokens(lists *tokenlist.Cache, chainID uint64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokens, err := lists.Tokens(r.Context(), chainID)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, tokens)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
