package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solana-nft-kit/internal/domain"
	"solana-nft-kit/internal/metaplex"
	"solana-nft-kit/internal/observability"
	"solana-nft-kit/internal/solana"
	"solana-nft-kit/internal/storage"
	"solana-nft-kit/internal/storage/migrations"
	pgstore "solana-nft-kit/internal/storage/postgres"
)

func main() {
	// Parse flags
	rpcEndpoint := flag.String("rpc-endpoint", "https://api.mainnet-beta.solana.com", "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", "", "Solana WebSocket endpoint (required with -watch)")
	mint := flag.String("mint", "", "Mint address of the token to look up")
	fetchJSON := flag.Bool("fetch-json", false, "Also load the off-chain JSON document behind the URI")
	jsonTimeout := flag.Duration("json-timeout", 15*time.Second, "Timeout for off-chain JSON fetches")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (empty to skip indexing)")
	watch := flag.Bool("watch", false, "Keep running and re-fetch on account changes")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[nftmeta] ", log.LstdFlags|log.Lshortfile)

	if *mint == "" {
		logger.Fatal("-mint is required")
	}
	mintKey, err := solana.PublicKeyFromBase58(*mint)
	if err != nil {
		logger.Fatalf("Invalid mint address: %v", err)
	}
	if *watch && *wsEndpoint == "" {
		logger.Fatal("-watch requires -ws-endpoint")
	}

	var metrics *observability.Metrics
	if *metricsAddr != "" {
		metrics = observability.NewMetrics("")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	var rpcOpts []solana.ClientOption
	if metrics != nil {
		rpcOpts = append(rpcOpts, solana.WithMetrics(metrics))
	}
	rpc := solana.NewHTTPClient(*rpcEndpoint, rpcOpts...)

	var fetcher metaplex.JSONFetcher
	if *fetchJSON {
		fetcher = metaplex.NewHTTPJSONFetcher(*jsonTimeout)
	}
	client := metaplex.NewClient(rpc, fetcher)
	if metrics != nil {
		client.WithMetrics(metrics)
	}

	// Optional Postgres index
	var store storage.MetadataStore
	var pool *pgstore.Pool
	if *postgresDSN != "" {
		var err error
		pool, err = pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("Connect postgres: %v", err)
		}
		defer pool.Close()

		applied, err := migrations.RunPostgresMigrations(ctx, pool)
		if err != nil {
			logger.Fatalf("Run migrations: %v", err)
		}
		logger.Printf("Applied %d schema migrations", applied)
		store = pgstore.NewMetadataStore(pool)
	}

	// Start metrics server if enabled. The health probe also covers the
	// index database when one is configured.
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				if pool != nil {
					if err := pool.Healthy(r.Context()); err != nil {
						http.Error(w, err.Error(), http.StatusServiceUnavailable)
						return
					}
				}
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	if err := fetchAndReport(ctx, logger, client, store, mintKey); err != nil {
		logger.Fatalf("Fetch metadata: %v", err)
	}

	if !*watch {
		return
	}

	// Watch mode: each account change event supersedes the current record,
	// so re-fetch and re-map on every notification.
	ws, err := solana.NewWSClient(ctx, *wsEndpoint, nil)
	if err != nil {
		logger.Fatalf("Connect websocket: %v", err)
	}
	defer ws.Close()

	pda, _, err := metaplex.FindMetadataAddress(mintKey)
	if err != nil {
		logger.Fatalf("Derive metadata address: %v", err)
	}

	notifications, err := ws.SubscribeAccount(ctx, pda.String())
	if err != nil {
		logger.Fatalf("Subscribe to %s: %v", pda, err)
	}
	logger.Printf("Watching metadata account %s", pda)

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notifications:
			if !ok {
				return
			}
			logger.Printf("Account changed at slot %d, re-fetching", n.Slot)
			if err := fetchAndReport(ctx, logger, client, store, mintKey); err != nil {
				logger.Printf("Re-fetch failed: %v", err)
			}
		}
	}
}

// fetchAndReport loads the record, prints it, and indexes it when a store is
// configured.
func fetchAndReport(ctx context.Context, logger *log.Logger, client *metaplex.Client, store storage.MetadataStore, mint solana.PublicKey) error {
	m, err := client.GetMetadata(ctx, mint)
	if err != nil {
		return err
	}

	printMetadata(logger, &m)

	if store != nil {
		if err := store.Insert(ctx, &m); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				logger.Printf("Mint %s already indexed", mint)
				return nil
			}
			return err
		}
		logger.Printf("Indexed mint %s", mint)
	}
	return nil
}

func printMetadata(logger *log.Logger, m *domain.Metadata) {
	logger.Printf("Name: %s  Symbol: %s", m.Name, m.Symbol)
	logger.Printf("URI: %s", m.URI)
	logger.Printf("Update authority: %s", m.UpdateAuthorityAddress)
	logger.Printf("Seller fee: %d bps  Mutable: %v  Primary sale: %v",
		m.SellerFeeBasisPoints, m.IsMutable, m.PrimarySaleHappened)
	if m.TokenStandard != nil {
		logger.Printf("Token standard: %s", m.TokenStandard)
	}
	for _, c := range m.Creators {
		logger.Printf("Creator: %s verified=%v share=%d", c.Address, c.Verified, c.Share)
	}
	if m.Collection != nil {
		logger.Printf("Collection: %s verified=%v", m.Collection.Address, m.Collection.Verified)
	}
	if m.JSONLoaded && m.JSON != nil {
		pretty, err := json.MarshalIndent(m.JSON, "", "  ")
		if err == nil {
			logger.Printf("Off-chain document:\n%s", pretty)
		}
	}
}
