package main

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"solana-nft-kit/internal/domain"
	"solana-nft-kit/internal/identity"
	"solana-nft-kit/internal/observability"
	"solana-nft-kit/internal/storage"
	chstore "solana-nft-kit/internal/storage/clickhouse"
	"solana-nft-kit/internal/storage/migrations"
)

func main() {
	// Parse flags
	node := flag.String("node", storage.DefaultNodeAddress, "Bundlr node base URL")
	currency := flag.String("currency", "solana", "Payment currency")
	keypairPath := flag.String("keypair", "", "Path to a Solana CLI keypair file")
	markup := flag.Float64("markup", 1.5, "Price markup multiplier applied to node quotes")
	timeout := flag.Duration("timeout", 60*time.Second, "Node HTTP timeout")
	noWithdraw := flag.Bool("no-withdraw", false, "Leave the leftover balance on the node after uploading")
	dryRun := flag.Bool("dry-run", false, "Quote the price and funding shortfall without uploading")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for the upload journal (empty to skip)")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[upload] ", log.LstdFlags|log.Lshortfile)

	paths := flag.Args()
	if len(paths) == 0 {
		logger.Fatal("No files given. Usage: upload [flags] file...")
	}
	if *keypairPath == "" {
		logger.Fatal("-keypair is required")
	}

	id, err := loadKeypair(*keypairPath)
	if err != nil {
		logger.Fatalf("Load keypair: %v", err)
	}
	logger.Printf("Uploading as %s", id.PublicKey())

	var metrics *observability.Metrics
	if *metricsAddr != "" {
		metrics = observability.NewMetrics("")
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
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

	files := make([]domain.File, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			logger.Fatalf("Read %s: %v", p, err)
		}
		contentType := mime.TypeByExtension(filepath.Ext(p))
		files = append(files, domain.NewFile(filepath.Base(p), contentType, content))
	}

	driver := storage.NewBundlrDriver(id, storage.BundlrOptions{
		Address:         *node,
		Currency:        *currency,
		Timeout:         *timeout,
		PriceMultiplier: decimal.NewFromFloat(*markup),
		Metrics:         metrics,
	})
	if *noWithdraw {
		driver.DontWithdrawAfterUploading()
	}

	price, err := driver.GetUploadPrice(ctx, files...)
	if err != nil {
		logger.Fatalf("Quote price: %v", err)
	}
	needed, err := driver.FundingNeeded(ctx, files, false)
	if err != nil {
		logger.Fatalf("Compute funding: %v", err)
	}
	logger.Printf("Batch of %d files costs %s, funding shortfall %s", len(files), price, needed)

	if *dryRun {
		return
	}

	start := time.Now()
	uris, err := driver.UploadAll(ctx, files)
	if err != nil {
		logger.Fatalf("Upload: %v", err)
	}

	uploadedAt := time.Now().UnixMilli()
	receipts := make([]*domain.UploadReceipt, 0, len(files))
	for i, uri := range uris {
		fmt.Printf("%s\t%s\n", files[i].FileName, uri)
		receipts = append(receipts, &domain.UploadReceipt{
			ID:          filepath.Base(uri),
			URI:         uri,
			FileName:    files[i].FileName,
			ContentType: files[i].ContentType,
			Bytes:       int64(files[i].Size()),
			Price:       price,
			UploadedAt:  uploadedAt,
		})
	}
	logger.Printf("Uploaded %d files in %s", len(files), time.Since(start).Round(time.Millisecond))

	if *clickhouseDSN != "" {
		if err := journalReceipts(ctx, *clickhouseDSN, receipts); err != nil {
			logger.Printf("Journal receipts: %v", err)
		} else {
			logger.Printf("Journaled %d receipts", len(receipts))
		}
	}
}

// loadKeypair reads a Solana CLI keypair file: a JSON array of 64 bytes
// holding the expanded ed25519 private key.
func loadKeypair(path string) (*identity.KeypairIdentity, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// json decodes []byte as base64, so go through []int
	var nums []int
	if err := json.Unmarshal(raw, &nums); err != nil {
		return nil, fmt.Errorf("parse keypair file: %w", err)
	}
	if len(nums) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("keypair file holds %d bytes, want %d", len(nums), ed25519.PrivateKeySize)
	}

	key := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
	for i, n := range nums {
		if n < 0 || n > 255 {
			return nil, fmt.Errorf("keypair byte %d out of range: %d", i, n)
		}
		key[i] = byte(n)
	}
	return identity.NewKeypairIdentity(key)
}

func journalReceipts(ctx context.Context, dsn string, receipts []*domain.UploadReceipt) error {
	conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close()

	return chstore.NewReceiptStore(conn).InsertBulk(ctx, receipts)
}
