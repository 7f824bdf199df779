// Seeds a database with a realistic alias population for load testing:
// a small hot set, a warm set, a large cold set, and a slice of already
// expired records so sweep passes have real work to do.
package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/arhen/satset.io/internal/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	hotCount     = 100
	warmCount    = 10000
	coldCount    = 9890000
	expiredCount = 50000

	batchSize  = 5000
	numWorkers = 4

	liveTTL = 90 * 24 * time.Hour
)

type dataGenerator struct {
	pool *pgxpool.Pool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v\n", err)
	}

	gen := &dataGenerator{pool: pool}

	if err := gen.createTable(ctx); err != nil {
		log.Fatalf("Failed to create table: %v\n", err)
	}

	if err := gen.clearData(ctx); err != nil {
		log.Fatalf("Failed to clear data: %v\n", err)
	}

	if err := gen.insertTier(ctx, "hot", hotCount, func(i int) string {
		return fmt.Sprintf("https://youtube.com/watch?v=%06d", i)
	}); err != nil {
		log.Fatalf("Failed to insert hot aliases: %v\n", err)
	}

	if err := gen.insertTier(ctx, "warm", warmCount, func(i int) string {
		return fmt.Sprintf("https://github.com/repo/%06d", i)
	}); err != nil {
		log.Fatalf("Failed to insert warm aliases: %v\n", err)
	}

	if err := gen.insertExpired(ctx); err != nil {
		log.Fatalf("Failed to insert expired aliases: %v\n", err)
	}

	if err := gen.insertColdParallel(ctx); err != nil {
		log.Fatalf("Failed to insert cold aliases: %v\n", err)
	}

	if err := gen.createIndexes(ctx); err != nil {
		log.Fatalf("Failed to create indexes: %v\n", err)
	}

	if err := gen.verifyData(ctx); err != nil {
		log.Printf("Warning: Data verification failed: %v\n", err)
	}
}

func (g *dataGenerator) createTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS urls (
		alias        TEXT PRIMARY KEY,
		original_url TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expires_at   TIMESTAMPTZ NOT NULL,
		click_count  BIGINT NOT NULL DEFAULT 0
	)`
	_, err := g.pool.Exec(ctx, query)
	return err
}

func (g *dataGenerator) clearData(ctx context.Context) error {
	_, err := g.pool.Exec(ctx, "TRUNCATE urls")
	return err
}

const insertQuery = `
	INSERT INTO urls (alias, original_url, created_at, expires_at)
	VALUES ($1, $2, $3, $4)
`

func (g *dataGenerator) insertTier(ctx context.Context, tier string, count int, urlFor func(int) string) error {
	for start := 1; start <= count; start += batchSize {
		end := start + batchSize - 1
		if end > count {
			end = count
		}

		batch := &pgx.Batch{}
		for i := start; i <= end; i++ {
			createdAt := time.Now().Add(-time.Duration(i) * time.Minute)
			batch.Queue(insertQuery,
				fmt.Sprintf("%s%07d", tier, i), urlFor(i), createdAt, createdAt.Add(liveTTL),
			)
		}

		if err := g.sendBatch(ctx, batch); err != nil {
			return err
		}
	}

	return nil
}

// insertExpired seeds records whose expiry is already in the past, so sweep
// passes during a load run delete real rows instead of no-oping.
func (g *dataGenerator) insertExpired(ctx context.Context) error {
	for start := 1; start <= expiredCount; start += batchSize {
		end := start + batchSize - 1
		if end > expiredCount {
			end = expiredCount
		}

		batch := &pgx.Batch{}
		for i := start; i <= end; i++ {
			createdAt := time.Now().Add(-liveTTL - time.Duration(i)*time.Minute)
			batch.Queue(insertQuery,
				fmt.Sprintf("dead%07d", i),
				fmt.Sprintf("https://example.com/archived/%07d", i),
				createdAt, createdAt.Add(liveTTL),
			)
		}

		if err := g.sendBatch(ctx, batch); err != nil {
			return err
		}
	}

	return nil
}

func (g *dataGenerator) insertColdParallel(ctx context.Context) error {
	var wg sync.WaitGroup
	errChan := make(chan error, numWorkers)

	rowsPerWorker := coldCount / numWorkers

	for workerID := 0; workerID < numWorkers; workerID++ {
		wg.Add(1)

		start := workerID*rowsPerWorker + 1
		end := start + rowsPerWorker - 1
		if workerID == numWorkers-1 {
			end = coldCount
		}

		go func(id, start, end int) {
			defer wg.Done()

			if err := g.insertColdBatch(ctx, start, end); err != nil {
				errChan <- fmt.Errorf("worker %d failed: %w", id, err)
			}
		}(workerID, start, end)
	}

	wg.Wait()
	close(errChan)

	for err := range errChan {
		return err
	}

	return nil
}

func (g *dataGenerator) insertColdBatch(ctx context.Context, start, end int) error {
	for i := start; i <= end; i += batchSize {
		batchEnd := i + batchSize - 1
		if batchEnd > end {
			batchEnd = end
		}

		batch := &pgx.Batch{}
		for j := i; j <= batchEnd; j++ {
			createdAt := time.Now().Add(-time.Duration(j) * time.Second)
			batch.Queue(insertQuery,
				fmt.Sprintf("cold%07d", j),
				fmt.Sprintf("https://example.com/page/%07d", j),
				createdAt, createdAt.Add(liveTTL),
			)
		}

		if err := g.sendBatch(ctx, batch); err != nil {
			return err
		}
	}

	return nil
}

func (g *dataGenerator) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	br := g.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec failed: %w", err)
		}
	}

	return nil
}

func (g *dataGenerator) createIndexes(ctx context.Context) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_urls_expires_at ON urls(expires_at)",
		"CREATE INDEX IF NOT EXISTS idx_urls_created_at ON urls(created_at)",
	}

	for _, query := range indexes {
		if _, err := g.pool.Exec(ctx, query); err != nil {
			return err
		}
	}

	if _, err := g.pool.Exec(ctx, "ANALYZE urls"); err != nil {
		return err
	}

	return nil
}

func (g *dataGenerator) verifyData(ctx context.Context) error {
	var count int64
	err := g.pool.QueryRow(ctx, "SELECT COUNT(*) FROM urls").Scan(&count)
	if err != nil {
		return err
	}

	expected := int64(hotCount + warmCount + coldCount + expiredCount)
	if count != expected {
		return fmt.Errorf("expected %d rows but got %d", expected, count)
	}

	return nil
}
