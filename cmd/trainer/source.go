package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Skufu/symptomguide/internal/dataset"
)

const (
	sourceCSV      = "csv"
	sourcePostgres = "postgres"
)

// loadDataset reads the training rows from the source named in opts.
func loadDataset(ctx context.Context, opts trainOptions) (*dataset.Dataset, error) {
	if opts.Source != sourcePostgres {
		return dataset.LoadCSV(opts.DatasetPath)
	}

	pool, err := connectDB(ctx, opts.DatabaseURL)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	return readTable(ctx, pool, opts.Table)
}

func readTable(ctx context.Context, q dataset.Querier, table string) (*dataset.Dataset, error) {
	queryCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return dataset.LoadPostgres(queryCtx, q, table)
}

func connectDB(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return pool, nil
}
