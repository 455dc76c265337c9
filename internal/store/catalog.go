package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/catalogsheet/internal/core"
)

const fetchRecordsSQL = `
SELECT id, document
FROM catalog_records
WHERE supplier_id = $1 AND sku = ANY($2)`

const lockRecordsSQL = `
SELECT id, document
FROM catalog_records
WHERE supplier_id = $1 AND sku = ANY($2)
FOR UPDATE`

const upsertRecordSQL = `
INSERT INTO catalog_records (id, supplier_id, sku, document, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (supplier_id, sku)
DO UPDATE SET document = EXCLUDED.document, updated_at = now()`

// Catalog stores catalog records as JSON documents keyed by supplier and
// sku. It implements core.CatalogSource and core.CatalogSaver.
type Catalog struct {
	pool *pgxpool.Pool
}

// FetchExisting implements core.CatalogSource with one query for all skus.
func (c *Catalog) FetchExisting(ctx context.Context, scope core.Scope, skus []string) (map[string]*core.CatalogRecord, error) {
	out := make(map[string]*core.CatalogRecord, len(skus))
	if len(skus) == 0 {
		return out, nil
	}

	rows, err := c.pool.Query(ctx, fetchRecordsSQL, scope.SupplierID, skus)
	if err != nil {
		return nil, fmt.Errorf("query catalog records: %w", err)
	}
	return scanRecords(rows)
}

// scanRecords reads (id, document) rows into records keyed by sku.
func scanRecords(rows pgx.Rows) (map[string]*core.CatalogRecord, error) {
	defer rows.Close()

	out := make(map[string]*core.CatalogRecord)
	for rows.Next() {
		var id uuid.UUID
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scan catalog record: %w", err)
		}
		rec, err := core.DecodeCatalogRecord(doc)
		if err != nil {
			return nil, fmt.Errorf("decode catalog record %s: %w", id, err)
		}
		rec.ID = id
		out[rec.SKU()] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read catalog records: %w", err)
	}
	return out, nil
}

// SaveRecords implements core.CatalogSaver. Each record is overlaid on its
// stored version, so values the sheet did not carry are kept. All records are
// written in one transaction; any failure rolls back the whole batch.
func (c *Catalog) SaveRecords(ctx context.Context, records []*core.CatalogRecord) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	stored := make(map[string]*core.CatalogRecord)
	for supplier, skus := range skusBySupplier(records) {
		rows, err := tx.Query(ctx, lockRecordsSQL, supplier, skus)
		if err != nil {
			return fmt.Errorf("lock catalog records: %w", err)
		}
		found, err := scanRecords(rows)
		if err != nil {
			return err
		}
		for sku, rec := range found {
			stored[recordKey(supplier, sku)] = rec
		}
	}

	batch, err := upsertBatch(overlayStored(records, stored))
	if err != nil {
		return err
	}

	results := tx.SendBatch(ctx, batch)
	for i := range records {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("upsert %s: %w", records[i].SKU(), err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func recordKey(supplier, sku string) string {
	return supplier + "\x00" + sku
}

func skusBySupplier(records []*core.CatalogRecord) map[string][]string {
	out := make(map[string][]string)
	for _, rec := range records {
		if sku := rec.SKU(); sku != "" {
			out[rec.Scope.SupplierID] = append(out[rec.Scope.SupplierID], sku)
		}
	}
	return out
}

// overlayStored merges each record onto its stored version, if any.
func overlayStored(records []*core.CatalogRecord, stored map[string]*core.CatalogRecord) []*core.CatalogRecord {
	out := make([]*core.CatalogRecord, len(records))
	for i, rec := range records {
		out[i] = stored[recordKey(rec.Scope.SupplierID, rec.SKU())].Overlay(rec)
	}
	return out
}

func upsertBatch(records []*core.CatalogRecord) (*pgx.Batch, error) {
	batch := &pgx.Batch{}
	for _, rec := range records {
		sku := rec.SKU()
		if sku == "" {
			return nil, fmt.Errorf("record %s has no sku", rec.ID)
		}
		doc, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", sku, err)
		}
		batch.Queue(upsertRecordSQL, rec.ID, rec.Scope.SupplierID, sku, doc)
	}
	return batch, nil
}
