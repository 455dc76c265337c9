package store

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/catalogsheet/internal/core"
)

const warehousesSQL = `
SELECT id, code FROM warehouses WHERE supplier_id = $1 ORDER BY code, id`

// Warehouses is the supplier warehouse directory. It implements
// core.WarehouseDirectory.
type Warehouses struct {
	q Querier
}

// Warehouses implements core.WarehouseDirectory.
func (w *Warehouses) Warehouses(ctx context.Context, supplierID string) ([]core.Warehouse, error) {
	rows, err := w.q.Query(ctx, warehousesSQL, supplierID)
	if err != nil {
		return nil, fmt.Errorf("query warehouses: %w", err)
	}
	defer rows.Close()

	var out []core.Warehouse
	for rows.Next() {
		var wh core.Warehouse
		if err := rows.Scan(&wh.ID, &wh.Code); err != nil {
			return nil, fmt.Errorf("scan warehouse: %w", err)
		}
		out = append(out, wh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read warehouses: %w", err)
	}
	return out, nil
}
