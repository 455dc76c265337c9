package core

// reconcile.go turns one physical spreadsheet row into a catalog record.
//
// Reconciliation runs in two phases:
//  1. Scan coerces every cell, writes non-null values into a fresh record
//     and locates the identifier (sku).
//  2. Merge runs once, only when an identifier was found, and folds in the
//     existing record for that sku: warehouse synthesis on activation and
//     image carry-forward. It also decides whether the row was modified.
//
// Rows never share records, so both phases may run concurrently across rows.

import (
	"context"
	"fmt"
)

// RowCell pairs a raw cell value with the column it belongs to.
type RowCell struct {
	Raw    CellValue
	Column Column
}

// Row is one physical row bound to the schema.
type Row struct {
	Number int
	Cells  []RowCell

	// Modified is the row source's a-priori verdict. Flat files always
	// report true; live sheets compare stored fingerprints.
	Modified bool
}

// RowResult is the outcome of reconciling one row.
type RowResult struct {
	Row             int            `json:"row"`
	Record          *CatalogRecord `json:"record"`
	Modified        bool           `json:"modified"`
	EmptyRow        bool           `json:"emptyRow"`
	HasExistingItem bool           `json:"hasExistingItem"`
}

// Draft is the phase-one output for a row.
type Draft struct {
	Row      int
	Record   *CatalogRecord
	SKU      string
	EmptyRow bool

	touched []Column
}

// WarehouseDirectory resolves a supplier's warehouses.
type WarehouseDirectory interface {
	Warehouses(ctx context.Context, supplierID string) ([]Warehouse, error)
}

// StaticDirectory is a fixed warehouse list, for callers that already
// fetched the directory.
type StaticDirectory []Warehouse

// Warehouses implements WarehouseDirectory.
func (d StaticDirectory) Warehouses(context.Context, string) ([]Warehouse, error) {
	return d, nil
}

// Reconciler reconciles rows for one model.
type Reconciler struct {
	model     *Model
	directory WarehouseDirectory
}

// NewReconciler creates a reconciler. directory may be nil when no row can
// leave the pending state.
func NewReconciler(model *Model, directory WarehouseDirectory) *Reconciler {
	if directory == nil {
		directory = StaticDirectory(nil)
	}
	return &Reconciler{model: model, directory: directory}
}

// Scan runs phase one: coerce every cell and build the raw record.
func (r *Reconciler) Scan(row Row) *Draft {
	d := &Draft{
		Row:      row.Number,
		Record:   NewCatalogRecord(r.model.Scope),
		EmptyRow: true,
	}

	for _, cell := range row.Cells {
		v := Coerce(cell.Raw, cell.Column)
		if v.IsNull() {
			continue
		}
		d.Record.Set(cell.Column, v)
		d.touched = append(d.touched, cell.Column)

		if isIdentifier(cell.Column) {
			if d.SKU == "" {
				d.SKU = CleanCell(v.Text())
			}
			continue
		}
		if b, ok := v.BoolVal(); ok && !b {
			// a present-but-false checkbox is not row content
			continue
		}
		d.EmptyRow = false
	}
	return d
}

// Merge runs phase two against the existing record for the draft's sku.
// existing may be nil. The only error source is the warehouse directory.
func (r *Reconciler) Merge(ctx context.Context, d *Draft, existing *CatalogRecord) (RowResult, error) {
	if d.SKU == "" {
		existing = nil
	}

	res := RowResult{
		Row:             d.Row,
		Record:          d.Record,
		EmptyRow:        d.EmptyRow,
		HasExistingItem: existing != nil,
	}

	if d.SKU != "" {
		if err := r.mergeExisting(ctx, d.Record, existing); err != nil {
			return res, err
		}
	}

	res.Modified = r.modified(d, existing)
	return res, nil
}

// Reconcile runs both phases for a single row.
func (r *Reconciler) Reconcile(ctx context.Context, row Row, existing *CatalogRecord) (RowResult, error) {
	d := r.Scan(row)
	if d.SKU == "" || (existing != nil && existing.SKU() != "" && existing.SKU() != d.SKU) {
		existing = nil
	}
	return r.Merge(ctx, d, existing)
}

func (r *Reconciler) mergeExisting(ctx context.Context, rec, existing *CatalogRecord) error {
	if existing != nil {
		rec.ID = existing.ID
	}

	if activates(rec, existing) {
		if _, set := rec.Fields[FieldQuantityAvailable]; !set {
			qty := Number(0)
			if existing != nil {
				if v := existing.Fields[FieldQuantityAvailable]; !v.IsNull() {
					qty = v
				}
			}
			rec.Fields[FieldQuantityAvailable] = qty
		}

		dir, err := r.directory.Warehouses(ctx, rec.Scope.SupplierID)
		if err != nil {
			return fmt.Errorf("%w: supplier %s: %v", ErrWarehouseSource, rec.Scope.SupplierID, err)
		}
		var carried []WarehouseQuantity
		if existing != nil {
			carried = existing.Warehouses
		}
		rec.Warehouses = SynthesizeWarehouses(carried, dir)
	}

	// Images owned by other categories or retailers survive an edit scoped
	// to this one.
	if existing != nil {
		for _, col := range r.model.ImageColumns() {
			array, _ := col.ImageSlot()
			if rec.HasImageArray(array) || !existing.HasImageArray(array) {
				continue
			}
			rec.Images[array] = append([]ImageEntry(nil), existing.Images[array]...)
		}
	}
	return nil
}

// activates reports whether the row moves a record out of the pending state.
func activates(rec, existing *CatalogRecord) bool {
	status := rec.Status()
	if status == "" || status == StatusPending {
		return false
	}
	return existing == nil || existing.IsPending()
}

// SynthesizeWarehouses carries every existing warehouse entry forward and
// appends a zero-quantity entry for each directory warehouse not yet listed.
func SynthesizeWarehouses(existing []WarehouseQuantity, directory []Warehouse) []WarehouseQuantity {
	out := make([]WarehouseQuantity, 0, len(existing)+len(directory))
	seen := make(map[string]bool, len(existing))
	for _, w := range existing {
		if w.WarehouseID == "" || seen[w.WarehouseID] {
			continue
		}
		seen[w.WarehouseID] = true
		out = append(out, w)
	}
	for _, w := range directory {
		if seen[w.ID] {
			continue
		}
		seen[w.ID] = true
		out = append(out, WarehouseQuantity{WarehouseID: w.ID, Code: w.Code, Quantity: 0})
	}
	return out
}

// modified compares every touched field with the value extracted from the
// existing record, using the render form of both sides.
func (r *Reconciler) modified(d *Draft, existing *CatalogRecord) bool {
	if existing == nil {
		return !d.EmptyRow
	}
	for _, col := range d.touched {
		next := RenderValue(d.Record.Value(col), col)
		prev := RenderValue(existing.Value(col), col)
		if !next.SameContent(prev) {
			return true
		}
	}
	return false
}

func isIdentifier(c Column) bool {
	return c.FieldPath == FieldSKU && c.Ownership == Core
}
