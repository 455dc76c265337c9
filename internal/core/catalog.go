package core

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// Well-known catalog fields.
const (
	FieldSKU               = "sku"
	FieldStatus            = "status"
	FieldQuantityAvailable = "quantity_available"

	// StatusPending is the status of records that have not been activated yet.
	StatusPending = "pending"

	// DefaultImageArray backs image columns whose path has no array prefix.
	DefaultImageArray = "images"
)

// Scope identifies the (supplier, retailer, category) a schema is compiled for.
type Scope struct {
	SupplierID string `json:"supplierId" yaml:"supplier"`
	RetailerID string `json:"retailerId" yaml:"retailer"`
	CategoryID string `json:"categoryId" yaml:"category"`
}

// Key returns a stable string form of the scope for logs and caches.
func (s Scope) Key() string {
	return s.SupplierID + "/" + s.RetailerID + "/" + s.CategoryID
}

// Warehouse is one entry of a supplier's warehouse directory.
type Warehouse struct {
	ID   string `json:"id" yaml:"id"`
	Code string `json:"code" yaml:"code"`
}

// WarehouseQuantity is the per-warehouse stock of a catalog record.
type WarehouseQuantity struct {
	WarehouseID string  `json:"warehouseId"`
	Code        string  `json:"code,omitempty"`
	Quantity    float64 `json:"quantity"`
}

// ImageEntry is one named slot of an image array.
type ImageEntry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ComplianceError is an externally computed validation message attributed
// to one field.
type ComplianceError struct {
	FieldPath string    `json:"fieldPath"`
	Ownership Ownership `json:"ownership"`
	Severity  Tier      `json:"severity"`
	Message   string    `json:"message"`
}

// CatalogRecord is the structured form of one catalog item.
//
// Core attributes live in Fields and extended attributes in Custom, both
// keyed by normalized field path. Images and warehouse quantities are kept
// as typed nested lists.
type CatalogRecord struct {
	ID         uuid.UUID               `json:"id"`
	Scope      Scope                   `json:"scope"`
	Fields     map[string]CellValue    `json:"fields"`
	Custom     map[string]CellValue    `json:"custom,omitempty"`
	Images     map[string][]ImageEntry `json:"images,omitempty"`
	Warehouses []WarehouseQuantity     `json:"warehouses,omitempty"`
	Compliance []ComplianceError       `json:"compliance,omitempty"`
}

// NewCatalogRecord returns an empty record with a fresh identifier.
func NewCatalogRecord(scope Scope) *CatalogRecord {
	return &CatalogRecord{
		ID:     uuid.New(),
		Scope:  scope,
		Fields: make(map[string]CellValue),
		Custom: make(map[string]CellValue),
		Images: make(map[string][]ImageEntry),
	}
}

// SKU returns the identifier value, or "" when unset.
func (r *CatalogRecord) SKU() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.Fields[FieldSKU].Text())
}

// Status returns the lower-cased status value, or "" when unset.
func (r *CatalogRecord) Status() string {
	if r == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(r.Fields[FieldStatus].Text()))
}

// IsPending reports whether the record is still in the pending state.
func (r *CatalogRecord) IsPending() bool {
	return r.Status() == StatusPending
}

// Set writes v at the column's field path. Image columns write into the
// named slot of their image array.
func (r *CatalogRecord) Set(col Column, v CellValue) {
	if col.IsImage() {
		array, name := col.ImageSlot()
		r.setImage(array, name, v.Text())
		return
	}
	if col.Ownership == Extended {
		if r.Custom == nil {
			r.Custom = make(map[string]CellValue)
		}
		r.Custom[col.FieldPath] = v
		return
	}
	if r.Fields == nil {
		r.Fields = make(map[string]CellValue)
	}
	r.Fields[col.FieldPath] = v
}

// Value extracts the value stored for col. Missing fields yield Null.
func (r *CatalogRecord) Value(col Column) CellValue {
	if r == nil {
		return Null()
	}
	if col.IsImage() {
		array, name := col.ImageSlot()
		for _, img := range r.Images[array] {
			if img.Name == name && img.URL != "" {
				return String(img.URL)
			}
		}
		return Null()
	}
	if col.Ownership == Extended {
		return r.Custom[col.FieldPath]
	}
	return r.Fields[col.FieldPath]
}

// HasImageArray reports whether the record carries the named image array.
func (r *CatalogRecord) HasImageArray(array string) bool {
	if r == nil {
		return false
	}
	_, ok := r.Images[array]
	return ok
}

func (r *CatalogRecord) setImage(array, name, url string) {
	if r.Images == nil {
		r.Images = make(map[string][]ImageEntry)
	}
	entries := r.Images[array]
	for i := range entries {
		if entries[i].Name == name {
			entries[i].URL = url
			return
		}
	}
	r.Images[array] = append(entries, ImageEntry{Name: name, URL: url})
}

// ComplianceFor returns the compliance errors attributed to col. Core and
// extended errors on the same field path are kept apart.
func (r *CatalogRecord) ComplianceFor(col Column) []ComplianceError {
	if r == nil {
		return nil
	}
	var out []ComplianceError
	for _, ce := range r.Compliance {
		if NormalizeFieldPath(ce.FieldPath) == col.FieldPath && ce.Ownership == col.Ownership {
			out = append(out, ce)
		}
	}
	return out
}

// Clone returns a deep copy of the record.
func (r *CatalogRecord) Clone() *CatalogRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Fields = cloneValues(r.Fields)
	out.Custom = cloneValues(r.Custom)
	if r.Images != nil {
		out.Images = make(map[string][]ImageEntry, len(r.Images))
		for k, v := range r.Images {
			out.Images[k] = append([]ImageEntry(nil), v...)
		}
	}
	out.Warehouses = append([]WarehouseQuantity(nil), r.Warehouses...)
	out.Compliance = append([]ComplianceError(nil), r.Compliance...)
	return &out
}

// Overlay returns a copy of r with the values carried by next written over
// it. Fields, extended values and image arrays merge per key, so data owned
// by other categories survives. An unset warehouse list keeps the stored
// one. Compliance entries survive for fields next does not carry. The
// result keeps r's identifier.
func (r *CatalogRecord) Overlay(next *CatalogRecord) *CatalogRecord {
	if r == nil {
		return next.Clone()
	}
	out := r.Clone()
	out.Scope = next.Scope
	if out.Fields == nil {
		out.Fields = make(map[string]CellValue)
	}
	if out.Custom == nil {
		out.Custom = make(map[string]CellValue)
	}
	if out.Images == nil {
		out.Images = make(map[string][]ImageEntry)
	}
	for k, v := range next.Fields {
		out.Fields[k] = v
	}
	for k, v := range next.Custom {
		out.Custom[k] = v
	}
	for k, v := range next.Images {
		out.Images[k] = append([]ImageEntry(nil), v...)
	}
	if next.Warehouses != nil {
		out.Warehouses = append([]WarehouseQuantity(nil), next.Warehouses...)
	}

	out.Compliance = out.Compliance[:0]
	for _, ce := range r.Compliance {
		if !next.carries(ce.FieldPath, ce.Ownership) {
			out.Compliance = append(out.Compliance, ce)
		}
	}
	out.Compliance = append(out.Compliance, next.Compliance...)
	if len(out.Compliance) == 0 {
		out.Compliance = nil
	}
	return out
}

// carries reports whether the record holds a value for the field.
func (r *CatalogRecord) carries(path string, own Ownership) bool {
	if own == Extended {
		_, ok := r.Custom[path]
		return ok
	}
	if _, ok := r.Fields[path]; ok {
		return true
	}
	array, name := SplitImagePath(path)
	for _, img := range r.Images[array] {
		if img.Name == name {
			return true
		}
	}
	return false
}

func cloneValues(m map[string]CellValue) map[string]CellValue {
	if m == nil {
		return nil
	}
	out := make(map[string]CellValue, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// DecodeCatalogRecord parses the JSON document form of a record.
func DecodeCatalogRecord(data []byte) (*CatalogRecord, error) {
	rec := &CatalogRecord{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, err
	}
	if rec.Fields == nil {
		rec.Fields = make(map[string]CellValue)
	}
	if rec.Custom == nil {
		rec.Custom = make(map[string]CellValue)
	}
	if rec.Images == nil {
		rec.Images = make(map[string][]ImageEntry)
	}
	return rec, nil
}
