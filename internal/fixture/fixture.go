// Package fixture loads rules, catalog records and warehouses from a YAML
// file and serves them through the core source interfaces. The CLI runs on
// fixtures; tests use them in place of a database.
//
// A fixture file looks like:
//
//	scope: {supplier: sup-1, retailer: ret-1, category: shoes}
//	categoryRules:
//	  - {field: sku, type: required}
//	  - {field: color, type: enum_match, values: [red, blue]}
//	accountRules:
//	  - {field: fit, type: required, attrType: custom, severity: warn}
//	warehouses:
//	  sup-1: [{id: wh-1, code: EAST}]
//	catalog:
//	  - fields: {sku: A-1, status: pending}
package fixture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/catalogsheet/internal/core"
)

// File is the YAML document layout.
type File struct {
	Scope         core.Scope                  `yaml:"scope"`
	CategoryRules []core.RuleRecord           `yaml:"categoryRules"`
	AccountRules  []core.RuleRecord           `yaml:"accountRules"`
	Warehouses    map[string][]core.Warehouse `yaml:"warehouses"`
	Catalog       []Record                    `yaml:"catalog"`
}

// Record is the YAML form of a catalog record.
type Record struct {
	ID         string                       `yaml:"id"`
	Fields     map[string]any               `yaml:"fields"`
	Custom     map[string]any               `yaml:"custom"`
	Images     map[string][]core.ImageEntry `yaml:"images"`
	Warehouses []Stock                      `yaml:"warehouses"`
	Compliance []Compliance                 `yaml:"compliance"`
}

// Stock is one warehouse quantity.
type Stock struct {
	WarehouseID string  `yaml:"warehouse"`
	Code        string  `yaml:"code"`
	Quantity    float64 `yaml:"quantity"`
}

// Compliance is one compliance message.
type Compliance struct {
	Field     string `yaml:"field"`
	Ownership string `yaml:"ownership"`
	Severity  string `yaml:"severity"`
	Message   string `yaml:"message"`
}

// Set is a loaded fixture. It is safe for concurrent use.
type Set struct {
	scope         core.Scope
	categoryRules []core.RuleRecord
	accountRules  []core.RuleRecord
	warehouses    map[string][]core.Warehouse

	mu      sync.RWMutex
	catalog map[string]*core.CatalogRecord // supplier/sku
}

// Load reads a fixture file from disk.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	set, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return set, nil
}

// Decode parses a fixture document. Unknown keys are rejected.
func Decode(r io.Reader) (*Set, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return FromFile(f)
}

// FromFile builds a set from an already decoded document.
func FromFile(f File) (*Set, error) {
	s := &Set{
		scope:         f.Scope,
		categoryRules: f.CategoryRules,
		accountRules:  f.AccountRules,
		warehouses:    f.Warehouses,
		catalog:       make(map[string]*core.CatalogRecord, len(f.Catalog)),
	}
	for i, r := range f.Catalog {
		rec, err := r.toCatalog(f.Scope)
		if err != nil {
			return nil, fmt.Errorf("catalog[%d]: %w", i, err)
		}
		if rec.SKU() == "" {
			return nil, fmt.Errorf("catalog[%d]: missing sku", i)
		}
		s.catalog[catalogKey(rec.Scope.SupplierID, rec.SKU())] = rec
	}
	return s, nil
}

func (r Record) toCatalog(scope core.Scope) (*core.CatalogRecord, error) {
	rec := core.NewCatalogRecord(scope)
	if r.ID != "" {
		id, err := parseID(r.ID)
		if err != nil {
			return nil, err
		}
		rec.ID = id
	}
	for k, v := range r.Fields {
		cv, err := core.FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		rec.Fields[core.NormalizeFieldPath(k)] = cv
	}
	for k, v := range r.Custom {
		cv, err := core.FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("custom field %s: %w", k, err)
		}
		rec.Custom[core.NormalizeFieldPath(k)] = cv
	}
	for array, entries := range r.Images {
		rec.Images[array] = append([]core.ImageEntry(nil), entries...)
	}
	for _, w := range r.Warehouses {
		rec.Warehouses = append(rec.Warehouses, core.WarehouseQuantity{
			WarehouseID: w.WarehouseID,
			Code:        w.Code,
			Quantity:    w.Quantity,
		})
	}
	for _, c := range r.Compliance {
		ce := core.ComplianceError{FieldPath: core.NormalizeFieldPath(c.Field), Message: c.Message}
		if err := ce.Ownership.UnmarshalText([]byte(c.Ownership)); err != nil {
			return nil, err
		}
		if c.Severity != "" {
			if err := ce.Severity.UnmarshalText([]byte(c.Severity)); err != nil {
				return nil, err
			}
		}
		rec.Compliance = append(rec.Compliance, ce)
	}
	return rec, nil
}

func catalogKey(supplierID, sku string) string {
	return supplierID + "/" + sku
}

// Scope returns the scope the fixture declares.
func (s *Set) Scope() core.Scope { return s.scope }

// CategoryRules returns the category rule source.
func (s *Set) CategoryRules() core.RuleSource {
	return ruleSource{set: s, rules: s.categoryRules}
}

// AccountRules returns the account rule source.
func (s *Set) AccountRules() core.RuleSource {
	return ruleSource{set: s, rules: s.accountRules}
}

type ruleSource struct {
	set   *Set
	rules []core.RuleRecord
}

// FetchRules implements core.RuleSource. A fixture only knows the rules of
// its own scope; other retailers or categories get none.
func (r ruleSource) FetchRules(_ context.Context, scope core.Scope) ([]core.RuleRecord, error) {
	own := r.set.scope
	if own.RetailerID != "" && own.RetailerID != scope.RetailerID {
		return nil, nil
	}
	if own.CategoryID != "" && own.CategoryID != scope.CategoryID {
		return nil, nil
	}
	return append([]core.RuleRecord(nil), r.rules...), nil
}

// FetchExisting implements core.CatalogSource. Returned records are copies.
func (s *Set) FetchExisting(_ context.Context, scope core.Scope, skus []string) (map[string]*core.CatalogRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*core.CatalogRecord, len(skus))
	for _, sku := range skus {
		if rec, ok := s.catalog[catalogKey(scope.SupplierID, sku)]; ok {
			out[sku] = rec.Clone()
		}
	}
	return out, nil
}

// SaveRecords implements core.CatalogSaver. Saved records are overlaid on
// the stored ones.
func (s *Set) SaveRecords(_ context.Context, records []*core.CatalogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		if rec.SKU() == "" {
			return fmt.Errorf("record %s has no sku", rec.ID)
		}
		key := catalogKey(rec.Scope.SupplierID, rec.SKU())
		s.catalog[key] = s.catalog[key].Overlay(rec)
	}
	return nil
}

// Warehouses implements core.WarehouseDirectory.
func (s *Set) Warehouses(_ context.Context, supplierID string) ([]core.Warehouse, error) {
	return append([]core.Warehouse(nil), s.warehouses[supplierID]...), nil
}

// SKUs lists the catalog skus of the fixture's supplier.
func (s *Set) SKUs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, rec := range s.catalog {
		if rec.Scope.SupplierID == s.scope.SupplierID {
			out = append(out, rec.SKU())
		}
	}
	return out
}

// Sources wires the set into every core source slot.
func (s *Set) Sources() core.Sources {
	return core.Sources{
		CategoryRules: s.CategoryRules(),
		AccountRules:  s.AccountRules(),
		Catalog:       s,
		Warehouses:    s,
		Saver:         s,
	}
}
