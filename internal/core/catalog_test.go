package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedShoe() *CatalogRecord {
	rec := NewCatalogRecord(testScope)
	rec.Fields["sku"] = String("B-2")
	rec.Fields["title"] = String("Trail")
	rec.Fields["status"] = String("active")
	rec.Fields["quantity_available"] = Number(3)
	rec.Custom["fit"] = String("wide")
	rec.Images["images"] = []ImageEntry{{Name: "front", URL: "https://cdn.example.com/b2.jpg"}}
	rec.Images["swatches"] = []ImageEntry{{Name: "red", URL: "https://cdn.example.com/red.jpg"}}
	rec.Warehouses = []WarehouseQuantity{{WarehouseID: "wh-1", Quantity: 3}}
	rec.Compliance = []ComplianceError{
		{FieldPath: "title", Ownership: Core, Severity: TierWarn, Message: "Title is short"},
		{FieldPath: "status", Ownership: Core, Severity: TierInfo, Message: "Status changed upstream"},
	}
	return rec
}

func TestOverlay_PartialEditKeepsStoredData(t *testing.T) {
	stored := storedShoe()
	next := NewCatalogRecord(testScope)
	next.Fields["sku"] = String("B-2")
	next.Fields["title"] = String("Trail v2")

	got := stored.Overlay(next)

	assert.Equal(t, stored.ID, got.ID)
	assert.True(t, String("Trail v2").Equal(got.Fields["title"]))
	assert.True(t, String("active").Equal(got.Fields["status"]))
	assert.True(t, Number(3).Equal(got.Fields["quantity_available"]))
	assert.True(t, String("wide").Equal(got.Custom["fit"]))
	assert.Len(t, got.Images["images"], 1)
	assert.Equal(t, []WarehouseQuantity{{WarehouseID: "wh-1", Quantity: 3}}, got.Warehouses)

	// the title entry belonged to the old value
	require.Len(t, got.Compliance, 1)
	assert.Equal(t, "status", got.Compliance[0].FieldPath)

	// the stored record is untouched
	assert.True(t, String("Trail").Equal(stored.Fields["title"]))
}

func TestOverlay_NewValuesReplacePerKey(t *testing.T) {
	stored := storedShoe()
	next := NewCatalogRecord(testScope)
	next.Fields["sku"] = String("B-2")
	next.Custom["fit"] = String("narrow")
	next.Images["images"] = []ImageEntry{{Name: "back", URL: "https://cdn.example.com/b2-back.jpg"}}
	next.Warehouses = []WarehouseQuantity{{WarehouseID: "wh-1", Quantity: 3}, {WarehouseID: "wh-2", Code: "WEST"}}
	next.Compliance = []ComplianceError{{FieldPath: "fit", Ownership: Extended, Severity: TierWarn, Message: "Fit ${value} is rare"}}

	got := stored.Overlay(next)

	assert.True(t, String("narrow").Equal(got.Custom["fit"]))
	assert.Equal(t, next.Images["images"], got.Images["images"])
	assert.Len(t, got.Images["swatches"], 1)
	assert.Len(t, got.Warehouses, 2)
	assert.Len(t, got.Compliance, 3)
}

func TestOverlay_NothingStored(t *testing.T) {
	var stored *CatalogRecord
	next := NewCatalogRecord(testScope)
	next.Fields["sku"] = String("N-1")

	got := stored.Overlay(next)
	require.NotNil(t, got)
	assert.Equal(t, next.ID, got.ID)
	assert.Equal(t, "N-1", got.SKU())
}
