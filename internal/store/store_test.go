package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/catalogsheet/internal/core"
)

func TestDecodeRule(t *testing.T) {
	rule, err := decodeRule("color", "enum_match", "warn", "custom", []byte(`{"values":["red","blue"],"description":"Color"}`))
	require.NoError(t, err)

	assert.Equal(t, "color", rule.FieldPath)
	assert.Equal(t, core.RuleEnumMatch, rule.Type)
	assert.Equal(t, core.TierWarn, rule.Severity)
	assert.Equal(t, core.AttrCustom, rule.AttrType)
	assert.Equal(t, []string{"red", "blue"}, rule.Payload.Values)
	assert.Equal(t, "Color", rule.Payload.Description)
}

func TestDecodeRule_DefaultsSeverityToError(t *testing.T) {
	rule, err := decodeRule("sku", "required", "", "core", nil)
	require.NoError(t, err)
	assert.Equal(t, core.TierError, rule.Severity)
}

func TestDecodeRule_Errors(t *testing.T) {
	tests := []struct {
		name     string
		ruleType string
		severity string
		payload  string
		unknown  bool
	}{
		{"unknown kind", "spellcheck", "error", "{}", true},
		{"bad severity", "required", "catastrophic", "{}", false},
		{"bad payload", "range", "error", "{not json", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeRule("title", tt.ruleType, tt.severity, "core", []byte(tt.payload))
			require.Error(t, err)
			assert.Equal(t, tt.unknown, isUnknownKind(err))
		})
	}
}

func isUnknownKind(err error) bool {
	return err != nil && errors.Is(err, core.ErrUnknownRuleKind)
}

func TestUpsertBatch(t *testing.T) {
	scope := core.Scope{SupplierID: "sup", RetailerID: "ret", CategoryID: "cat"}
	sku := core.Column{FieldPath: core.FieldSKU, DisplayName: core.FieldSKU}

	a := core.NewCatalogRecord(scope)
	a.Set(sku, core.String("A-1"))
	b := core.NewCatalogRecord(scope)
	b.Set(sku, core.String("B-2"))

	batch, err := upsertBatch([]*core.CatalogRecord{a, b})
	require.NoError(t, err)
	require.Equal(t, 2, batch.Len())

	q := batch.QueuedQueries[0]
	require.Len(t, q.Arguments, 4)
	assert.Equal(t, a.ID, q.Arguments[0])
	assert.Equal(t, "sup", q.Arguments[1])
	assert.Equal(t, "A-1", q.Arguments[2])

	decoded, err := core.DecodeCatalogRecord(q.Arguments[3].([]byte))
	require.NoError(t, err)
	assert.Equal(t, "A-1", decoded.SKU())
	assert.Equal(t, a.ID, decoded.ID)
}

func TestUpsertBatch_RejectsMissingSKU(t *testing.T) {
	_, err := upsertBatch([]*core.CatalogRecord{core.NewCatalogRecord(core.Scope{SupplierID: "sup"})})
	require.Error(t, err)
}

func TestSchemaEmbedded(t *testing.T) {
	for _, table := range []string{"attribute_rules", "catalog_records", "warehouses"} {
		assert.Contains(t, schemaSQL, table)
	}
}

func TestDatabaseName(t *testing.T) {
	assert.Equal(t, "catalog", DatabaseName("postgres://u:p@localhost:5432/catalog?sslmode=disable"))
	assert.Equal(t, "", DatabaseName("::bad"))
}

func TestOverlayStored(t *testing.T) {
	scope := core.Scope{SupplierID: "sup", RetailerID: "ret", CategoryID: "cat"}

	stored := core.NewCatalogRecord(scope)
	stored.Fields[core.FieldSKU] = core.String("A-1")
	stored.Fields[core.FieldStatus] = core.String("active")
	stored.Fields[core.FieldQuantityAvailable] = core.Number(7)
	stored.Warehouses = []core.WarehouseQuantity{{WarehouseID: "wh-1", Quantity: 7}}

	edit := core.NewCatalogRecord(scope)
	edit.Fields[core.FieldSKU] = core.String("A-1")
	edit.Fields["title"] = core.String("Runner")
	fresh := core.NewCatalogRecord(scope)
	fresh.Fields[core.FieldSKU] = core.String("N-1")

	out := overlayStored([]*core.CatalogRecord{edit, fresh}, map[string]*core.CatalogRecord{
		recordKey("sup", "A-1"): stored,
	})
	require.Len(t, out, 2)

	merged := out[0]
	assert.Equal(t, stored.ID, merged.ID)
	assert.Equal(t, "Runner", merged.Fields["title"].Text())
	assert.Equal(t, "active", merged.Status())
	assert.True(t, core.Number(7).Equal(merged.Fields[core.FieldQuantityAvailable]))
	assert.Equal(t, stored.Warehouses, merged.Warehouses)

	assert.Equal(t, fresh.ID, out[1].ID)
	assert.Equal(t, map[string][]string{"sup": {"A-1", "N-1"}}, skusBySupplier([]*core.CatalogRecord{edit, fresh}))
}
