package xlsxgrid

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/catalogsheet/internal/core"
)

func testModel(t *testing.T) *core.Model {
	t.Helper()
	minPrice := 1.0
	rules := []core.RuleRecord{
		{FieldPath: "sku", Type: core.RuleRequired},
		{FieldPath: "title", Type: core.RuleRequired, Payload: core.RulePayload{Description: "Product title"}},
		{FieldPath: "price", Type: core.RuleFormat, Payload: core.RulePayload{PrimaryType: "number"}},
		{FieldPath: "price", Type: core.RuleRange, Payload: core.RulePayload{Min: &minPrice}},
		{FieldPath: "color", Type: core.RuleEnumMatch, Severity: core.TierNone, Payload: core.RulePayload{Values: []string{"red", "blue"}}},
		{FieldPath: "launch", Type: core.RuleFormat, Payload: core.RulePayload{PrimaryType: "date"}},
		{FieldPath: "organic", Type: core.RuleFormat, Payload: core.RulePayload{PrimaryType: "boolean"}},
	}
	return core.NewModel(core.Scope{SupplierID: "sup", RetailerID: "ret", CategoryID: "cat"}, core.Compile(rules))
}

func testRecord(m *core.Model, sku string) *core.CatalogRecord {
	rec := core.NewCatalogRecord(m.Scope)
	set := func(name string, v core.CellValue) {
		col, ok := m.BySaveName(name)
		if !ok {
			panic("no column " + name)
		}
		rec.Set(col, v)
	}
	set("sku", core.String(sku))
	set("title", core.String("Widget "+sku))
	set("price", core.Number(12.5))
	set("color", core.String("red"))
	set("launch", core.Date(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	set("organic", core.Bool(true))
	return rec
}

func writeGrid(t *testing.T, g core.Grid) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, g, Options{ValidationRows: 10}))
	require.NotZero(t, buf.Len())
	return buf.Bytes()
}

func openGrid(t *testing.T, data []byte) *Source {
	t.Helper()
	src, err := Open(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })
	return src
}

func TestWrite_EmptyTemplate(t *testing.T) {
	m := testModel(t)
	src := openGrid(t, writeGrid(t, core.Render(m, nil)))

	header, err := src.Header()
	require.NoError(t, err)
	assert.Equal(t, []string{"sku", "title", "price", "color", "launch", "organic", core.FingerprintHeader}, header)
	assert.True(t, src.Live())

	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestRoundTrip_UnchangedRowsAreNotModified(t *testing.T) {
	m := testModel(t)
	records := []*core.CatalogRecord{testRecord(m, "A-1"), testRecord(m, "B-2")}
	src := openGrid(t, writeGrid(t, core.Render(m, records)))

	rows, err := core.ReadRows(t.Context(), m, src)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.False(t, r.Modified, "row %d", r.Number)
	}
	assert.Equal(t, 2, rows[0].Number)
}

func TestRoundTrip_ValuesSurvive(t *testing.T) {
	m := testModel(t)
	src := openGrid(t, writeGrid(t, core.Render(m, []*core.CatalogRecord{testRecord(m, "A-1")})))

	rows, err := core.ReadRows(t.Context(), m, src)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	rec := core.NewReconciler(m, nil)
	res, err := rec.Reconcile(t.Context(), rows[0], nil)
	require.NoError(t, err)

	assert.Equal(t, "A-1", res.Record.SKU())
	price, _ := m.BySaveName("price")
	n, ok := res.Record.Value(price).Num()
	require.True(t, ok)
	assert.InDelta(t, 12.5, n, 1e-9)

	launch, _ := m.BySaveName("launch")
	d, ok := res.Record.Value(launch).Time()
	require.True(t, ok)
	assert.True(t, d.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)), "got %v", d)

	organic, _ := m.BySaveName("organic")
	b, ok := res.Record.Value(organic).BoolVal()
	require.True(t, ok)
	assert.True(t, b)
}

func TestRoundTrip_StaleFingerprintMarksModified(t *testing.T) {
	m := testModel(t)
	g := core.Render(m, []*core.CatalogRecord{testRecord(m, "A-1")})
	g.Rows[0].Fingerprint = "stale"
	src := openGrid(t, writeGrid(t, g))

	rows, err := core.ReadRows(t.Context(), m, src)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Modified)
}

func TestWrite_ListsSheet(t *testing.T) {
	m := testModel(t)
	g := core.Render(m, nil)
	require.Len(t, g.Lists, 1)
	assert.Equal(t, core.ListSheetName+"!$A$2:$A$3", g.Lists[0].Range)

	data := writeGrid(t, g)
	src := openGrid(t, data)
	sheets := src.wb.Sheets()
	require.Len(t, sheets, 2)
	assert.Equal(t, core.DataSheetName, sheets[0].Name())
	assert.Equal(t, core.ListSheetName, sheets[1].Name())

	values := rowValues(sheets[1].Rows()[1])
	require.NotEmpty(t, values)
	assert.Equal(t, "red", values[0].Text())
}

func TestOpen_RejectsNonWorkbook(t *testing.T) {
	data := []byte("sku,title\nA,B\n")
	_, err := Open(bytes.NewReader(data), int64(len(data)))
	assert.ErrorIs(t, err, core.ErrUnsupportedFile)
}
