package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JonMunkholm/paramcsv/internal/edit"
	"github.com/JonMunkholm/paramcsv/internal/schema"
	"github.com/JonMunkholm/paramcsv/internal/table"
)

// npcSchema has fields HP (always valid), Pad (byte array) and Speed, which
// only exists from version 200 on.
func npcSchema() *schema.Schema {
	return &schema.Schema{
		Name: "NpcParam",
		Fields: []*schema.Field{
			{Name: "HP", Kind: schema.KindS32},
			{Name: "Pad", Kind: schema.KindDummy8, ArrayLength: 2},
			{Name: "Speed", Kind: schema.KindF32, FirstVersion: 200},
		},
	}
}

func hpSchema() *schema.Schema {
	return &schema.Schema{
		Name:   "HpParam",
		Fields: []*schema.Field{{Name: "HP", Kind: schema.KindS32}},
	}
}

func newTable(s *schema.Schema, version uint64, rows ...*table.Row) *table.Table {
	t := table.New(s.Name, s, version)
	for _, r := range rows {
		t.Append(r)
	}
	return t
}

func named(s *schema.Schema, id int, name string, hp int32) *table.Row {
	r := table.NewNamedRow(s, id, name)
	if _, err := r.Set(s.Field("HP"), hp); err != nil {
		panic(err)
	}
	return r
}

func mustApply(t *testing.T, res Result) {
	t.Helper()
	if !res.OK() {
		t.Fatalf("import failed: %s", res.Message)
	}
	if err := edit.Apply(res.Batch); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
}

// snapshot flattens a table to its exported row lines for comparison.
func snapshot(t *table.Table) []string {
	lines := strings.Split(strings.TrimSuffix(ExportTable(t, t.Rows(), '|'), "\n"), "\n")
	return lines[1:]
}

// ============================================================================
// Header and export
// ============================================================================

func TestColumnLabels(t *testing.T) {
	s := npcSchema()

	tests := []struct {
		name    string
		schema  *schema.Schema
		version uint64
		sep     rune
		want    string
	}{
		{"old version", s, 100, ',', "ID,Name,HP,Pad,\n"},
		{"new version", s, 200, ';', "ID;Name;HP;Pad;Speed;\n"},
		{"empty schema", &schema.Schema{Name: "Empty"}, 0, ',', "ID,Name,\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ColumnLabels(tt.schema, tt.version, tt.sep); got != tt.want {
				t.Errorf("ColumnLabels() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExportTable(t *testing.T) {
	s := npcSchema()
	knight := named(s, 1, "Knight, the brave", 100)
	ghost := table.NewRow(s, 2, nil)
	tbl := newTable(s, 100, knight, ghost)

	want := "ID,Name,HP,Pad,\n" +
		"1,Knight- the brave,100,[0|0]\n" +
		"2,null,0,[0|0]\n"
	if got := ExportTable(tbl, tbl.Rows(), ','); got != want {
		t.Errorf("ExportTable() =\n%q\nwant\n%q", got, want)
	}
}

func TestExportField(t *testing.T) {
	s := npcSchema()
	tbl := newTable(s, 100, named(s, 1, "A,B", 7), table.NewRow(s, 2, nil))

	got, err := ExportField(s, tbl.Rows(), NameField, ',')
	if err != nil {
		t.Fatal(err)
	}
	if want := "ID,Name\n1,A-B\n2,null\n"; got != want {
		t.Errorf("ExportField(Name) = %q, want %q", got, want)
	}

	got, err = ExportField(s, tbl.Rows(), "HP", ',')
	if err != nil {
		t.Fatal(err)
	}
	if want := "ID,HP\n1,7\n2,0\n"; got != want {
		t.Errorf("ExportField(HP) = %q, want %q", got, want)
	}

	if _, err := ExportField(s, tbl.Rows(), "Missing", ','); !errors.Is(err, ErrField) {
		t.Errorf("ExportField(Missing) error = %v, want ErrField", err)
	}
}

// ============================================================================
// Full-table import
// ============================================================================

func TestImportTable_KnightAndMage(t *testing.T) {
	s := hpSchema()
	tbl := newTable(s, 0)

	res := ImportTable("ID,Name,HP\n1,Knight,100\n2,Mage,50\n", tbl, TableImportOptions{Separator: ','})

	if res.Message != "4 cells affected, 2 rows added" {
		t.Errorf("Message = %q", res.Message)
	}
	if !res.OK() {
		t.Fatal("expected a batch")
	}
	last := res.Batch.Ops[len(res.Batch.Ops)-1].(*edit.RowInsert)
	if len(last.Rows) != 2 || last.AppendOnly || last.Replace {
		t.Errorf("row insert = %+v", last)
	}
	if tbl.Len() != 0 {
		t.Error("import must not touch the table")
	}

	mustApply(t, res)
	want := []string{"1|Knight|100", "2|Mage|50"}
	if diff := cmp.Diff(want, snapshot(tbl)); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestImportTable_RoundTrip(t *testing.T) {
	s := npcSchema()
	src := newTable(s, 200,
		named(s, 10, "Knight", 100),
		named(s, 10, "Knight copy", 90),
		table.NewRow(s, 20, nil),
	)
	if _, err := src.Rows()[0].Set(s.Field("Pad"), []byte{1, 255}); err != nil {
		t.Fatal(err)
	}
	if _, err := src.Rows()[2].Set(s.Field("Speed"), float32(0.1)); err != nil {
		t.Fatal(err)
	}

	csv := ExportTable(src, src.Rows(), ',')
	dst := newTable(s, 200)
	mustApply(t, ImportTable(csv, dst, TableImportOptions{Replace: true}))

	want := snapshot(src)
	want[2] = "20|null|0|[0|0]|0.1"
	if diff := cmp.Diff(want, snapshot(dst)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	if _, ok := dst.Rows()[2].Name(); !ok {
		t.Error("null name should come back as the literal string")
	}
}

func TestImportTable_Idempotent(t *testing.T) {
	s := npcSchema()
	src := newTable(s, 100, named(s, 1, "Knight", 100), named(s, 2, "Mage", 50))
	csv := ExportTable(src, src.Rows(), ',')

	dst := newTable(s, 100)
	first := ImportTable(csv, dst, TableImportOptions{})
	if first.Added != 2 {
		t.Errorf("first import added %d rows, want 2", first.Added)
	}
	mustApply(t, first)

	second := ImportTable(csv, dst, TableImportOptions{})
	if second.Message != "0 cells affected, 0 rows added" {
		t.Errorf("second import Message = %q", second.Message)
	}
	if second.Batch.Len() != 0 {
		t.Errorf("second import staged %d ops", second.Batch.Len())
	}
}

func TestImportTable_UpdatesExisting(t *testing.T) {
	s := hpSchema()
	knight := named(s, 1, "Knight", 100)
	tbl := newTable(s, 0, knight)

	res := ImportTable("1,Paladin,100\n1,Paladin,120\n", tbl, TableImportOptions{})
	if res.Message != "3 cells affected, 0 rows added" {
		t.Errorf("Message = %q", res.Message)
	}
	mustApply(t, res)
	if !knight.HasName("Paladin") || knight.Get(s.Field("HP")) != int32(120) {
		t.Errorf("row not updated: %v", snapshot(tbl))
	}
}

func TestImportTable_TrailingSeparatorAndBlankLines(t *testing.T) {
	s := hpSchema()
	tbl := newTable(s, 0)

	res := ImportTable("ID,Name,HP,\n\n1,Knight,100,\r\n   \n", tbl, TableImportOptions{})
	if res.Message != "2 cells affected, 1 rows added" {
		t.Errorf("Message = %q", res.Message)
	}
}

func TestImportTable_Failures(t *testing.T) {
	s := npcSchema()
	existing := named(s, 1, "Knight", 100)

	tests := []struct {
		name     string
		text     string
		wantKind ErrorKind
		wantMsg  string
	}{
		{
			name:     "one column short",
			text:     "1,Knight,100\n",
			wantKind: ErrShape,
			wantMsg:  MsgWrongColumns,
		},
		{
			name:     "short line after good lines",
			text:     "1,Knight,5,[0|0]\n2,Mage,7\n",
			wantKind: ErrShape,
			wantMsg:  MsgWrongColumns,
		},
		{
			name:     "trailing column not empty",
			text:     "1,Knight,5,[0|0],x\n",
			wantKind: ErrShape,
			wantMsg:  MsgWrongColumns,
		},
		{
			name:     "bad scalar",
			text:     "1,Knight,lots,[0|0]\n",
			wantKind: ErrCoercion,
			wantMsg:  "Could not assign lots to field HP",
		},
		{
			name:     "bad byte array",
			text:     "1,Knight,5,[1|2|3]\n",
			wantKind: ErrCoercion,
			wantMsg:  "Could not assign [1|2|3] to field Pad",
		},
		{
			name:     "bad id",
			text:     "x,Knight,5,[0|0]\n",
			wantKind: ErrParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := newTable(s, 100, existing)
			res := ImportTable(tt.text, tbl, TableImportOptions{})

			if res.OK() {
				t.Fatal("expected no batch")
			}
			if !errors.Is(res.Err, tt.wantKind) {
				t.Errorf("Err = %v, want kind %v", res.Err, tt.wantKind)
			}
			if tt.wantMsg != "" && res.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", res.Message, tt.wantMsg)
			}
		})
	}
}

func TestImportTable_NoTableOrSchema(t *testing.T) {
	res := ImportTable("1,a\n", nil, TableImportOptions{})
	if res.Message != MsgNoTable || res.OK() {
		t.Errorf("nil table: %+v", res)
	}

	res = ImportTable("1,a\n", &table.Table{Name: "Bare"}, TableImportOptions{})
	if res.Message != MsgUnparseable || !errors.Is(res.Err, ErrSchema) {
		t.Errorf("no schema: %+v", res)
	}
}

func TestImportTable_ReplaceStagesEveryLine(t *testing.T) {
	s := hpSchema()
	old := named(s, 1, "Knight", 100)
	tbl := newTable(s, 0, old)

	res := ImportTable("1,Knight,100\n", tbl, TableImportOptions{Replace: true, AppendOnly: true})
	if res.Added != 1 {
		t.Fatalf("Added = %d, want 1", res.Added)
	}
	insert := res.Batch.Ops[len(res.Batch.Ops)-1].(*edit.RowInsert)
	if !insert.Replace || !insert.AppendOnly {
		t.Errorf("flags not carried: %+v", insert)
	}

	mustApply(t, res)
	if tbl.Len() != 1 || tbl.Rows()[0] == old {
		t.Error("row 1 should have been replaced")
	}
}

// ============================================================================
// Single-field import
// ============================================================================

func TestImportField_DuplicateIDs(t *testing.T) {
	s := hpSchema()
	a := named(s, 5, "A", 0)
	b := named(s, 5, "B", 0)
	tbl := newTable(s, 0, a, b)

	res := ImportField("5,X\n5,Y\n", tbl, NameField, FieldImportOptions{})
	if res.Message != "2 rows affected and 0 rows added" {
		t.Errorf("Message = %q", res.Message)
	}
	mustApply(t, res)
	if !a.HasName("X") || !b.HasName("Y") {
		t.Errorf("names = %v", snapshot(tbl))
	}
}

func TestImportField_DuplicateIDsSpillIntoNewRows(t *testing.T) {
	s := hpSchema()
	a := named(s, 5, "A", 1)
	tbl := newTable(s, 0, a)

	res := ImportField("ID,HP\n5,10\n5,20\n5,30\n", tbl, "HP", FieldImportOptions{})
	if res.Message != "3 rows affected and 2 rows added" {
		t.Fatalf("Message = %q", res.Message)
	}
	mustApply(t, res)

	want := []string{"5|A|10", "5||20", "5||30"}
	if diff := cmp.Diff(want, snapshot(tbl)); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestImportField_NameShortCircuit(t *testing.T) {
	s := hpSchema()
	tbl := newTable(s, 0, named(s, 5, "Hero", 0))

	res := ImportField("5,Hero\n", tbl, NameField, FieldImportOptions{})
	if res.Affected != 0 || res.Added != 0 {
		t.Errorf("Message = %q, want nothing staged", res.Message)
	}
}

func TestImportField_NameMatchesByNameFirst(t *testing.T) {
	s := hpSchema()
	hero := named(s, 5, "Hero", 0)
	other := named(s, 6, "Other", 0)
	tbl := newTable(s, 0, hero, other)

	// "Hero" exists under id 5, so the line binds there and nothing changes,
	// even though it is listed under id 6.
	res := ImportField("6,Hero\n", tbl, NameField, FieldImportOptions{})
	if res.Affected != 0 {
		t.Errorf("Message = %q", res.Message)
	}
}

func TestImportField_NewRows(t *testing.T) {
	s := hpSchema()
	tbl := newTable(s, 0)

	res := ImportField("7,Archer\n8,Archer\n", tbl, NameField, FieldImportOptions{})
	// The second line finds the staged "Archer" by name.
	if res.Message != "0 rows affected and 1 rows added" {
		t.Errorf("Message = %q", res.Message)
	}

	res = ImportField("7,Archer\n", tbl, NameField, FieldImportOptions{IgnoreMissingRows: true})
	if res.Message != "0 rows affected and 0 rows added" {
		t.Errorf("ignore missing: Message = %q", res.Message)
	}

	res = ImportField("7,3\n", tbl, "HP", FieldImportOptions{})
	if res.Message != "1 rows affected and 1 rows added" {
		t.Errorf("HP: Message = %q", res.Message)
	}
	mustApply(t, res)
	if r := tbl.RowByID(7); r == nil || !r.HasName("") {
		t.Errorf("new row for a value field should have an empty name")
	}
}

func TestImportField_VanillaGate(t *testing.T) {
	s := hpSchema()
	vanilla := newTable(s, 0, named(s, 1, "Knight", 0), named(s, 2, "Mage", 0))
	diverged := named(s, 1, "My Knight", 0)
	untouched := named(s, 2, "Mage", 0)
	tbl := newTable(s, 0, diverged, untouched)

	opts := FieldImportOptions{OnlyAffectVanillaNames: true, Reference: vanilla}
	res := ImportField("1,Chevalier\n2,Sorcier\n", tbl, NameField, opts)
	if res.Message != "1 rows affected and 0 rows added" {
		t.Fatalf("Message = %q", res.Message)
	}
	mustApply(t, res)
	if !diverged.HasName("My Knight") {
		t.Error("diverged name was overwritten")
	}
	if !untouched.HasName("Sorcier") {
		t.Error("vanilla name was not overwritten")
	}

	// Without a reference table nothing qualifies.
	res = ImportField("2,Mage\n", tbl, NameField, FieldImportOptions{OnlyAffectVanillaNames: true})
	if res.Affected != 0 {
		t.Errorf("no reference: Message = %q", res.Message)
	}
}

func TestImportField_VanillaGateIgnoresStagedRows(t *testing.T) {
	s := hpSchema()
	vanilla := newTable(s, 0)
	tbl := newTable(s, 0)

	// New rows start with the imported name, so nothing is renamed, and the
	// baseline lookup never sees them.
	opts := FieldImportOptions{OnlyAffectVanillaNames: true, Reference: vanilla}
	res := ImportField("9,A\n9,B\n", tbl, NameField, opts)
	if res.Message != "0 rows affected and 2 rows added" {
		t.Errorf("Message = %q", res.Message)
	}
}

func TestImportField_OnlyEmptyNames(t *testing.T) {
	s := hpSchema()
	named1 := named(s, 1, "Knight", 0)
	empty := named(s, 2, "", 0)
	unset := table.NewRow(s, 3, nil)
	tbl := newTable(s, 0, named1, empty, unset)

	res := ImportField("1,A\n2,B\n3,C\n", tbl, NameField, FieldImportOptions{OnlyAffectEmptyNames: true})
	if res.Message != "2 rows affected and 0 rows added" {
		t.Fatalf("Message = %q", res.Message)
	}
	mustApply(t, res)
	if !named1.HasName("Knight") || !empty.HasName("B") || !unset.HasName("C") {
		t.Errorf("names = %v", snapshot(tbl))
	}
}

func TestImportField_SkipInvalidLines(t *testing.T) {
	s := hpSchema()
	tbl := newTable(s, 0, named(s, 1, "", 0))

	text := "1,Knight\n2\n"
	if res := ImportField(text, tbl, NameField, FieldImportOptions{}); res.Message != MsgWrongColumns {
		t.Errorf("without skip: Message = %q", res.Message)
	}
	res := ImportField(text, tbl, NameField, FieldImportOptions{SkipInvalidLines: true, IgnoreMissingRows: true})
	if res.Message != "1 rows affected and 0 rows added" {
		t.Errorf("with skip: Message = %q", res.Message)
	}
}

func TestImportField_HeaderSelectsColumn(t *testing.T) {
	s := npcSchema()
	knight := named(s, 1, "Knight", 1)
	tbl := newTable(s, 100, knight)

	res := ImportField("ID;Name;HP;\n1;Knight;44\n", tbl, "HP", FieldImportOptions{Separator: ';'})
	if res.Message != "1 rows affected and 0 rows added" {
		t.Fatalf("Message = %q", res.Message)
	}
	mustApply(t, res)
	if knight.Get(s.Field("HP")) != int32(44) {
		t.Error("HP not imported from the header column")
	}
}

func TestImportField_Failures(t *testing.T) {
	s := npcSchema()

	tests := []struct {
		name     string
		text     string
		field    string
		wantKind ErrorKind
		wantMsg  string
	}{
		{
			name:     "field missing from header",
			text:     "ID,Name,HP,\n1,a,2\n",
			field:    "Pad",
			wantKind: ErrHeader,
			wantMsg:  "CSV header does not contain field 'Pad'. Available fields: ID, Name, HP",
		},
		{
			name:     "line shorter than header column",
			text:     "ID,Name,HP\n1,a\n",
			field:    "HP",
			wantKind: ErrShape,
			wantMsg:  "CSV line has insufficient columns. Expected at least 3 columns but got 2",
		},
		{
			name:     "headerless line too wide",
			text:     "1,a,b\n",
			field:    NameField,
			wantKind: ErrShape,
			wantMsg:  MsgWrongColumns,
		},
		{
			name:     "unknown field",
			text:     "1,5\n",
			field:    "Mana",
			wantKind: ErrField,
			wantMsg:  "Could not locate field Mana",
		},
		{
			name:     "bad value",
			text:     "1,many\n",
			field:    "HP",
			wantKind: ErrCoercion,
			wantMsg:  "Could not assign many to field HP",
		},
		{
			name:     "bad byte array",
			text:     "1,[9]\n",
			field:    "Pad",
			wantKind: ErrCoercion,
			wantMsg:  "Could not assign [9] to field Pad",
		},
		{
			name:     "bad id collapses to generic",
			text:     "one,5\n",
			field:    "HP",
			wantKind: ErrSchema,
			wantMsg:  MsgUnparseable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := newTable(s, 100, named(s, 1, "a", 0))
			res := ImportField(tt.text, tbl, tt.field, FieldImportOptions{})

			if res.OK() {
				t.Fatal("expected no batch")
			}
			if !errors.Is(res.Err, tt.wantKind) {
				t.Errorf("Err = %v, want kind %v", res.Err, tt.wantKind)
			}
			if res.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", res.Message, tt.wantMsg)
			}
		})
	}
}

func TestImportField_IgnoredLinesDoNotNeedTheField(t *testing.T) {
	s := hpSchema()
	tbl := newTable(s, 0)

	res := ImportField("1,5\n", tbl, "Mana", FieldImportOptions{IgnoreMissingRows: true})
	if !res.OK() {
		t.Errorf("Message = %q, want success", res.Message)
	}
}

func TestImportField_NoTable(t *testing.T) {
	res := ImportField("1,a\n", nil, NameField, FieldImportOptions{})
	if res.Message != MsgNoTable || !errors.Is(res.Err, ErrSelection) {
		t.Errorf("Result = %+v", res)
	}
}

// ============================================================================
// Row lookup
// ============================================================================

func TestFindRowByID(t *testing.T) {
	s := hpSchema()
	a, b := named(s, 5, "A", 0), named(s, 5, "B", 0)
	staged := named(s, 5, "C", 0)
	tbl := newTable(s, 0, a, named(s, 6, "D", 0), b)

	tests := []struct {
		occurrence int
		want       *table.Row
	}{
		{1, a},
		{2, b},
		{3, staged},
		{4, nil},
	}
	for _, tt := range tests {
		if got := FindRowByID(tbl, []*table.Row{staged}, 5, tt.occurrence); got != tt.want {
			t.Errorf("occurrence %d: got %v, want %v", tt.occurrence, got, tt.want)
		}
	}
	if FindRowByID(nil, nil, 5, 1) != nil {
		t.Error("nil table should find nothing")
	}
}

func TestFindRowByName(t *testing.T) {
	s := hpSchema()
	a := named(s, 1, "A", 0)
	staged := named(s, 2, "B", 0)
	tbl := newTable(s, 0, table.NewRow(s, 3, nil), a)

	if FindRowByName(tbl, []*table.Row{staged}, "A") != a {
		t.Error("existing row not found by name")
	}
	if FindRowByName(tbl, []*table.Row{staged}, "B") != staged {
		t.Error("staged row not found by name")
	}
	if FindRowByName(tbl, nil, "null") != nil {
		t.Error("unset names must not match")
	}
}
