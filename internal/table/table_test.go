package table

import (
	"testing"

	"github.com/JonMunkholm/paramcsv/internal/schema"
)

func testSchema() *schema.Schema {
	return &schema.Schema{
		Name: "NpcParam",
		Fields: []*schema.Field{
			{Name: "hp", Kind: schema.KindS32, Default: "10"},
			{Name: "pad", Kind: schema.KindDummy8, ArrayLength: 2},
		},
	}
}

func ids(t *Table) []int {
	out := make([]int, 0, t.Len())
	for _, r := range t.Rows() {
		out = append(out, r.ID())
	}
	return out
}

func TestNewRow_Defaults(t *testing.T) {
	s := testSchema()
	r := NewRow(s, 7, nil)

	if r.ID() != 7 {
		t.Errorf("ID() = %d, want 7", r.ID())
	}
	if _, ok := r.Name(); ok {
		t.Error("nil name should report unset")
	}
	if got := r.Get(s.Field("hp")); got != int32(10) {
		t.Errorf("hp = %#v, want default 10", got)
	}
	if got, ok := r.Lookup("pad"); !ok || len(got.([]byte)) != 2 {
		t.Errorf("pad = %#v, want two zero bytes", got)
	}
	if _, ok := r.Lookup("missing"); ok {
		t.Error("Lookup(missing) should fail")
	}
}

func TestRow_NameIsCopied(t *testing.T) {
	name := "Knight"
	r := NewRow(testSchema(), 1, &name)
	name = "Mage"

	if got, _ := r.Name(); got != "Knight" {
		t.Errorf("Name() = %q, want Knight", got)
	}
	if !r.HasName("Knight") || r.HasName("Mage") {
		t.Error("HasName mismatch")
	}

	empty := NewNamedRow(testSchema(), 2, "")
	if !empty.HasName("") {
		t.Error("empty name should be set")
	}
}

func TestRow_SetAndClone(t *testing.T) {
	s := testSchema()
	r := NewNamedRow(s, 1, "a")
	pad := s.Field("pad")

	if _, err := r.Set(pad, []byte{1, 2}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	c := r.Clone()
	if _, err := c.Set(pad, []byte{3, 4}); err != nil {
		t.Fatal(err)
	}
	c.SetName(nil)

	if got := r.Get(pad).([]byte); got[0] != 1 {
		t.Errorf("clone mutation leaked: %v", got)
	}
	if !r.HasName("a") {
		t.Error("clone name change leaked")
	}

	other := &schema.Field{Name: "hp", Kind: schema.KindS32}
	if _, err := r.Set(other, int32(1)); err == nil {
		t.Error("Set with a foreign field should fail")
	}
}

func TestTable_DuplicateIDs(t *testing.T) {
	s := testSchema()
	tbl := New("NpcParam", s, 0)
	a := NewNamedRow(s, 5, "A")
	b := NewNamedRow(s, 5, "B")
	tbl.Append(a)
	tbl.Append(b)

	if tbl.RowByID(5) != a {
		t.Error("RowByID should return the first row with the id")
	}
	if tbl.RowByID(6) != nil {
		t.Error("RowByID(6) should be nil")
	}
	if tbl.IndexOf(b) != 1 {
		t.Errorf("IndexOf(b) = %d, want 1", tbl.IndexOf(b))
	}
}

func TestTable_InsertSorted(t *testing.T) {
	s := testSchema()
	tbl := New("NpcParam", s, 0)
	for _, id := range []int{10, 20, 30} {
		tbl.Append(NewRow(s, id, nil))
	}

	tests := []struct {
		id      int
		wantPos int
	}{
		{25, 2},
		{5, 0},
		{40, 5},
		{20, 3},
	}
	for _, tt := range tests {
		if got := tbl.InsertSorted(NewRow(s, tt.id, nil)); got != tt.wantPos {
			t.Errorf("InsertSorted(%d) at %d, want %d", tt.id, got, tt.wantPos)
		}
	}

	want := []int{5, 10, 20, 20, 25, 30, 40}
	got := ids(tbl)
	if len(got) != len(want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ids = %v, want %v", got, want)
		}
	}
}

func TestTable_RemoveAndReplace(t *testing.T) {
	s := testSchema()
	tbl := New("NpcParam", s, 0)
	a, b, c := NewRow(s, 1, nil), NewRow(s, 2, nil), NewRow(s, 3, nil)
	tbl.Append(a)
	tbl.Append(b)

	if old := tbl.Replace(1, c); old != b {
		t.Error("Replace returned wrong row")
	}
	if removed := tbl.RemoveAt(0); removed != a {
		t.Error("RemoveAt returned wrong row")
	}
	if tbl.Len() != 1 || tbl.Rows()[0] != c {
		t.Errorf("rows = %v, want [3]", ids(tbl))
	}
}
