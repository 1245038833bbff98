package plant

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoStepPlant = `
name: cell
machines:
  - id: M1
    provided_capabilities: [drill]
workstations:
  - id: WS1
    machine: M1
    input_buffers:
      - sequence: FIFO
        sizes:
          - {pattern: "blank*", max: 10, step: 1}
    output_buffers:
      - {}
  - id: WS2
inventories:
  - id: RAW
    kind: SOURCE
    initial: {blank: 20}
products:
  - id: bracket
    operations:
      - id: drill
        components: {blank: 1}
        capabilities: [drill]
        processing: {value: 2, unit: min}
      - id: deburr
        components: {bracket.drill: 1}
        processing: {value: 30, unit: s}
    precedence:
      - {from: drill, to: deburr}
orders:
  - id: O1
    products: {bracket: 2}
    release: 0
    deadline: 3600
distances:
  - {from: RAW, to: WS1, meters: 14}
`

func writeTempYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plant.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPlant_ValidYAML_Parses(t *testing.T) {
	p, err := LoadPlant(writeTempYAML(t, twoStepPlant))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	require.NoError(t, p.Validate())

	assert.Equal(t, "cell", p.Name)
	require.Len(t, p.Workstations, 2)
	assert.Equal(t, SequenceFIFO, p.Workstations[0].InputBuffers[0].Discipline())
	assert.Equal(t, SequenceFree, p.Workstations[0].OutputBuffers[0].Discipline())
	assert.Equal(t, InventorySource, p.Inventories[0].KindOrDefault())
	op, ok := p.Operation("bracket", "drill")
	require.True(t, ok)
	assert.Equal(t, int64(120), op.Processing.MustSeconds())
}

func TestLoadPlant_UnknownField_Rejected(t *testing.T) {
	_, err := LoadPlant(writeTempYAML(t, "name: x\nworkstaions: []\n"))
	if err == nil {
		t.Fatal("expected error for misspelled key")
	}
	assert.Contains(t, err.Error(), "parsing plant definition")
}

func TestLoadPlant_MissingFile(t *testing.T) {
	_, err := LoadPlant(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "reading plant definition"))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Plant)
		wantErr string
	}{
		{"struct constraint", func(p *Plant) { p.Workstations[0].ID = "" }, "failed validation: required"},
		{"duplicate location", func(p *Plant) { p.Inventories[0].ID = "WS1" }, `duplicate location id "WS1"`},
		{"unknown machine", func(p *Plant) { p.Workstations[0].Machine = "M9" }, `unknown machine "M9"`},
		{"unknown sequence", func(p *Plant) { p.Workstations[0].InputBuffers[0].Sequence = "RANDOM" }, `unknown sequence "RANDOM"`},
		{"bad identical buffer", func(p *Plant) { p.Workstations[0].OutputBuffers[0].Identical = "WS2 : IN : 1" }, "does not exist"},
		{"cycle", func(p *Plant) {
			p.Products[0].Precedence = append(p.Products[0].Precedence, Edge{From: "deburr", To: "drill"})
		}, "cycle"},
		{"unknown op in edge", func(p *Plant) { p.Products[0].Precedence[0].To = "paint" }, "unknown operation"},
		{"unknown product in order", func(p *Plant) { p.Orders[0].Products = map[string]int{"gizmo": 1} }, `unknown product "gizmo"`},
		{"deadline before release", func(p *Plant) { p.Orders[0].Release = 5000 }, "precedes release"},
		{"bad unit", func(p *Plant) { p.Products[0].Operations[0].Processing.Unit = "fortnight" }, `unknown processing unit "fortnight"`},
		{"reserved id", func(p *Plant) { p.Workstations[1].ID = Shopfloor }, "reserved"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePlant([]byte(twoStepPlant))
			require.NoError(t, err)
			tt.mutate(p)
			err = p.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSeconds(t *testing.T) {
	tests := []struct {
		value float64
		unit  string
		want  int64
	}{
		{5, "", 0},
		{1.2, "s", 2},
		{0.1, "min", 6},
		{1.5, "h", 5400},
		{1, "d", 86400},
	}
	for _, tt := range tests {
		got, err := Seconds(tt.value, tt.unit)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%v %s", tt.value, tt.unit)
	}
	_, err := Seconds(1, "week")
	assert.Error(t, err)
}

func TestParseBufferRef(t *testing.T) {
	ref, ok, err := ParseBufferRef("WS2 : OUT : 3")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, BufferRef{Workstation: "WS2", Output: true, Index: 3}, ref)
	assert.Equal(t, "WS2 : OUT : 3", ref.String())

	_, ok, err = ParseBufferRef("")
	assert.NoError(t, err)
	assert.False(t, ok)

	for _, bad := range []string{"WS2 : SIDE : 1", "WS2 : IN : 0", "WS2 : IN"} {
		_, _, err := ParseBufferRef(bad)
		assert.Error(t, err, bad)
	}
}

func TestDistanceTable_SymmetricLookup(t *testing.T) {
	p, err := ParsePlant([]byte(twoStepPlant))
	require.NoError(t, err)
	d := p.DistanceTable()
	assert.Equal(t, 14.0, d.Lookup("WS1", "RAW"))
	assert.Equal(t, 14.0, d.Lookup("RAW", "WS1"))
	assert.Equal(t, 0.0, d.Lookup("", "WS1"))
	assert.Equal(t, 0.0, d.Lookup("WS2", "RAW"), "unknown pairs count as zero")
	assert.False(t, d.Known("WS2", "RAW"))
}
