package dispatch

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ops() []Candidate {
	return []Candidate{
		{ID: "op-c", Arrival: 0, ProcessingTime: 30, Deadline: 900, RemainingOps: 1},
		{ID: "op-a", Arrival: 2, ProcessingTime: 90, Deadline: 300, RemainingOps: 4},
		{ID: "op-b", Arrival: 1, ProcessingTime: 30, Deadline: 300, RemainingOps: 2},
	}
}

func TestWorkstationSequencingHeuristics(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{FIFO, "op-c"},
		{LPT, "op-a"},
		{SPT, "op-b"}, // tie between op-b and op-c; op-b sorts first
		{EDF, "op-a"}, // tie between op-a and op-b; op-a sorts first
		{LOR, "op-c"},
		{MOR, "op-a"},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			c, err := New(WorkstationSequencing, tt.kind, nil, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Choose(ops()).ID)
		})
	}
}

func TestRoutingHeuristics(t *testing.T) {
	stations := []Candidate{
		{ID: "WS2", QueuedOps: 1, WIPOps: 3, QueuedWork: 10},
		{ID: "WS1", QueuedOps: 2, WIPOps: 0, QueuedWork: 600},
		{ID: "WS3", QueuedOps: 1, WIPOps: 1, QueuedWork: 900},
	}
	for kind, want := range map[Kind]string{LQO: "WS2", LQPO: "WS1", LQT: "WS2"} {
		c, err := New(WorkstationRouting, kind, nil, "")
		require.NoError(t, err)
		assert.Equal(t, want, c.Choose(stations).ID, kind.String())
	}

	transports := []Candidate{
		{ID: "AGV2", Distance: 5, QueuedOps: 0},
		{ID: "AGV1", Distance: 12, QueuedOps: 0},
	}
	ct, err := New(TransportRouting, CT, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "AGV2", ct.Choose(transports).ID)
	lqto, err := New(TransportRouting, LQTO, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "AGV1", lqto.Choose(transports).ID, "tie goes to the first sorted id")
}

func TestRandom_ReproducibleForSeed(t *testing.T) {
	pick := func(seed int64) []string {
		c, err := New(TransportSequencing, Random, rand.New(rand.NewSource(seed)), "")
		require.NoError(t, err)
		var out []string
		for i := 0; i < 20; i++ {
			// order of the input must not matter
			cands := ops()
			if i%2 == 1 {
				cands[0], cands[2] = cands[2], cands[0]
			}
			out = append(out, c.Choose(cands).ID)
		}
		return out
	}
	assert.Equal(t, pick(3), pick(3))
}

func TestNew_RejectsForeignHeuristic(t *testing.T) {
	_, err := New(TransportRouting, LPT, nil, "")
	assert.Error(t, err)
	_, err = New(WorkstationSequencing, Random, nil, "")
	assert.Error(t, err, "RANDOM without rng")
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(TransportSequencing, "cd")
	require.NoError(t, err)
	assert.Equal(t, CD, k)

	_, err = ParseKind(TransportSequencing, "LQT")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "valid: CD, FIFO, RANDOM, EXPR")

	assert.True(t, IsValid(WorkstationRouting, ""))
	assert.False(t, IsValid(WorkstationRouting, "EDF"))
}

func TestRuleChooser(t *testing.T) {
	c, err := New(WorkstationSequencing, Expr, nil, "ProcessingTime / (RemainingOps + 1)")
	require.NoError(t, err)
	assert.Equal(t, "op-a", c.Choose(ops()).ID) // 18 vs 15 vs 10

	neg, err := NewRuleChooser("-Deadline")
	require.NoError(t, err)
	assert.Equal(t, "op-a", neg.Choose(ops()).ID, "negative scores still compare")

	_, err = NewRuleChooser("Deadline +")
	assert.Error(t, err)
	_, err = NewRuleChooser("")
	assert.Error(t, err)
}
