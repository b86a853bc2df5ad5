package fcs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAmplificationCanonicalizesLog0(t *testing.T) {
	amp, err := parseAmplification("4,0")
	require.NoError(t, err)
	require.Equal(t, 4.0, amp.Decades)
	require.Equal(t, 1.0, amp.Log0)
	require.False(t, amp.Linear())
}

func TestParseAmplificationLinear(t *testing.T) {
	amp, err := parseAmplification("0,0")
	require.NoError(t, err)
	require.True(t, amp.Linear())
}

func TestParseAmplificationInvalid(t *testing.T) {
	_, err := parseAmplification("not-a-pair")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrParse)
}

func TestRoleForName(t *testing.T) {
	nullSet := map[string]bool{"null1": true}

	require.Equal(t, RoleTime, roleForName("Time", nullSet))
	require.Equal(t, RoleScatter, roleForName("FSC-A", nullSet))
	require.Equal(t, RoleScatter, roleForName("ssc-h", nullSet))
	require.Equal(t, RoleNull, roleForName("Null1", nullSet))
	require.Equal(t, RoleFluorescence, roleForName("FL1-A", nullSet))
}

func TestNextPowerOfTwo(t *testing.T) {
	require.Equal(t, uint64(1024), nextPowerOfTwo(1024))
	require.Equal(t, uint64(1024), nextPowerOfTwo(1023))
	require.Equal(t, uint64(1), nextPowerOfTwo(0))
}

func TestParseChannelsBuildsSpecPerChannel(t *testing.T) {
	text := NewOrderedText()
	text.Set("p1n", "FSC-A")
	text.Set("p1b", "32")
	text.Set("p1e", "0,0")
	text.Set("p1r", "262144")
	text.Set("p2n", "Time")
	text.Set("p2b", "32")
	text.Set("p2e", "0,0")
	text.Set("p2g", "2.5")
	text.Set("p2r", "100")

	channels, err := parseChannels(text, 2, nil)
	require.NoError(t, err)
	require.Len(t, channels, 2)

	require.Equal(t, "FSC-A", channels[0].PnN)
	require.Equal(t, 1.0, channels[0].PnG) // default gain
	require.Equal(t, RoleScatter, channels[0].Role)

	require.Equal(t, RoleTime, channels[1].Role)
	require.Equal(t, 1.0, channels[1].PnG) // time channel's gain is forced to 1.0
}

func TestAsArrayLogScaleDecode(t *testing.T) {
	channels := []ChannelSpec{
		{Number: 1, PnN: "FL1-A", PnE: Amplification{Decades: 4, Log0: 1}, PnG: 1, PnR: 1024, Role: RoleFluorescence},
	}
	events := []float64{256}

	m, err := asArray(events, channels, NewOrderedText(), true)
	require.NoError(t, err)
	require.InDelta(t, 10.0, m.At(0, 0), 1e-9)
}

func TestAsArrayInvalidTimestepIsFatal(t *testing.T) {
	channels := []ChannelSpec{
		{Number: 1, PnN: "Time", PnG: 1, PnR: 100, Role: RoleTime},
	}
	text := NewOrderedText()
	text.Set("timestep", "not-a-number")

	_, err := asArray([]float64{1}, channels, text, true)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrParse)
}

func TestAsArrayBlankTimestepDefaultsToOne(t *testing.T) {
	channels := []ChannelSpec{
		{Number: 1, PnN: "Time", PnG: 1, PnR: 100, Role: RoleTime},
	}
	text := NewOrderedText()
	text.Set("timestep", "   ")

	m, err := asArray([]float64{42}, channels, text, true)
	require.NoError(t, err)
	require.Equal(t, 42.0, m.At(0, 0))
}

func TestAsArrayGainDivision(t *testing.T) {
	channels := []ChannelSpec{
		{Number: 1, PnN: "FL1-A", PnG: 2, PnR: 1024, Role: RoleFluorescence},
	}

	m, err := asArray([]float64{10}, channels, NewOrderedText(), true)
	require.NoError(t, err)
	require.Equal(t, 5.0, m.At(0, 0))
}

func TestMatrixRowAndAt(t *testing.T) {
	m := Matrix{Rows: 2, Cols: 3, Data: []float64{1, 2, 3, 4, 5, 6}}
	require.Equal(t, []float64{4, 5, 6}, m.Row(1))
	require.Equal(t, 5.0, m.At(1, 1))
}
