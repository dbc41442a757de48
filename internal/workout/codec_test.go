package workout

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YML")
	require.NoError(t, err)
	require.Equal(t, FormatYAML, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xml")
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFormatFromPath(t *testing.T) {
	require.Equal(t, FormatYAML, FormatFromPath("/tmp/w.yaml"))
	require.Equal(t, FormatYAML, FormatFromPath("/tmp/w.YML"))
	require.Equal(t, FormatJSON, FormatFromPath("/tmp/w.json"))
	require.Equal(t, FormatJSON, FormatFromPath("/tmp/w"))
}

func TestDecodeSingleJSONObject(t *testing.T) {
	workouts, err := Decode(strings.NewReader(`{"name":"Pads","rounds":[{"title":"Combos","durationSeconds":180}]}`), FormatJSON)
	require.NoError(t, err)
	require.Equal(t, []Workout{{Name: "Pads", Rounds: []Round{{Title: "Combos", DurationSeconds: 180}}}}, workouts)
}

func TestDecodeRejectsRecordWithoutRounds(t *testing.T) {
	_, err := Decode(strings.NewReader(`[{"name":"Pads"}]`), FormatJSON)
	require.ErrorIs(t, err, ErrNoRounds)
}

func TestDecodeEmptyInput(t *testing.T) {
	workouts, err := Decode(strings.NewReader("\n"), FormatYAML)
	require.NoError(t, err)
	require.Nil(t, workouts)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode(strings.NewReader("rounds: [\n"), FormatYAML)
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode workouts (yaml)")
}
