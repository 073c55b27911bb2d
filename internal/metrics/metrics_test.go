package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rhea-voice/rhea/internal/intent"
)

func TestWERIdenticalIsZero(t *testing.T) {
	t.Parallel()

	require.Zero(t, WER("play the track", "play the track"))
}

func TestWEROneDeletionOverThreeWords(t *testing.T) {
	t.Parallel()

	require.InDelta(t, 100.0/3.0, WER("play track one", "play track"), 1e-9)
}

func TestWEREmptyReference(t *testing.T) {
	t.Parallel()

	require.Zero(t, WER("", "anything at all"))
}

func TestWERTotalMismatch(t *testing.T) {
	t.Parallel()

	require.InDelta(t, 100.0, WER("mute track three", "solo bus seven"), 1e-9)
}

func TestWERCaseInsensitive(t *testing.T) {
	t.Parallel()

	require.Zero(t, WER("Play The Track", "play the track"))
}

func TestLevenshteinEmptySides(t *testing.T) {
	t.Parallel()

	require.Equal(t, 3, Levenshtein(nil, []string{"a", "b", "c"}))
	require.Equal(t, 2, Levenshtein([]string{"a", "b"}, nil))
	require.Zero(t, Levenshtein(nil, nil))
}

func TestLevenshteinSubstitution(t *testing.T) {
	t.Parallel()

	require.Equal(t, 1, Levenshtein([]string{"mute", "track", "3"}, []string{"mute", "track", "4"}))
}

func intPtr(n int) *int { return &n }

func TestIntentsMatchStrictTypeAction(t *testing.T) {
	t.Parallel()

	expected := &intent.Intent{Type: intent.TypeTransport, Action: "stop"}
	require.True(t, IntentsMatch(expected, &intent.Intent{Type: intent.TypeTransport, Action: "stop", Confidence: 0.95}))
	require.False(t, IntentsMatch(expected, &intent.Intent{Type: intent.TypeTransport, Action: "play"}))
	require.False(t, IntentsMatch(expected, &intent.Intent{Type: intent.TypeEdit, Action: "stop"}))
}

func TestIntentsMatchTrackDontCare(t *testing.T) {
	t.Parallel()

	expected := &intent.Intent{Type: intent.TypeTrack, Action: "mute"}
	actual := &intent.Intent{Type: intent.TypeTrack, Action: "mute", Track: intPtr(3)}
	require.True(t, IntentsMatch(expected, actual))
}

func TestIntentsMatchTrackExactWhenSet(t *testing.T) {
	t.Parallel()

	expected := &intent.Intent{Type: intent.TypeTrack, Action: "mute", Track: intPtr(3)}
	require.True(t, IntentsMatch(expected, &intent.Intent{Type: intent.TypeTrack, Action: "mute", Track: intPtr(3)}))
	require.False(t, IntentsMatch(expected, &intent.Intent{Type: intent.TypeTrack, Action: "mute", Track: intPtr(4)}))
	require.False(t, IntentsMatch(expected, &intent.Intent{Type: intent.TypeTrack, Action: "mute"}))
}

func TestIntentsMatchNilSides(t *testing.T) {
	t.Parallel()

	require.True(t, IntentsMatch(nil, nil))
	require.False(t, IntentsMatch(&intent.Intent{}, nil))
	require.False(t, IntentsMatch(nil, &intent.Intent{}))
}
