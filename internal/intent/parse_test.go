package intent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTransportStop(t *testing.T) {
	t.Parallel()

	in := Parse("stop")
	require.NotNil(t, in)
	require.Equal(t, TypeTransport, in.Type)
	require.Equal(t, "stop", in.Action)
	require.InDelta(t, 0.95, in.Confidence, 1e-9)
}

func TestParseStopWinsOverPlay(t *testing.T) {
	t.Parallel()

	in := Parse("stop the playback and start over later")
	require.NotNil(t, in)
	require.Equal(t, "stop", in.Action)
}

func TestParseTransportVerbs(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		typ    Type
		action string
	}{
		"play":            {TypeTransport, "play"},
		"resume playback": {TypeTransport, "play"},
		"halt":            {TypeTransport, "stop"},
		"record":          {TypeTransport, "record"},
		"undo that":       {TypeEdit, "undo"},
		"redo":            {TypeEdit, "redo"},
		"save the project": {TypeProject, "save"},
	}
	for transcriptText, want := range cases {
		in := Parse(transcriptText)
		require.NotNil(t, in, "transcript %q", transcriptText)
		require.Equal(t, want.typ, in.Type, "transcript %q", transcriptText)
		require.Equal(t, want.action, in.Action, "transcript %q", transcriptText)
		require.InDelta(t, 0.95, in.Confidence, 1e-9)
	}
}

func TestParseGotoBar(t *testing.T) {
	t.Parallel()

	in := Parse("go to bar 12")
	require.NotNil(t, in)
	require.Equal(t, TypeNavigation, in.Type)
	require.Equal(t, "goto_bar", in.Action)
	require.NotNil(t, in.Bar)
	require.Equal(t, 12, *in.Bar)

	in = Parse("jump to measure four")
	require.NotNil(t, in)
	require.NotNil(t, in.Bar)
	require.Equal(t, 4, *in.Bar)
}

func TestParseMuteWithTrack(t *testing.T) {
	t.Parallel()

	in := Parse("mute track 3")
	require.NotNil(t, in)
	require.Equal(t, TypeTrack, in.Type)
	require.Equal(t, "mute", in.Action)
	require.NotNil(t, in.Track)
	require.Equal(t, 3, *in.Track)
	require.InDelta(t, 0.90, in.Confidence, 1e-9)
}

func TestParseMuteWithoutTrackLowersConfidence(t *testing.T) {
	t.Parallel()

	in := Parse("mute it")
	require.NotNil(t, in)
	require.Equal(t, "mute", in.Action)
	require.Nil(t, in.Track)
	require.InDelta(t, 0.70, in.Confidence, 1e-9)
}

func TestParseUnmuteNotShadowedByMute(t *testing.T) {
	t.Parallel()

	in := Parse("unmute track 2")
	require.NotNil(t, in)
	require.Equal(t, "unmute", in.Action)
}

func TestParseSolo(t *testing.T) {
	t.Parallel()

	in := Parse("solo track five")
	require.NotNil(t, in)
	require.Equal(t, "solo", in.Action)
	require.NotNil(t, in.Track)
	require.Equal(t, 5, *in.Track)
}

func TestParseMixerDelta(t *testing.T) {
	t.Parallel()

	in := Parse("raise track 2 by 3 db")
	require.NotNil(t, in)
	require.Equal(t, TypeMixer, in.Type)
	require.Equal(t, "volume_delta", in.Action)
	require.NotNil(t, in.Track)
	require.Equal(t, 2, *in.Track)
	require.NotNil(t, in.Delta)
	require.InDelta(t, 3.0, *in.Delta, 1e-9)
	require.Equal(t, UnitDB, in.Unit)
	require.InDelta(t, 0.85, in.Confidence, 1e-9)
}

func TestParseMixerDeltaLowerIsNegative(t *testing.T) {
	t.Parallel()

	in := Parse("lower track 4 by 1.5 db")
	require.NotNil(t, in)
	require.NotNil(t, in.Delta)
	require.InDelta(t, -1.5, *in.Delta, 1e-9)
}

func TestParseMixerDeltaRequiresTrack(t *testing.T) {
	t.Parallel()

	require.Nil(t, Parse("raise it by 3 db"))
}

func TestParseNoMatch(t *testing.T) {
	t.Parallel()

	require.Nil(t, Parse("banana"))
	require.Nil(t, Parse(""))
}

func TestParseDeterministic(t *testing.T) {
	t.Parallel()

	first := Parse("mute track 3")
	second := Parse("mute track 3")
	require.Equal(t, first, second)
}
