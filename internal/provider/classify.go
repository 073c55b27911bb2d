package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rhea-voice/rhea/internal/intent"
)

const classifySystemPrompt = `
You classify voice commands for a digital audio workstation.
Convert the user's utterance into a minimal structured JSON intent.

RULES:
1. Do NOT converse or explain.
2. Output ONLY JSON. No markdown.
3. Never invent track numbers or amounts that were not spoken.

OUTPUT FORMAT:
{
  "type": "transport|edit|project|navigation|track|mixer",
  "action": "<string>",
  "track": <int or null>,
  "bar": <int or null>,
  "delta": <float or null>,
  "unit": "db|percent|ms" or null,
  "confidence": <float 0..1>
}

ACTIONS (canonical): play, stop, record, undo, redo, save, goto_bar,
mute, unmute, solo, unsolo, adjust_volume.

If the utterance is not a command, output {"type":"","action":""}.
`

// ClassifyIntent asks a completer to map a transcript to an intent.
// An empty action in the response means the model could not classify.
func ClassifyIntent(ctx context.Context, completer ChatCompleter, transcript string) (*intent.Intent, error) {
	content, err := completer.Complete(ctx, classifySystemPrompt, transcript)
	if err != nil {
		return nil, err
	}

	var out intent.Intent
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &out); err != nil {
		return nil, fmt.Errorf("decode classified intent: %w (raw: %s)", err, content)
	}
	if out.Action == "" {
		return nil, nil
	}
	return &out, nil
}
