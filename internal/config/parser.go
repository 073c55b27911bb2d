package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Parse reads configuration content as JSONC: JSON with comments and
// trailing commas permitted. Empty content yields the validated base.
func Parse(content string, base Config) (Config, []Warning, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		validatedWarnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, validatedWarnings, nil
	}

	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, err
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, err
	}

	cfg := base
	payload.applyTo(&cfg)

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

type jsoncConfig struct {
	Bridge   *jsoncBridge   `json:"bridge"`
	Provider *jsoncProvider `json:"provider"`
	Paths    *jsoncPaths    `json:"paths"`
	Speech   *jsoncSpeech   `json:"speech"`
	Debug    *jsoncDebug    `json:"debug"`
}

type jsoncBridge struct {
	URL               *string `json:"url"`
	ReconnectAttempts *int    `json:"reconnect_attempts"`
}

type jsoncProvider struct {
	Name    *string `json:"name"`
	EnvFile *string `json:"env_file"`
}

type jsoncPaths struct {
	Vocabulary  *string `json:"vocabulary"`
	VoiceLog    *string `json:"voice_log"`
	Preferences *string `json:"preferences"`
	ReplayCases *string `json:"replay_cases"`
}

type jsoncSpeech struct {
	Enable *bool `json:"enable"`
}

type jsoncDebug struct {
	EventDump *bool `json:"event_dump"`
}

func (payload jsoncConfig) applyTo(cfg *Config) {
	if payload.Bridge != nil {
		if payload.Bridge.URL != nil {
			cfg.Bridge.URL = strings.TrimSpace(*payload.Bridge.URL)
		}
		if payload.Bridge.ReconnectAttempts != nil {
			cfg.Bridge.ReconnectAttempts = *payload.Bridge.ReconnectAttempts
		}
	}

	if payload.Provider != nil {
		if payload.Provider.Name != nil {
			cfg.Provider.Name = strings.TrimSpace(*payload.Provider.Name)
		}
		if payload.Provider.EnvFile != nil {
			cfg.Provider.EnvFile = strings.TrimSpace(*payload.Provider.EnvFile)
		}
	}

	if payload.Paths != nil {
		if payload.Paths.Vocabulary != nil {
			cfg.Paths.Vocabulary = *payload.Paths.Vocabulary
		}
		if payload.Paths.VoiceLog != nil {
			cfg.Paths.VoiceLog = *payload.Paths.VoiceLog
		}
		if payload.Paths.Preferences != nil {
			cfg.Paths.Preferences = *payload.Paths.Preferences
		}
		if payload.Paths.ReplayCases != nil {
			cfg.Paths.ReplayCases = *payload.Paths.ReplayCases
		}
	}

	if payload.Speech != nil && payload.Speech.Enable != nil {
		cfg.Speech.Enable = *payload.Speech.Enable
	}

	if payload.Debug != nil && payload.Debug.EventDump != nil {
		cfg.Debug.EnableEventDump = *payload.Debug.EventDump
	}
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' || ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}
