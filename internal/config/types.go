// Package config resolves, parses, validates, and defaults rhea configuration.
package config

// Config is the fully materialized runtime configuration used by rhea.
type Config struct {
	Bridge   BridgeConfig
	Provider ProviderConfig
	Paths    PathsConfig
	Speech   SpeechConfig
	Debug    DebugConfig
}

// BridgeConfig controls the DAW bridge connection.
type BridgeConfig struct {
	URL               string
	ReconnectAttempts int
}

// ProviderConfig selects the completer backend and its credential source.
type ProviderConfig struct {
	Name    string
	EnvFile string
}

// PathsConfig locates the persisted state files. Empty values resolve
// under the state directory at load time.
type PathsConfig struct {
	Vocabulary  string
	VoiceLog    string
	Preferences string
	ReplayCases string
}

// SpeechConfig controls spoken output.
type SpeechConfig struct {
	Enable bool
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableEventDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
