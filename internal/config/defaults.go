package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Bridge: BridgeConfig{
			URL:               "ws://127.0.0.1:9280/events",
			ReconnectAttempts: 5,
		},
		Provider: ProviderConfig{
			Name: "openai",
		},
		Speech: SpeechConfig{Enable: true},
		Debug:  DebugConfig{},
	}
}
