// Package intent maps normalized transcripts to structured DAW commands.
package intent

// Type is the command family an intent belongs to.
type Type string

const (
	TypeTransport  Type = "transport"
	TypeEdit       Type = "edit"
	TypeProject    Type = "project"
	TypeNavigation Type = "navigation"
	TypeTrack      Type = "track"
	TypeMixer      Type = "mixer"
)

// Unit qualifies a numeric delta parameter.
type Unit string

const (
	UnitDB      Unit = "db"
	UnitPercent Unit = "percent"
	UnitMS      Unit = "ms"
)

// Intent is one parsed command. Track, Bar, and Delta are nil when the
// matched rule carries no such parameter; Confidence is the fixed constant
// attached to the matching rule, not a calibrated probability.
type Intent struct {
	Type       Type     `json:"type"`
	Action     string   `json:"action"`
	Track      *int     `json:"track,omitempty"`
	Bar        *int     `json:"bar,omitempty"`
	Delta      *float64 `json:"delta,omitempty"`
	Unit       Unit     `json:"unit,omitempty"`
	Confidence float64  `json:"confidence"`
}
