// Package hover turns the bursty control-touch stream from the DAW into at
// most one settled announcement per stable hover. It suppresses menu noise,
// rapid scrolling, swipes across tracks, and in-flight fader drags.
package hover

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rhea-voice/rhea/internal/daw"
	"github.com/rhea-voice/rhea/internal/sched"
)

// State is the hover lifecycle position for the current candidate control.
type State string

const (
	StateIdle      State = "idle"
	StateCandidate State = "valid_candidate"
	StateAnnounced State = "announced"
)

// Timing and threshold constants. These are behavioral contracts shared
// with the overlay UI; changing one changes what the user hears.
const (
	settleTime        = 200 * time.Millisecond
	invalidThreshold  = 3
	rapidWindow       = 1000 * time.Millisecond
	rapidEnterCount   = 4
	rapidExitCount    = 2
	swipeWindow       = 150 * time.Millisecond
	swipeEnterCount   = 2
	swipeClearAfter   = 300 * time.Millisecond
	valueSettleTime   = 800 * time.Millisecond
	valueGracePeriod  = 300 * time.Millisecond
	valueDeltaEpsilon = 0.0001
)

// Announcement is one settled hover or value readout ready for the voice
// gate. View travels along so terminology mapping can happen downstream.
type Announcement struct {
	ControlKey string
	Text       string
	View       daw.ViewContext
}

var valueControls = map[string]struct{}{
	"volume_fader":  {},
	"pan_control":   {},
	"width_control": {},
}

// Disambiguator consumes raw control-touch events and emits settled
// announcements. All timer callbacks revalidate against monotonic
// generation stamps so a stale timer can never announce an old target.
type Disambiguator struct {
	clock    sched.Clock
	logger   *slog.Logger
	announce func(Announcement)

	mu sync.Mutex

	state        State
	candidateKey string
	candidate    daw.ControlTouchEvent
	settleTimer  sched.Timer
	settleGen    uint64
	announcedKey string

	invalidCount int
	inMenu       bool

	changeTimes     []time.Time
	changeTrack     int
	lastControlType string

	trackChangeTimes []time.Time
	lastTrack        int
	haveLastTrack    bool
	swiping          bool
	swipeTimer       sched.Timer
	swipeGen         uint64

	suppressNormal bool
	valueTimer     sched.Timer
	graceTimer     sched.Timer
	valueGen       uint64
	pendingValue   daw.ControlTouchEvent
	lastValues     map[string]float64
}

// New constructs a disambiguator delivering announcements to announce.
func New(clock sched.Clock, logger *slog.Logger, announce func(Announcement)) *Disambiguator {
	if clock == nil {
		clock = sched.Real()
	}
	return &Disambiguator{
		clock:      clock,
		logger:     logger,
		announce:   announce,
		state:      StateIdle,
		lastValues: map[string]float64{},
	}
}

// State returns the current hover lifecycle state.
func (d *Disambiguator) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// InMenu reports whether menu suppression is active.
func (d *Disambiguator) InMenu() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inMenu
}

// Swiping reports whether swipe suppression is active.
func (d *Disambiguator) Swiping() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.swiping
}

// Handle processes one raw control-touch event. Later events for a
// different control always cancel pending timers for the previous one.
func (d *Disambiguator) Handle(event daw.ControlTouchEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()

	// Menu detection A: invalid signals. Transport controls are exempt.
	if (!event.Success || event.ControlType == "unknown") && !event.IsTransport() {
		d.invalidCount++
		if d.invalidCount >= invalidThreshold && !d.inMenu {
			d.inMenu = true
			d.logger.Debug("entering menu suppression", "reason", "invalid signals")
		}
		d.cancelSettle()
		return
	}
	d.invalidCount = 0

	d.observeControlChange(event, now)
	d.observeTrackChange(event, now)

	// Menu exit: a valid signal whose rolling change count dropped below
	// the exit threshold ends suppression.
	if d.inMenu && d.rollingChangeCount(now) < rapidExitCount {
		d.inMenu = false
		d.logger.Debug("leaving menu suppression")
	}

	if d.handleValueChange(event) {
		return
	}

	d.trackHoverCandidate(event)
}

// observeControlChange feeds menu detection B: control-type churn while the
// track number stays constant means a menu is open under the cursor.
func (d *Disambiguator) observeControlChange(event daw.ControlTouchEvent, now time.Time) {
	if d.lastControlType != "" && event.ControlType != d.lastControlType && event.TrackNumber == d.changeTrack {
		d.changeTimes = append(d.changeTimes, now)
	}
	if event.TrackNumber != d.changeTrack {
		d.changeTimes = nil
	}
	d.changeTrack = event.TrackNumber
	d.lastControlType = event.ControlType

	if d.rollingChangeCount(now) >= rapidEnterCount && !d.inMenu {
		d.inMenu = true
		d.logger.Debug("entering menu suppression", "reason", "rapid control churn")
	}
}

func (d *Disambiguator) rollingChangeCount(now time.Time) int {
	cutoff := now.Add(-rapidWindow)
	kept := d.changeTimes[:0]
	for _, ts := range d.changeTimes {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	d.changeTimes = kept
	return len(kept)
}

// observeTrackChange feeds swipe detection: distinct track numbers in quick
// succession mean the pointer is sweeping, not hovering.
func (d *Disambiguator) observeTrackChange(event daw.ControlTouchEvent, now time.Time) {
	if d.haveLastTrack && event.TrackNumber != d.lastTrack {
		cutoff := now.Add(-swipeWindow)
		kept := d.trackChangeTimes[:0]
		for _, ts := range d.trackChangeTimes {
			if ts.After(cutoff) {
				kept = append(kept, ts)
			}
		}
		d.trackChangeTimes = append(kept, now)

		if len(d.trackChangeTimes) >= swipeEnterCount {
			d.swiping = true
			d.cancelSettle()
		}
		if d.swiping {
			d.armSwipeClear()
		}
	}
	d.lastTrack = event.TrackNumber
	d.haveLastTrack = true
}

// armSwipeClear restarts the swipe auto-clear countdown.
func (d *Disambiguator) armSwipeClear() {
	if d.swipeTimer != nil {
		d.swipeTimer.Stop()
	}
	d.swipeGen++
	gen := d.swipeGen
	d.swipeTimer = d.clock.AfterFunc(swipeClearAfter, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if gen != d.swipeGen {
			return
		}
		d.swiping = false
		d.trackChangeTimes = nil
	})
}

// handleValueChange runs the fader/knob debounce path. It reports true when
// the event was consumed as an in-flight value move.
func (d *Disambiguator) handleValueChange(event daw.ControlTouchEvent) bool {
	if _, ok := valueControls[event.ControlType]; !ok {
		return false
	}

	key := controlKey(event)
	last, seen := d.lastValues[key]
	d.lastValues[key] = event.Value
	if !seen {
		return false
	}
	delta := event.Value - last
	if delta < valueDeltaEpsilon && delta > -valueDeltaEpsilon {
		return false
	}

	// A moving value suppresses every other announcement path and restarts
	// the movement-stopped countdown; only the final value is spoken.
	d.suppressNormal = true
	d.pendingValue = event
	d.cancelSettle()
	if d.valueTimer != nil {
		d.valueTimer.Stop()
	}
	if d.graceTimer != nil {
		d.graceTimer.Stop()
	}

	d.valueGen++
	gen := d.valueGen
	d.valueTimer = d.clock.AfterFunc(valueSettleTime, func() {
		d.fireValueSettle(gen)
	})
	return true
}

// fireValueSettle announces the final value a drag stopped at. Value
// announcements win over menu suppression when both hold.
func (d *Disambiguator) fireValueSettle(gen uint64) {
	d.mu.Lock()
	if gen != d.valueGen {
		d.mu.Unlock()
		return
	}
	event := d.pendingValue
	announcement := Announcement{
		ControlKey: controlKey(event),
		Text:       formatAnnouncement(event),
		View:       event.Context,
	}

	d.graceTimer = d.clock.AfterFunc(valueGracePeriod, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if gen != d.valueGen {
			return
		}
		d.suppressNormal = false
	})
	d.mu.Unlock()

	d.announce(announcement)
}

// trackHoverCandidate runs the settle path for plain hover events.
func (d *Disambiguator) trackHoverCandidate(event daw.ControlTouchEvent) {
	key := controlKey(event)

	// Last-writer-wins: touching a different control abandons an in-flight
	// value countdown for the previous one.
	if d.suppressNormal && d.valueTimer != nil && key != controlKey(d.pendingValue) {
		d.valueTimer.Stop()
		d.valueTimer = nil
		d.valueGen++
		d.suppressNormal = false
	}

	if key == d.candidateKey {
		// Identical control: the pending settle timer keeps running, and a
		// control already announced stays silent while held.
		d.candidate = event
		return
	}

	d.cancelSettle()
	d.candidateKey = key
	d.candidate = event
	d.state = StateCandidate
	if d.announcedKey != key {
		d.announcedKey = ""
	}

	d.settleGen++
	gen := d.settleGen
	d.settleTimer = d.clock.AfterFunc(settleTime, func() {
		d.fireHoverSettle(gen)
	})
}

// fireHoverSettle announces a hover that stayed on one control through the
// settle window, once per settled control.
func (d *Disambiguator) fireHoverSettle(gen uint64) {
	d.mu.Lock()
	if gen != d.settleGen || d.inMenu || d.swiping || d.suppressNormal {
		d.mu.Unlock()
		return
	}
	if d.candidateKey == d.announcedKey {
		d.mu.Unlock()
		return
	}
	event := d.candidate
	d.announcedKey = d.candidateKey
	d.state = StateAnnounced
	announcement := Announcement{
		ControlKey: d.candidateKey,
		Text:       formatAnnouncement(event),
		View:       event.Context,
	}
	d.mu.Unlock()

	d.announce(announcement)
}

// cancelSettle stops a pending settle timer and invalidates its stamp.
func (d *Disambiguator) cancelSettle() {
	if d.settleTimer != nil {
		d.settleTimer.Stop()
		d.settleTimer = nil
	}
	d.settleGen++
	if d.state == StateCandidate {
		d.state = StateIdle
	}
	d.candidateKey = ""
}

func controlKey(event daw.ControlTouchEvent) string {
	return fmt.Sprintf("%d/%s", event.TrackNumber, event.ControlType)
}

var controlLabels = map[string]string{
	"volume_fader":  "Volume",
	"pan_control":   "Pan",
	"width_control": "Width",
	"mute_button":   "Mute",
	"solo_button":   "Solo",
	"record_arm":    "Record Arm",
}

// formatAnnouncement renders the spoken text for one settled control.
func formatAnnouncement(event daw.ControlTouchEvent) string {
	label, ok := controlLabels[event.ControlType]
	if !ok {
		label = titleCase(event.ControlType)
	}

	text := fmt.Sprintf("Track %d %s", event.TrackNumber, label)
	if event.ValueFormatted != "" {
		text += ": " + event.ValueFormatted
	}
	return text
}

func titleCase(controlType string) string {
	words := strings.Split(controlType, "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
