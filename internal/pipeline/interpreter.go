// Package pipeline coordinates one voice turn: transcript in, DAW work and
// a spoken reply out.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rhea-voice/rhea/internal/action"
	"github.com/rhea-voice/rhea/internal/bus"
	"github.com/rhea-voice/rhea/internal/daw"
	"github.com/rhea-voice/rhea/internal/fsm"
	"github.com/rhea-voice/rhea/internal/intent"
	"github.com/rhea-voice/rhea/internal/learner"
	"github.com/rhea-voice/rhea/internal/provider"
	"github.com/rhea-voice/rhea/internal/speak"
	"github.com/rhea-voice/rhea/internal/vocab"
	"github.com/rhea-voice/rhea/internal/voicelog"
)

// missMessage is the single consistent reply when no intent can be derived
// by any path. Every other failure mode produces its own distinct message.
const missMessage = "I didn't understand that command. Try rephrasing it."

// Response is the outcome of one handled transcript.
type Response struct {
	Text               string
	Intent             *intent.Intent
	Execution          *action.PlanResult
	NeedsClarification bool
}

// Interpreter routes a final transcript through the rule parser, the
// vocabulary, and the completer fallback chain, in that fixed order. It
// owns the turn lifecycle state and the pending clarification, if any.
type Interpreter struct {
	logger   *slog.Logger
	vocab    *vocab.Store
	resolver *vocab.Resolver
	executor *action.Executor
	fallback provider.ChatCompleter
	log      *voicelog.Logger
	events   *bus.Bus
	gate     *speak.Gate
	learner  *learner.Learner

	mu      sync.Mutex
	state   fsm.State
	sessCtx vocab.Context
	pending *vocab.ActionPlan
}

// Deps are the collaborators an Interpreter is wired with. The fallback
// completer, gate, learner, log, and events may each be nil; the
// interpreter degrades to the paths that remain.
type Deps struct {
	Logger   *slog.Logger
	Vocab    *vocab.Store
	Resolver *vocab.Resolver
	Executor *action.Executor
	Fallback provider.ChatCompleter
	Log      *voicelog.Logger
	Events   *bus.Bus
	Gate     *speak.Gate
	Learner  *learner.Learner
}

// New constructs an interpreter in the idle state.
func New(deps Deps) *Interpreter {
	return &Interpreter{
		logger:   deps.Logger,
		vocab:    deps.Vocab,
		resolver: deps.Resolver,
		executor: deps.Executor,
		fallback: deps.Fallback,
		log:      deps.Log,
		events:   deps.Events,
		gate:     deps.Gate,
		learner:  deps.Learner,
		state:    fsm.StateIdle,
	}
}

// State returns the current turn lifecycle state.
func (p *Interpreter) State() fsm.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SetContext replaces the live session snapshot symbolic targets resolve
// against.
func (p *Interpreter) SetContext(ctx vocab.Context) {
	p.mu.Lock()
	p.sessCtx = ctx
	p.mu.Unlock()
	p.publish(bus.KindContextUpdate, ctx)
}

// NoteFocus records the control the user is hovering, as settled by the
// disambiguator, without disturbing the rest of the session snapshot.
func (p *Interpreter) NoteFocus(controlKey string, view string) {
	p.mu.Lock()
	p.sessCtx.FocusedElement = controlKey
	p.sessCtx.View = view
	snapshot := p.sessCtx
	p.mu.Unlock()
	p.publish(bus.KindContextUpdate, snapshot)
}

// Context returns the current session snapshot.
func (p *Interpreter) Context() vocab.Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessCtx
}

// HandleTranscript runs one full turn. It never returns an error to the
// caller: every failure path is converted into a speakable Response.
func (p *Interpreter) HandleTranscript(ctx context.Context, raw string) Response {
	p.transition(fsm.EventTranscript)
	p.publish(bus.KindInterimTranscript, map[string]string{"transcript": raw})
	p.append(voicelog.Entry{Kind: voicelog.KindTranscript, Transcript: raw})

	if pending := p.takePending(); pending != nil {
		return p.resolveClarification(ctx, pending, raw)
	}

	if in := intent.Parse(raw); in != nil {
		return p.executeIntent(ctx, in)
	}

	if p.vocab != nil {
		if item, ok := p.vocab.Find(raw); ok {
			return p.handleVocabMatch(ctx, item)
		}
	}

	if p.fallback != nil {
		in, err := provider.ClassifyIntent(ctx, p.fallback, raw)
		if err != nil {
			p.logger.Warn("completer fallback failed", "error", err.Error())
			p.append(voicelog.Entry{Kind: voicelog.KindError, Error: err.Error(), Detail: raw})
		}
		if in != nil {
			return p.executeIntent(ctx, in)
		}
	}

	p.transition(fsm.EventMiss)
	return p.reply(ctx, Response{Text: missMessage})
}

// handleVocabMatch resolves a matched vocabulary item into a plan, a
// clarification turn, or a plain vibe reply.
func (p *Interpreter) handleVocabMatch(ctx context.Context, item vocab.Item) Response {
	plan := p.resolver.BuildPlan(item, p.Context())
	if plan == nil {
		p.transition(fsm.EventMiss)
		return p.reply(ctx, Response{Text: p.resolver.VibeReply(item)})
	}

	if plan.NeedsClarification {
		p.mu.Lock()
		p.pending = plan
		p.mu.Unlock()
		p.transition(fsm.EventClarify)
		return p.reply(ctx, Response{Text: plan.ClarificationQuestion, NeedsClarification: true})
	}

	return p.executePlan(ctx, plan, nil)
}

// resolveClarification applies the user's answer to the parked plan. An
// unparseable answer abandons the plan and falls back to the miss message.
func (p *Interpreter) resolveClarification(ctx context.Context, plan *vocab.ActionPlan, raw string) Response {
	unit := intent.UnitDB
	for _, planned := range plan.Actions {
		if planned.Spec.Payload.Unit != "" {
			unit = planned.Spec.Payload.Unit
			break
		}
	}

	amount, parsedUnit, ok := vocab.ParseClarification(raw, unit)
	if !ok {
		p.transition(fsm.EventMiss)
		return p.reply(ctx, Response{Text: missMessage})
	}

	for i := range plan.Actions {
		planned := &plan.Actions[i]
		if planned.NeedsClarification {
			value := amount
			planned.Spec.Payload.Amount = &value
			planned.Spec.Payload.Unit = parsedUnit
			planned.NeedsClarification = false
			planned.ClarificationQuestion = ""
		}
	}
	plan.NeedsClarification = false
	plan.ClarificationQuestion = ""

	return p.executePlan(ctx, plan, nil)
}

// executeIntent converts a parsed intent into a single-action plan and
// runs it.
func (p *Interpreter) executeIntent(ctx context.Context, in *intent.Intent) Response {
	p.publish(bus.KindIntent, in)
	p.append(voicelog.Entry{Kind: voicelog.KindIntent, Intent: in, Action: in.Action})

	plan := p.planFromIntent(in)
	return p.executePlan(ctx, plan, in)
}

// executePlan runs the plan and narrates the outcome.
func (p *Interpreter) executePlan(ctx context.Context, plan *vocab.ActionPlan, in *intent.Intent) Response {
	p.transition(fsm.EventResolved)

	// Subscribers showing a cancel affordance get notified before the plan
	// runs; execution itself is not delayed.
	p.publish(bus.KindCancelWindowStart, plan)

	result := p.executor.Execute(ctx, plan)

	success := result.Success
	actionName := plan.Item.Phrase
	if in != nil {
		actionName = in.Action
	}
	p.append(voicelog.Entry{
		Kind:      voicelog.KindExecution,
		Intent:    in,
		Action:    actionName,
		Success:   &success,
		LatencyMS: result.Elapsed.Milliseconds(),
		Error:     firstError(result),
	})
	p.publish(bus.KindExecutionComplete, result)

	if p.learner != nil {
		p.learner.Observe(actionName, p.Context().View)
		for _, planned := range plan.Actions {
			if planned.Spec.Type == vocab.ActionFXChain && planned.Spec.Payload.Chain != "" {
				p.learner.ObservePlugin(planned.Spec.Payload.Chain)
			}
		}
	}
	p.transition(fsm.EventExecuted)

	text := result.Confirmation
	if !result.Success {
		if msg := firstError(result); msg != "" {
			text = msg
		}
	}
	return p.reply(ctx, Response{Text: text, Intent: in, Execution: &result})
}

// planFromIntent maps each intent family onto the DAW command surface.
// Track toggles and mixer deltas ride the track-command path; everything
// else is a named action.
func (p *Interpreter) planFromIntent(in *intent.Intent) *vocab.ActionPlan {
	track := p.resolveTrack(in)

	var spec vocab.ActionSpec
	switch in.Type {
	case intent.TypeTrack:
		amount := 1.0
		if in.Action == "unmute" || in.Action == "unsolo" {
			amount = 0.0
		}
		param := "mute"
		if in.Action == "solo" || in.Action == "unsolo" {
			param = "solo"
		}
		spec = vocab.ActionSpec{
			Target:  vocab.TargetSelectedTrack,
			Type:    vocab.ActionParameterDelta,
			Payload: vocab.Payload{Param: param, Amount: &amount},
		}
	case intent.TypeMixer:
		spec = vocab.ActionSpec{
			Target:  vocab.TargetSelectedTrack,
			Type:    vocab.ActionParameterDelta,
			Payload: vocab.Payload{Param: "volume", Amount: in.Delta, Unit: in.Unit},
		}
	case intent.TypeNavigation:
		id := in.Action
		if in.Bar != nil {
			id = fmt.Sprintf("%s:%d", in.Action, *in.Bar)
		}
		spec = vocab.ActionSpec{
			Target:  vocab.TargetTransport,
			Type:    vocab.ActionReaperAction,
			Payload: vocab.Payload{ActionID: id},
		}
	default:
		spec = vocab.ActionSpec{
			Target:  vocab.TargetTransport,
			Type:    vocab.ActionReaperAction,
			Payload: vocab.Payload{ActionID: in.Action},
		}
	}

	return &vocab.ActionPlan{
		Item:         vocab.Item{Phrase: in.Action, IntentType: vocab.IntentAction},
		Actions:      []vocab.PlannedAction{{Spec: spec, ResolvedTrack: track}},
		Confirmation: confirmationForIntent(in, track),
	}
}

// resolveTrack applies the same precedence as symbolic target resolution:
// the spoken track number, then the selection, then the active track,
// then track 1.
func (p *Interpreter) resolveTrack(in *intent.Intent) int {
	if in.Track != nil {
		return *in.Track
	}
	sess := p.Context()
	if sess.SelectedTrack > 0 {
		return sess.SelectedTrack
	}
	if sess.ActiveTrack > 0 {
		return sess.ActiveTrack
	}
	return 1
}

// confirmationForIntent is the short spoken acknowledgment per command.
func confirmationForIntent(in *intent.Intent, track int) string {
	switch in.Action {
	case "play":
		return "Playing."
	case "stop":
		return "Stopped."
	case "record":
		return "Recording."
	case "undo":
		return "Undone."
	case "redo":
		return "Redone."
	case "save":
		return "Saved."
	case "goto_bar":
		if in.Bar != nil {
			return fmt.Sprintf("Bar %d.", *in.Bar)
		}
		return "Moved."
	case "mute":
		return fmt.Sprintf("Track %d muted.", track)
	case "unmute":
		return fmt.Sprintf("Track %d unmuted.", track)
	case "solo":
		return fmt.Sprintf("Track %d soloed.", track)
	case "unsolo":
		return fmt.Sprintf("Track %d unsoloed.", track)
	case "adjust_volume":
		if in.Delta != nil {
			return fmt.Sprintf("Track %d volume %+.1f dB.", track, *in.Delta)
		}
		return fmt.Sprintf("Track %d adjusted.", track)
	default:
		return "Done."
	}
}

// reply speaks the response text through the gate, with mixer terminology
// mapping applied, and returns it unchanged for display.
func (p *Interpreter) reply(ctx context.Context, res Response) Response {
	if p.gate != nil && res.Text != "" {
		view := daw.ViewContext(p.Context().View)
		p.gate.Say(ctx, speak.MapTerminology(res.Text, view))
	}
	return res
}

// takePending claims the parked clarification plan, if any.
func (p *Interpreter) takePending() *vocab.ActionPlan {
	p.mu.Lock()
	defer p.mu.Unlock()
	plan := p.pending
	p.pending = nil
	return plan
}

// transition applies one lifecycle event. An invalid transition is logged
// and the state forced so a stray event can never wedge the pipeline.
func (p *Interpreter) transition(event fsm.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	next, err := fsm.Transition(p.state, event)
	if err != nil {
		p.logger.Warn("forced lifecycle transition", "from", string(p.state), "event", string(event))
		switch event {
		case fsm.EventTranscript:
			next = fsm.StateInterpreting
		case fsm.EventMiss, fsm.EventExecuted:
			next = fsm.StateIdle
		}
	}
	if next != p.state {
		p.state = next
		p.publishLocked(bus.KindStateChange, map[string]string{"state": string(next)})
		if p.log != nil {
			if err := p.log.Append(voicelog.Entry{Kind: voicelog.KindState, Detail: string(next)}); err != nil {
				p.logger.Warn("voice log append failed", "error", err.Error())
			}
		}
	}
}

func firstError(result action.PlanResult) string {
	for _, r := range result.Results {
		if !r.Success && r.Error != "" {
			return r.Error
		}
	}
	return ""
}

// append writes a voicelog entry, tolerating an unwired log.
func (p *Interpreter) append(entry voicelog.Entry) {
	if p.log == nil {
		return
	}
	if err := p.log.Append(entry); err != nil {
		p.logger.Warn("voice log append failed", "error", err.Error())
	}
	p.publish(bus.KindLog, entry)
}

// publish emits a bus event, tolerating an unwired bus.
func (p *Interpreter) publish(kind bus.Kind, payload any) {
	if p.events == nil {
		return
	}
	if err := p.events.Publish(kind, payload); err != nil {
		p.logger.Warn("event publish failed", "kind", string(kind), "error", err.Error())
	}
}

// publishLocked is publish for callers already holding p.mu.
func (p *Interpreter) publishLocked(kind bus.Kind, payload any) {
	if p.events == nil {
		return
	}
	if err := p.events.Publish(kind, payload); err != nil {
		p.logger.Warn("event publish failed", "kind", string(kind), "error", err.Error())
	}
}
