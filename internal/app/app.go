// Package app wires configuration, services, and commands into the rhea
// process entrypoint.
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/rhea-voice/rhea/internal/action"
	"github.com/rhea-voice/rhea/internal/bus"
	"github.com/rhea-voice/rhea/internal/cli"
	"github.com/rhea-voice/rhea/internal/config"
	"github.com/rhea-voice/rhea/internal/daw"
	"github.com/rhea-voice/rhea/internal/doctor"
	"github.com/rhea-voice/rhea/internal/hover"
	"github.com/rhea-voice/rhea/internal/ipc"
	"github.com/rhea-voice/rhea/internal/learner"
	"github.com/rhea-voice/rhea/internal/logging"
	"github.com/rhea-voice/rhea/internal/pipeline"
	"github.com/rhea-voice/rhea/internal/provider"
	"github.com/rhea-voice/rhea/internal/replay"
	"github.com/rhea-voice/rhea/internal/sched"
	"github.com/rhea-voice/rhea/internal/speak"
	"github.com/rhea-voice/rhea/internal/version"
	"github.com/rhea-voice/rhea/internal/vocab"
	"github.com/rhea-voice/rhea/internal/voicelog"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr, Stdin: os.Stdin}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("rhea"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("rhea"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandNewSession:
		return r.forwardOrFail(ctx, ipc.CommandNewSession)
	case cli.CommandReplay:
		return r.commandReplay(ctx, cfgLoaded.Config, logger)
	case cli.CommandExportLog:
		return r.commandExportLog(parsed, cfgLoaded.Config)
	case cli.CommandRun:
		return r.commandRun(ctx, cfgLoaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandStatus)
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.State == "" {
			resp.State = "idle"
		}
		fmt.Fprintf(r.Stdout, "state=%s session=%s mode=%s\n", resp.State, resp.Session, resp.Mode)
		return 0
	}

	fmt.Fprintln(r.Stdout, "idle")
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no active rhea session\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func (r Runner) commandReplay(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	runner := replay.NewRunner(cfg.Paths.ReplayCases, logger)
	if len(runner.Cases()) == 0 {
		fmt.Fprintf(r.Stderr, "no replay cases at %s\n", cfg.Paths.ReplayCases)
		return 1
	}

	if strings.EqualFold(cfg.Provider.Name, "openai") {
		if stt, err := provider.NewOpenAI(cfg.Provider.EnvFile); err == nil {
			runner.SetTranscriber(stt)
		} else {
			logger.Warn("transcriber unavailable, audio fixtures score transcript only", "error", err.Error())
		}
	}

	summary := runner.RunAll(ctx)
	for _, result := range runner.Results() {
		status := "PASS"
		if !result.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(r.Stdout, "[%s] %q (wer=%.1f%% latency=%.2fms)\n",
			status, result.Transcript, result.WER, result.LatencyMS)
	}
	fmt.Fprintf(r.Stdout, "%d/%d passed (%.1f%%), intent accuracy %.1f%%, avg wer %.1f%%, avg latency %.2fms\n",
		summary.Passed, summary.Total, summary.PassRate,
		summary.IntentAccuracy, summary.AverageWER, summary.AverageLatencyMS)

	if summary.Passed < summary.Total {
		return 1
	}
	return 0
}

func (r Runner) commandExportLog(parsed cli.Parsed, cfg config.Config) int {
	vlog, err := voicelog.Open(cfg.Paths.VoiceLog, time.Now)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: open voice log: %v\n", err)
		return 1
	}
	defer func() { _ = vlog.Close() }()

	var data []byte
	if parsed.Format == "csv" {
		data, err = vlog.ExportCSV()
	} else {
		data, err = vlog.ExportJSON()
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: export voice log: %v\n", err)
		return 1
	}

	if parsed.Output == "" {
		_, _ = r.Stdout.Write(data)
		return 0
	}
	if err := os.WriteFile(parsed.Output, data, 0o600); err != nil {
		fmt.Fprintf(r.Stderr, "error: write %s: %v\n", parsed.Output, err)
		return 1
	}
	fmt.Fprintf(r.Stdout, "wrote %s\n", parsed.Output)
	return 0
}

// commandRun starts the daemon: the IPC control socket, the DAW bridge
// listener, and the transcript loop reading one utterance per stdin line.
func (r Runner) commandRun(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "error: rhea is already running")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	events := bus.New()
	defer func() { _ = events.Close() }()

	vlog, err := voicelog.Open(cfg.Paths.VoiceLog, time.Now)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: open voice log: %v\n", err)
		return 1
	}
	defer func() { _ = vlog.Close() }()

	store, err := vocab.NewStore(cfg.Paths.Vocabulary, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: open vocabulary: %v\n", err)
		return 1
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	clock := sched.Real()

	var gate *speak.Gate
	if cfg.Speech.Enable {
		gate = speak.NewGate(provider.LogSynthesizer{Logger: logger}, clock, logger)
	}

	bridge, err := daw.DialBridge(cfg.Bridge.URL, uint(cfg.Bridge.ReconnectAttempts), logger)
	var actions daw.Actions
	if err != nil {
		logger.Warn("daw bridge unavailable, commands will report the disconnect", "error", err.Error())
	} else {
		actions = bridge
		defer func() { _ = bridge.Close() }()
	}

	learn := learner.New(cfg.Paths.Preferences, clock, rng, logger, func(tip string) {
		if gate != nil {
			gate.Say(runCtx, tip)
		}
	})
	defer learn.Stop()

	interp := pipeline.New(pipeline.Deps{
		Logger:   logger,
		Vocab:    store,
		Resolver: vocab.NewResolver(rng),
		Executor: action.NewExecutor(actions, clock, logger),
		Fallback: buildCompleter(cfg, logger),
		Log:      vlog,
		Events:   events,
		Gate:     gate,
		Learner:  learn,
	})

	disamb := hover.New(clock, logger, func(a hover.Announcement) {
		if gate != nil {
			gate.Say(runCtx, speak.MapTerminology(a.Text, a.View))
		}
		interp.NoteFocus(a.ControlKey, string(a.View))
		_ = vlog.Append(voicelog.Entry{Kind: voicelog.KindContext, Detail: a.Text})
	})

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(runCtx, listener, ipc.HandlerFunc(func(_ context.Context, req ipc.Request) ipc.Response {
			switch req.Command {
			case ipc.CommandStatus:
				return ipc.Response{
					OK:      true,
					State:   string(interp.State()),
					Session: vlog.SessionID(),
					Mode:    string(learn.State().Mode),
				}
			case ipc.CommandNewSession:
				id := vlog.NewSession()
				return ipc.Response{OK: true, Session: id, Message: "started session " + id}
			case ipc.CommandStop:
				stop()
				return ipc.Response{OK: true, Message: "stopping"}
			default:
				return ipc.Response{OK: false, Error: fmt.Sprintf("unknown command %q", req.Command)}
			}
		}))
	}()

	if bridge != nil {
		go func() {
			if err := bridge.Listen(runCtx, disamb.Handle); err != nil && runCtx.Err() == nil {
				logger.Error("bridge listener stopped", "error", err.Error())
			}
		}()
	}

	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				learn.CheckStuck()
			}
		}
	}()

	fmt.Fprintln(r.Stdout, "rhea is listening (one transcript per line, Ctrl-D to exit)")
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-runCtx.Done():
			if err := <-serverErrCh; err != nil {
				fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", err)
				return 1
			}
			return 0
		case line, ok := <-lines:
			if !ok {
				stop()
				continue
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			res := interp.HandleTranscript(runCtx, line)
			fmt.Fprintln(r.Stdout, res.Text)
		}
	}
}

// buildCompleter assembles the completer fallback chain per configuration.
func buildCompleter(cfg config.Config, logger *slog.Logger) provider.ChatCompleter {
	if strings.EqualFold(cfg.Provider.Name, "local") {
		return provider.LocalCompleter{}
	}

	primary, err := provider.NewOpenAI(cfg.Provider.EnvFile)
	if err != nil {
		logger.Warn("openai completer unavailable, using local heuristics", "error", err.Error())
		return provider.LocalCompleter{}
	}
	return provider.NewRetrying(primary, provider.LocalCompleter{}, logger)
}

func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, 220*time.Millisecond)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) || isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
