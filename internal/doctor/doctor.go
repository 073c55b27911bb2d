// Package doctor runs runtime readiness diagnostics for config, the DAW
// bridge, provider credentials, and the state directory.
package doctor

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/rhea-voice/rhea/internal/config"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{}

	checks = append(checks, Check{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", cfg.Path),
	})

	checks = append(checks, checkBridge(cfg.Config))
	checks = append(checks, checkProvider(cfg.Config))
	checks = append(checks, checkStateDir(cfg.Config))

	return Report{Checks: checks}
}

// checkBridge probes the bridge host over plain HTTP. A refused connection
// means the DAW extension is not running; any HTTP answer at all means the
// port is alive.
func checkBridge(cfg config.Config) Check {
	parsed, err := url.Parse(cfg.Bridge.URL)
	if err != nil {
		return Check{Name: "bridge", Pass: false, Message: fmt.Sprintf("invalid bridge.url: %v", err)}
	}

	probe := "http://" + parsed.Host + "/"
	client := http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(probe)
	if err != nil {
		return Check{Name: "bridge", Pass: false, Message: fmt.Sprintf("bridge unreachable at %s: %v", parsed.Host, err)}
	}
	resp.Body.Close()
	return Check{Name: "bridge", Pass: true, Message: fmt.Sprintf("bridge answering at %s", parsed.Host)}
}

// checkProvider verifies completer credentials are present without making
// a billable call.
func checkProvider(cfg config.Config) Check {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider.Name))
	if name == "local" {
		return Check{Name: "provider", Pass: true, Message: "local heuristic provider needs no credentials"}
	}

	if cfg.Provider.EnvFile != "" {
		godotenv.Load(cfg.Provider.EnvFile)
	}
	if os.Getenv("OPENAI_API_KEY") == "" {
		return Check{Name: "provider", Pass: false, Message: "OPENAI_API_KEY is not set"}
	}
	return Check{Name: "provider", Pass: true, Message: "openai credentials present"}
}

// checkStateDir verifies the persisted-state directory is writable.
func checkStateDir(cfg config.Config) Check {
	dir := filepath.Dir(cfg.Paths.VoiceLog)
	if dir == "" || dir == "." {
		var err error
		dir, err = config.StateDir()
		if err != nil {
			return Check{Name: "state", Pass: false, Message: err.Error()}
		}
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Check{Name: "state", Pass: false, Message: fmt.Sprintf("cannot create %s: %v", dir, err)}
	}

	probe := filepath.Join(dir, ".doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return Check{Name: "state", Pass: false, Message: fmt.Sprintf("cannot write in %s: %v", dir, err)}
	}
	os.Remove(probe)
	return Check{Name: "state", Pass: true, Message: fmt.Sprintf("state dir %s is writable", dir)}
}
