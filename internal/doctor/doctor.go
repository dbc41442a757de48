// Package doctor runs readiness diagnostics for config, audio, speech, and the diary proxy.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rbright/ringbell/internal/audio"
	"github.com/rbright/ringbell/internal/config"
	"github.com/rbright/ringbell/internal/diary"
	"github.com/rbright/ringbell/internal/server"
	"github.com/rbright/ringbell/internal/workout"
)

const probeTimeout = 2 * time.Second

// Check is one doctor assertion result. A failing check marked Warn is
// reported but does not fail the report.
type Check struct {
	Name    string
	Pass    bool
	Warn    bool
	Message string
}

// Report is the full doctor output.
type Report struct {
	Checks []Check
}

// OK returns true when no blocking check failed.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass && !check.Warn {
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
		switch {
		case !check.Pass && check.Warn:
			status = "WARN"
		case !check.Pass:
			status = "FAIL"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", status, check.Name, check.Message)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Probes are the live checks that reach outside the process.
type Probes struct {
	SelectSink  func(ctx context.Context, preferred string) (audio.Selection, error)
	DiaryHealth func(ctx context.Context, serverURL string) (diary.Health, error)
	GRPCHealth  func(ctx context.Context, addr string) (healthpb.HealthCheckResponse_ServingStatus, error)
}

// DefaultProbes talks to PulseAudio and the configured proxy.
func DefaultProbes() Probes {
	return Probes{
		SelectSink: audio.SelectSink,
		DiaryHealth: func(ctx context.Context, serverURL string) (diary.Health, error) {
			client, err := diary.NewClient(serverURL, probeTimeout)
			if err != nil {
				return diary.Health{}, err
			}
			return client.Health(ctx)
		},
		GRPCHealth: func(ctx context.Context, addr string) (healthpb.HealthCheckResponse_ServingStatus, error) {
			return server.ProbeHealth(ctx, addr, server.HealthService, probeTimeout)
		},
	}
}

// Run executes every check for a loaded config.
func Run(ctx context.Context, loaded config.Loaded, probes Probes) Report {
	cfg := loaded.Config
	checks := []Check{checkConfig(loaded), checkWorkouts(cfg)}

	if cfg.Sound.Enable {
		if probes.SelectSink != nil {
			checks = append(checks, checkSink(ctx, cfg.Sound.Sink, probes.SelectSink))
		}
		if strings.TrimSpace(cfg.Sound.File) != "" {
			checks = append(checks, checkFile("sound.file", cfg.Sound.File), checkBinary("pw-play", "plays sound.file"))
		}
	}

	if cfg.Speech.Enable {
		checks = append(checks, checkSpeech(cfg)...)
	}

	checks = append(checks,
		checkKey("sentiment.api_key", cfg.Sentiment.APIKey, config.EnvHuggingFaceKey, loaded.FromEnv),
		checkKey("feedback.api_key", cfg.Feedback.APIKey, config.EnvOpenAIKey, loaded.FromEnv),
	)

	if probes.DiaryHealth != nil {
		checks = append(checks, checkDiaryServer(ctx, cfg.Diary.ServerURL, probes.DiaryHealth))
	}
	if probes.GRPCHealth != nil && strings.TrimSpace(cfg.Server.GRPCAddr) != "" {
		checks = append(checks, checkGRPC(ctx, cfg.Server.GRPCAddr, probes.GRPCHealth))
	}

	return Report{Checks: checks}
}

func checkConfig(loaded config.Loaded) Check {
	if !loaded.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found; using defaults", loaded.Path)}
	}
	message := fmt.Sprintf("loaded %q", loaded.Path)
	if n := len(loaded.Warnings); n > 0 {
		message += fmt.Sprintf(" (%d warnings)", n)
	}
	return Check{Name: "config", Pass: true, Message: message}
}

func checkWorkouts(cfg config.Config) Check {
	path, err := cfg.WorkoutsPath()
	if err != nil {
		return Check{Name: "workouts", Pass: false, Message: err.Error()}
	}
	workouts, err := workout.NewLibrary(path).List()
	if err != nil {
		return Check{Name: "workouts", Pass: false, Message: err.Error()}
	}
	if len(workouts) == 0 {
		return Check{Name: "workouts", Pass: false, Warn: true, Message: fmt.Sprintf("no workouts in %q; import some with `ringbell workouts import`", path)}
	}
	return Check{Name: "workouts", Pass: true, Message: fmt.Sprintf("%d workouts in %q", len(workouts), path)}
}

func checkSink(ctx context.Context, preferred string, selectSink func(context.Context, string) (audio.Selection, error)) Check {
	selection, err := selectSink(ctx, preferred)
	if err != nil {
		return Check{Name: "sound.sink", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Sink.ID)
	if selection.Warning != "" {
		message += " (" + selection.Warning + ")"
	}
	return Check{Name: "sound.sink", Pass: true, Message: message}
}

func checkSpeech(cfg config.Config) []Check {
	var checks []Check
	usable := 0
	for _, name := range cfg.Speech.Backends {
		var check Check
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "elevenlabs":
			el := cfg.Speech.ElevenLabs
			check = Check{Name: "speech.elevenlabs", Pass: el.APIKey != "" && el.VoiceID != "", Warn: true, Message: "api key and voice configured"}
			if !check.Pass {
				check.Message = fmt.Sprintf("set %s and %s to enable", config.EnvElevenLabsKey, config.EnvElevenLabsVoiceID)
			}
		case "openai":
			check = checkKey("speech.openai", cfg.Feedback.APIKey, config.EnvOpenAIKey, nil)
		case "local":
			check = checkCommand(cfg.Speech.LocalCommand.Argv, "speech.local")
			check.Warn = true
		default:
			continue
		}
		if check.Pass {
			usable++
		}
		checks = append(checks, check)
	}

	summary := Check{Name: "speech", Pass: usable > 0, Message: fmt.Sprintf("%d of %d backends usable", usable, len(checks))}
	return append([]Check{summary}, checks...)
}

func checkKey(name, value, env string, fromEnv []string) Check {
	if strings.TrimSpace(value) == "" {
		return Check{Name: name, Pass: false, Warn: true, Message: fmt.Sprintf("not set; export %s or set it in config", env)}
	}
	if slices.Contains(fromEnv, env) {
		return Check{Name: name, Pass: true, Message: "configured from $" + env}
	}
	return Check{Name: name, Pass: true, Message: "configured"}
}

func checkFile(name, path string) Check {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = home + path[1:]
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	if info.IsDir() {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("%q is a directory", path)}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("found %q", path)}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	check := checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
	check.Name = name
	return check
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

func checkDiaryServer(ctx context.Context, serverURL string, probe func(context.Context, string) (diary.Health, error)) Check {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	health, err := probe(ctx, serverURL)
	if err != nil {
		return Check{Name: "diary.server", Pass: false, Warn: true, Message: fmt.Sprintf("%v; start it with `ringbell serve`", err)}
	}
	if !strings.EqualFold(health.Status, "ok") {
		return Check{Name: "diary.server", Pass: false, Message: fmt.Sprintf("unexpected status %q from %s", health.Status, serverURL)}
	}
	return Check{Name: "diary.server", Pass: true, Message: fmt.Sprintf("healthy at %s", serverURL)}
}

func checkGRPC(ctx context.Context, addr string, probe func(context.Context, string) (healthpb.HealthCheckResponse_ServingStatus, error)) Check {
	status, err := probe(ctx, addr)
	if err != nil {
		return Check{Name: "diary.grpc", Pass: false, Warn: true, Message: err.Error()}
	}
	if status != healthpb.HealthCheckResponse_SERVING {
		return Check{Name: "diary.grpc", Pass: false, Message: fmt.Sprintf("%s reports %s", addr, status)}
	}
	return Check{Name: "diary.grpc", Pass: true, Message: fmt.Sprintf("serving at %s", addr)}
}
