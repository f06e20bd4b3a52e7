// Command repl is an interactive inspector for the allocation engine: it
// holds one site.Context and one site.HubRuntimeState in memory, and lets
// an operator tweak inputs and re-run the engine a tick at a time to watch
// how targets, states, and diagnostics change.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"loadjuggler/config"
	"loadjuggler/engine"
	"loadjuggler/phase"
	"loadjuggler/site"
)

// replState is the single mutable snapshot the REPL commands operate on.
type replState struct {
	cfg       config.Site
	smoothing engine.SmoothingConfig
	ctx       site.Context
	runtime   site.HubRuntimeState
	now       time.Time
}

func newReplState() *replState {
	cfg := config.Defaults()
	ld := config.DefaultLoadSettings()

	return &replState{
		cfg: cfg,
		smoothing: engine.SmoothingConfig{
			EMAAlpha: 0.3, DeadBandWidth: 0.3,
			RampUpPerSecond: 0.1, RampDownPerSecond: 0.2,
			GridStaleAfter: cfg.GridStaleAfter, TickInterval: cfg.TickInterval,
		},
		ctx: site.Context{
			Voltage:           cfg.Voltage,
			MainBreakerRating: cfg.MainBreakerRating,
			Consumption:       phase.Of(0, 0, 0),
			Loads: []site.Load{
				{
					ID: "evse-1", Kind: site.KindEVSE, ActivePhasesMask: phase.ABC,
					MinCurrent: ld.MinCurrent, MaxCurrent: ld.MaxCurrent, Priority: 1,
					OperatingMode: site.ModeStandard, ConnectorStatus: site.StatusCharging,
					GraceHoldDuration: ld.GraceHoldDuration, ChargePauseDuration: ld.ChargePauseDuration,
				},
			},
		},
		runtime: site.NewHubRuntimeState(),
		now:     time.Now(),
	}
}

// tick runs the engine once, advancing now by dt, and prints the result.
func (s *replState) tick(dt time.Duration) {
	s.now = s.now.Add(dt)
	result := engine.Run(s.ctx, s.runtime, s.smoothing, s.now)
	s.runtime = result.Runtime

	fmt.Printf("-- tick at +%v --\n", dt)
	fmt.Print(engine.DebugSnapshot(result))
	fmt.Printf("  hub: site_available=%.2f solar_available=%.2f excess_available=%.2f grid_stale=%v\n",
		result.Hub.TotalSiteAvailable, result.Hub.SolarAvailable, result.Hub.ExcessAvailable, result.Hub.GridStale)
	for _, d := range result.Diagnostics {
		fmt.Printf("  diagnostic: %s\n", d)
	}
}

func (s *replState) setConsumption(a, b, c float64) {
	s.ctx.Consumption = phase.Of(a, b, c)
}

func (s *replState) setSolar(watts float64) {
	s.ctx.SolarProductionTotal = watts
}

func (s *replState) setBattery(soc float64) {
	s.ctx.Battery.Present = true
	s.ctx.Battery.SOC = soc
	s.ctx.Battery.SOCMin = s.cfg.BatterySOCMin
	s.ctx.Battery.SOCTarget = s.cfg.BatterySOCTarget
	s.ctx.Battery.SOCHysteresis = s.cfg.BatterySOCHysteresis
	s.ctx.Battery.MaxChargePower = s.cfg.BatteryMaxChargePower
	s.ctx.Battery.MaxDischargePower = s.cfg.BatteryMaxDischargePower
}

func handleCommand(line string, s *replState) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return
	}

	switch parts[0] {
	case "tick":
		dt := s.cfg.TickInterval
		if len(parts) > 1 {
			if secs, err := strconv.Atoi(parts[1]); err == nil {
				dt = time.Duration(secs) * time.Second
			}
		}
		s.tick(dt)

	case "consumption":
		if len(parts) != 4 {
			fmt.Println("usage: consumption <A> <B> <C>")
			return
		}
		a, errA := strconv.ParseFloat(parts[1], 64)
		b, errB := strconv.ParseFloat(parts[2], 64)
		c, errC := strconv.ParseFloat(parts[3], 64)
		if errA != nil || errB != nil || errC != nil {
			fmt.Println("consumption: all three values must be numeric")
			return
		}
		s.setConsumption(a, b, c)

	case "solar":
		if len(parts) != 2 {
			fmt.Println("usage: solar <watts>")
			return
		}
		w, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			fmt.Println("solar: value must be numeric")
			return
		}
		s.setSolar(w)

	case "battery":
		if len(parts) != 2 {
			fmt.Println("usage: battery <soc-percent>")
			return
		}
		soc, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			fmt.Println("battery: value must be numeric")
			return
		}
		s.setBattery(soc)

	case "grid-stale":
		s.ctx.GridStale = !s.ctx.GridStale
		fmt.Printf("grid_stale = %v\n", s.ctx.GridStale)

	case "help":
		fmt.Println("commands:")
		fmt.Println("  tick [seconds]             - run one engine tick, default update_frequency")
		fmt.Println("  consumption <A> <B> <C>    - set per-phase grid consumption, amps")
		fmt.Println("  solar <watts>              - set total solar production")
		fmt.Println("  battery <soc>              - attach/update a battery at the given SOC%")
		fmt.Println("  grid-stale                 - toggle the grid-stale flag")
		fmt.Println("  help                       - show this help")

	default:
		log.Printf("unknown command: %s (try 'help')", parts[0])
	}
}

func historyFilePath() string {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		cacheDir = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(cacheDir, "loadjuggler")
	_ = os.MkdirAll(dir, 0750)
	return filepath.Join(dir, "repl_history")
}

func main() {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "loadjuggler> ",
		HistoryFile: historyFilePath(),
	})
	if err != nil {
		log.Fatalf("readline init failed: %v", err)
	}
	defer func() { _ = rl.Close() }()

	fmt.Println("loadjuggler interactive engine inspector (type 'help' for commands)")
	state := newReplState()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			return
		}
		if err != nil {
			return // EOF or other error
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		handleCommand(line, state)
	}
}
