// Command demo runs the load-juggling engine against live MQTT sensor
// topics: MQTT callbacks refresh the grid/solar/battery snapshot as each
// reading arrives, and a command ticker runs the engine and logs (but does
// not publish) the resulting targets. It is an
// illustrative host harness, not a production integration — there is no
// OCPP profile emission here, just the wiring pattern.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/joho/godotenv"

	"loadjuggler/config"
	"loadjuggler/engine"
	"loadjuggler/governor"
	"loadjuggler/phase"
	"loadjuggler/site"
)

// SafeGo launches a goroutine with panic recovery and exponential-backoff
// retry. If fn runs for longer than resetAfter before panicking, the retry
// counter resets; after maxRetries exhausted, it cancels ctx to shut the
// whole process down rather than spin forever on a broken worker.
func SafeGo(ctx context.Context, cancel context.CancelFunc, name string, fn func(ctx context.Context)) {
	const maxRetries = 10
	const maxDelay = 10 * time.Minute
	const resetAfter = 2 * time.Minute

	go func() {
		retries := 0
		delay := time.Second

		for {
			start := time.Now()
			var panicValue any

			func() {
				defer func() { panicValue = recover() }()
				fn(ctx)
			}()

			if panicValue == nil {
				return
			}
			if time.Since(start) >= resetAfter {
				retries = 0
				delay = time.Second
			}

			retries++
			log.Printf("panic in %s (attempt %d/%d): %v\n", name, retries, maxRetries, panicValue)
			if retries >= maxRetries {
				log.Printf("%s failed after %d retries, shutting down\n", name, maxRetries)
				cancel()
				return
			}

			select {
			case <-time.After(delay):
				delay = min(delay*2, maxDelay)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// siteSnapshot is the MQTT-callback-updated view of live sensor readings,
// guarded by mu since MQTT callbacks and the command tick both touch it
// concurrently.
type siteSnapshot struct {
	mu sync.Mutex

	consumptionA, consumptionB, consumptionC float64
	solarProductionTotal                     float64
	totalExportPower                         float64
	batterySOC                               float64
	lastUpdate                               time.Time
}

func (s *siteSnapshot) applyReading(topic string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch topic {
	case "loadjuggler/sensor/grid_power_a":
		s.consumptionA = value
	case "loadjuggler/sensor/grid_power_b":
		s.consumptionB = value
	case "loadjuggler/sensor/grid_power_c":
		s.consumptionC = value
	case "loadjuggler/sensor/solar_production_total":
		s.solarProductionTotal = value
	case "loadjuggler/sensor/export_power_total":
		s.totalExportPower = value
	case "loadjuggler/sensor/battery_soc":
		s.batterySOC = value
	}
	s.lastUpdate = time.Now()
}

func (s *siteSnapshot) toContext(cfg config.Site, loads []site.Load) site.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	stale := time.Since(s.lastUpdate) > cfg.GridStaleAfter

	return site.Context{
		Voltage:               cfg.Voltage,
		MainBreakerRating:     cfg.MainBreakerRating,
		MaxGridImportPower:    cfg.MaxGridImportPower,
		Consumption:           phase.Of(s.consumptionA, s.consumptionB, s.consumptionC),
		SolarProductionTotal:  s.solarProductionTotal,
		TotalExportPower:      s.totalExportPower,
		ExcessExportThreshold: cfg.ExcessExportThreshold,
		Battery: site.Battery{
			Present:           cfg.BatterySOCMin > 0 || cfg.BatterySOCTarget > 0,
			SOC:               s.batterySOC,
			SOCMin:            cfg.BatterySOCMin,
			SOCTarget:         cfg.BatterySOCTarget,
			SOCHysteresis:     cfg.BatterySOCHysteresis,
			MaxChargePower:    cfg.BatteryMaxChargePower,
			MaxDischargePower: cfg.BatteryMaxDischargePower,
		},
		Inverter: site.Inverter{
			MaxPower:         cfg.InverterMaxPower,
			MaxPowerPerPhase: cfg.InverterMaxPowerPerPhase,
			Asymmetric:       cfg.InverterSupportsAsymmetric,
		},
		DistributionMode: distributionModeFromString(cfg.DistributionMode),
		GridStale:        stale,
		Loads:            loads,
	}
}

func distributionModeFromString(s string) site.DistributionMode {
	switch s {
	case "Priority":
		return site.DistributionPriority
	case "Optimized":
		return site.DistributionOptimized
	case "Strict":
		return site.DistributionStrict
	default:
		return site.DistributionShared
	}
}

// demoLoads returns a fixed two-EVSE fleet standing in for what a real
// integration would discover from OCPP charge-point registrations.
func demoLoads() []site.Load {
	ld := config.DefaultLoadSettings()
	return []site.Load{
		{
			ID: "evse-1", Kind: site.KindEVSE, ActivePhasesMask: phase.ABC,
			MinCurrent: ld.MinCurrent, MaxCurrent: ld.MaxCurrent, Priority: 1,
			OperatingMode: site.ModeStandard, ConnectorStatus: site.StatusCharging,
			GraceHoldDuration: ld.GraceHoldDuration, ChargePauseDuration: ld.ChargePauseDuration,
		},
		{
			ID: "evse-2", Kind: site.KindEVSE, ActivePhasesMask: phase.ABC,
			MinCurrent: ld.MinCurrent, MaxCurrent: ld.MaxCurrent, Priority: 2,
			OperatingMode: site.ModeSolarOnly, ConnectorStatus: site.StatusCharging,
			GraceHoldDuration: ld.GraceHoldDuration, ChargePauseDuration: ld.ChargePauseDuration,
		},
	}
}

func mqttWorker(ctx context.Context, broker, username, password string, snapshot *siteSnapshot) {
	topics := []string{
		"loadjuggler/sensor/grid_power_a",
		"loadjuggler/sensor/grid_power_b",
		"loadjuggler/sensor/grid_power_c",
		"loadjuggler/sensor/solar_production_total",
		"loadjuggler/sensor/export_power_total",
		"loadjuggler/sensor/battery_soc",
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:1883", broker))
	opts.SetClientID("loadjuggler-demo")
	opts.SetUsername(username)
	opts.SetPassword(password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(5 * time.Second)

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("MQTT connection lost: %v\n", err)
	})
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Printf("Connected to MQTT broker at %s\n", broker)
		for _, topic := range topics {
			t := topic
			token := client.Subscribe(t, 0, func(client mqtt.Client, msg mqtt.Message) {
				value, err := strconv.ParseFloat(string(msg.Payload()), 64)
				if err != nil {
					log.Printf("sensor %s: non-numeric payload %q: %v\n", t, msg.Payload(), err)
					return
				}
				snapshot.applyReading(t, value)
			})
			if token.Wait() && token.Error() != nil {
				log.Printf("failed to subscribe to %s: %v\n", t, token.Error())
			}
		}
	})

	client := mqtt.NewClient(opts)
	log.Printf("connecting to MQTT broker at %s...\n", broker)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Printf("failed to connect to MQTT broker: %v\n", token.Error())
		return
	}

	<-ctx.Done()
	if client.IsConnected() {
		client.Disconnect(250)
		log.Println("disconnected from MQTT broker")
	}
}

// commandWorker runs the engine on the slower command cadence, feeding it
// the latest site snapshot and the previous tick's runtime state.
func commandWorker(ctx context.Context, cfg config.Site, snapshot *siteSnapshot) {
	loads := demoLoads()
	runtime := site.NewHubRuntimeState()
	smoothing := engine.SmoothingConfig{
		EMAAlpha: 0.3, DeadBandWidth: 0.3,
		RampUpPerSecond: 0.1, RampDownPerSecond: 0.2,
		GridStaleAfter: cfg.GridStaleAfter, TickInterval: cfg.TickInterval,
	}
	headroomTrend := governor.NewRollingMinMax()

	ticker := time.NewTicker(cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctxSnapshot := snapshot.toContext(cfg, loads)
			result := engine.Run(ctxSnapshot, runtime, smoothing, time.Now())
			runtime = result.Runtime

			headroomTrend.Update(result.Hub.TotalSiteAvailable)
			log.Printf("site headroom: now=%.1fA last-hour-min=%.1fA last-hour-max=%.1fA\n",
				result.Hub.TotalSiteAvailable, headroomTrend.Min(), headroomTrend.Max())

			for _, l := range result.Loads {
				log.Printf("load %s: target=%.1fA reason=%s state=%s\n", l.ID, l.TargetCurrent, l.Reason, l.State)
			}
			for _, d := range result.Diagnostics {
				log.Printf("diagnostic: %s\n", d)
			}

		case <-ctx.Done():
			return
		}
	}
}

func main() {
	log.Println("starting loadjuggler demo...")

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: error loading .env file: %v\n", err)
	}

	mqttUsername := os.Getenv("MQTT_USERNAME")
	mqttPassword := os.Getenv("MQTT_PASSWORD")
	if mqttUsername == "" || mqttPassword == "" {
		log.Fatal("MQTT_USERNAME and MQTT_PASSWORD must be set in .env file")
	}
	broker := os.Getenv("MQTT_BROKER")
	if broker == "" {
		broker = "homeassistant.lan"
	}

	cfg := config.Defaults()
	for _, diag := range cfg.Validate() {
		log.Println(diag)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshot := &siteSnapshot{}

	SafeGo(ctx, cancel, "mqtt-worker", func(ctx context.Context) {
		mqttWorker(ctx, broker, mqttUsername, mqttPassword, snapshot)
	})
	log.Println("mqtt worker started")

	SafeGo(ctx, cancel, "command-worker", func(ctx context.Context) {
		commandWorker(ctx, cfg, snapshot)
	})
	log.Println("command worker started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Println("shutting down...")
	case <-ctx.Done():
		log.Println("shutting down due to error...")
	}
}
