// Command gateway wires the RSFP/HPAP/DPE core together against a real
// serial link to the CAN co-processor, exposing the data-point engine
// and dispatcher for an (unimplemented, out-of-scope) HTTP/MQTT layer
// to consume. The main loop is a single cooperative goroutine: it
// never blocks for long, matching spec.md §5's concurrency model.
package main

import (
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/canbus"
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/convert"
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/datapoint"
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/definitions"
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/datetime"
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/hpap"
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/internal/clock"
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/internal/kvconfig"
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/internal/obslog"
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/rsfp"
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/transport"
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/x/mathx"
)

// Gateway bundles the wired-up core, the surface an out-of-scope
// HTTP/MQTT layer would hold onto (spec.md §6 "Upward APIs").
type Gateway struct {
	Link       *transport.Link
	RSFP       *rsfp.Endpoint
	CAN        *canbus.Facade
	Dispatcher *hpap.Dispatcher
	Registry   *convert.Registry
	Defs       *definitions.Repository
	Engine     *datapoint.Engine
	DateTime   *datetime.Source

	stateDir string
	log      obslog.Logger
}

func main() {
	device := flag.String("device", "/dev/ttyUSB0", "serial device the CAN co-processor is attached to")
	stateDir := flag.String("state-dir", ".", "directory holding /config, /subscriptions, /writables")
	localAddr := flag.Int("address", 0, "this gateway's own device address on the System type")
	flag.Parse()

	clk := clock.System{}
	gw := build(*device, *stateDir, hpap.DeviceID{Type: hpap.TypeSystem, Address: uint8(*localAddr)}, clk)
	gw.loadPersisted()

	gw.log.Info("gateway starting")
	for {
		gw.Link.Tick()
		gw.Link.Poll(gw.RSFP.Feed)
		gw.RSFP.Tick()
		gw.CAN.Tick()
		gw.Engine.Tick()
		gw.DateTime.Tick()
		time.Sleep(10 * time.Millisecond)
	}
}

func build(device, stateDir string, local hpap.DeviceID, clk clock.Clock) *Gateway {
	log := obslog.NewConsole("gateway")

	rsfpCfg := loadRSFPConfig(stateDir)
	canCfg := loadCANConfig(stateDir)
	dpeCfg := loadDPEConfig(stateDir)

	link := transport.NewLink(transport.Config{Device: device, BaudRate: rsfpCfg.baud}, transport.SerialDialer, clk)
	endpoint := rsfp.NewEndpoint(link, clk, rsfpCfg.rsfp)
	link.OnConnect = endpoint.Reset

	facade := canbus.NewFacade(endpoint, clk, canCfg)
	facade.Log = &log
	endpoint.OnReceive("canbus", facade.HandlePayload)
	endpoint.OnError("log", func(ev rsfp.ErrorEvent) {
		log.Warnf("rsfp error", "code", string(ev.Code), "detail", ev.Detail)
	})

	dispatcher := hpap.NewDispatcher(facade)
	facade.OnFrame("hpap", func(f hpap.Frame) {
		if msg, ok := hpap.Decode(f); ok {
			dispatcher.Deliver(msg)
		}
	})

	registry := convert.NewRegistry()
	definitions.RegisterBuiltinConverters(registry)
	defs := definitions.NewRepository()

	dtSource := datetime.NewSource(dispatcher, clk, local)
	dispatcher.OnWrite("datetime", dtSource.HandleInbound)
	dispatcher.OnResponse("datetime", dtSource.HandleInbound)

	engine := datapoint.NewEngine(defs, dispatcher, dtSource, clk, local, dpeCfg)
	dispatcher.OnWrite("dpe", engine.HandleInbound)
	dispatcher.OnResponse("dpe", engine.HandleInbound)

	return &Gateway{
		Link:       link,
		RSFP:       endpoint,
		CAN:        facade,
		Dispatcher: dispatcher,
		Registry:   registry,
		Defs:       defs,
		Engine:     engine,
		DateTime:   dtSource,
		stateDir:   stateDir,
		log:        log,
	}
}

func (g *Gateway) loadPersisted() {
	if f, err := os.OpenFile(filepath.Join(g.stateDir, "subscriptions"), os.O_RDWR|os.O_CREATE, 0o644); err == nil {
		g.Engine.LoadSubscriptions(f, kvconfig.MaxSize*4)
		f.Close()
	} else {
		g.log.ErrorErr(err, "failed to open subscriptions file")
	}
	if f, err := os.OpenFile(filepath.Join(g.stateDir, "writables"), os.O_RDWR|os.O_CREATE, 0o644); err == nil {
		g.Engine.LoadWritables(f, kvconfig.MaxSize*4)
		f.Close()
	} else {
		g.log.ErrorErr(err, "failed to open writables file")
	}
}

type rsfpConfig struct {
	rsfp rsfp.Config
	baud int
}

func loadRSFPConfig(stateDir string) rsfpConfig {
	v := readConfigComponent(stateDir, "rsfp")
	return rsfpConfig{
		rsfp: rsfp.Config{
			TimeoutMs:   mathx.Clamp(int64(v.Int("timeout-ms", 2000)), 100, 60_000),
			ResendLimit: mathx.Clamp(v.Int("resend-limit", 4), 1, 16),
		},
		baud: mathx.Clamp(v.Int("baud", 115_200), 9_600, 1_000_000),
	}
}

func loadCANConfig(stateDir string) canbus.Config {
	v := readConfigComponent(stateDir, "canbus")
	mode := canbus.ModeNormal
	if v.String("mode", "NOR") == "LIS" {
		mode = canbus.ModeListenOnly
	}
	return canbus.Config{Mode: mode, Bitrate: mathx.Clamp(v.Int("bitrate", 20_000), 10_000, 1_000_000)}
}

func loadDPEConfig(stateDir string) datapoint.Config {
	v := readConfigComponent(stateDir, "dpe")
	mode := datapoint.CaptureMode(v.String("mode", string(datapoint.ModeConfigured)))
	return datapoint.Config{Mode: mode, ReadOnly: v.Bool("readOnly", true)}
}

func readConfigComponent(stateDir, component string) kvconfig.Values {
	data, err := os.ReadFile(filepath.Join(stateDir, "config", component))
	if err != nil {
		return kvconfig.Values{}
	}
	return kvconfig.Parse(data)
}
