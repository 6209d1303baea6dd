package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/tbertin/photobooth/internal/camera"
	"github.com/tbertin/photobooth/internal/config"
	"github.com/tbertin/photobooth/internal/debug"
	"github.com/tbertin/photobooth/internal/export"
	"github.com/tbertin/photobooth/internal/hw/booth"
	"github.com/tbertin/photobooth/internal/hw/gpio"
	"github.com/tbertin/photobooth/internal/session"
	"github.com/tbertin/photobooth/internal/web"
)

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web server on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	device := flag.String("device", "", "override preferred video device, e.g. /dev/video0")
	count := flag.Int("count", 0, "override target photo count for the headless run")
	filterName := flag.String("filter", "", "override active filter for the headless run")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// Validate CLI overrides (only non-zero values are applied; zero means "use config default")
	if err := validateCLIOverrides(cfg, *count, *filterName); err != nil {
		log.Fatalf("invalid CLI override: %v", err)
	}
	applyOverrides(cfg, *device, *count)

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)

	// Initialize GPIO driver for the booth peripherals
	debug.Value("Mock GPIO", cfg.Booth.MockGPIO)
	gpioDriver, err := gpio.NewDriver(cfg.Booth.MockGPIO)
	if err != nil {
		log.Fatalf("init GPIO failed: %v", err)
	}
	defer func() {
		if err := gpioDriver.Close(); err != nil {
			log.Printf("closing GPIO driver failed: %v", err)
		}
	}()
	lamp := booth.NewLamp(gpioDriver, cfg.Booth.LampPin, cfg.FlashPulse())

	// Camera acquisition manager over the platform driver
	mgr := camera.NewManager(camera.NewDriver(), camera.Options{
		PreferredDevice: cfg.Camera.PreferredDevice,
		IdealWidth:      cfg.Camera.IdealWidth,
		IdealHeight:     cfg.Camera.IdealHeight,
		MinWidth:        cfg.Camera.MinWidth,
		MinHeight:       cfg.Camera.MinHeight,
		ReadyTimeout:    cfg.ReadyTimeout(),
		FrameTimeout:    cfg.FrameTimeout(),
		WarmupFrames:    cfg.Camera.WarmupFrames,
	})
	defer mgr.Release()

	exporter := &export.Exporter{
		OutDir: cfg.Export.OutputDir,
		Layout: export.Layout{
			Columns:  cfg.Export.Columns,
			CellSize: cfg.Export.CellSize,
			Margin:   cfg.Export.Margin,
		},
		JPEGQuality: cfg.Export.JPEGQuality,
	}

	sessionCfg := session.Config{
		DefaultCount:   cfg.Session.DefaultCount,
		MaxPhotos:      cfg.Session.MaxPhotos,
		CountdownTicks: cfg.Session.CountdownTicks,
		TickInterval:   cfg.TickInterval(),
	}

	if port := webPort.port(); port > 0 {
		webAddr := fmt.Sprintf(":%d", port)
		broadcaster := web.NewEventBroadcaster()
		debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))

		sess := session.New(mgr, sessionCfg,
			session.WithFlash(lamp),
			session.WithNotifier(broadcaster.Broadcast),
		)

		preview := web.NewPreview(func() (image.Image, error) {
			h := mgr.Handle()
			if h == nil {
				return nil, camera.ErrReleased
			}
			return h.Frame()
		}, 100*time.Millisecond)
		go preview.Run(ctx)

		button := booth.NewButton(gpioDriver, cfg.Booth.ButtonPin, 50*time.Millisecond, sess.RequestCapture)
		go button.Run(ctx)

		handlers := web.NewHandlers(sess, exporter, broadcaster, preview, nil)
		srv := web.NewServer(webAddr, handlers)
		if err := srv.Run(ctx); err != nil {
			log.Fatalf("web server: %v", err)
		}
		return
	}

	// Headless one-shot run: start a session, capture the configured count
	// with countdowns, and write the collage.
	sess := session.New(mgr, sessionCfg, session.WithFlash(lamp))
	if err := runBoothOnce(ctx, sess, exporter, *filterName); err != nil {
		log.Fatalf("booth run failed: %v", err)
	}
}

// runBoothOnce drives one complete session without the web UI.
func runBoothOnce(ctx context.Context, sess *session.Session, exporter *export.Exporter, filterName string) error {
	if filterName != "" {
		if err := sess.SetFilter(filterName); err != nil {
			return err
		}
	}

	debug.Section("Starting Session")
	if err := sess.Start(ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.Stop()

	t := time.NewTicker(200 * time.Millisecond)
	defer t.Stop()
	for sess.State() != session.StateComplete {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			sess.RequestCapture()
		}
	}

	debug.Section("Exporting")
	name, err := exporter.Collage(sess.Photos())
	if err != nil {
		return fmt.Errorf("export collage: %w", err)
	}
	debug.Info("collage written: %s", filepath.Join(exporter.OutDir, name))

	debug.Section("Session Complete")
	return nil
}

// validateCLIOverrides checks that non-zero CLI overrides are within valid ranges.
// Zero values are ignored (they mean "use config default").
func validateCLIOverrides(cfg *config.Config, count int, filterName string) error {
	if count != 0 {
		if count < 1 || count > cfg.Session.MaxPhotos {
			return fmt.Errorf("count must be between 1 and %d, got %d", cfg.Session.MaxPhotos, count)
		}
	}
	if filterName != "" {
		if _, ok := session.FilterByName(filterName); !ok {
			return fmt.Errorf("unknown filter %q", filterName)
		}
	}
	return nil
}

// applyOverrides mutates cfg with overrides. Only non-zero override values are applied.
func applyOverrides(cfg *config.Config, device string, count int) {
	if device != "" {
		cfg.Camera.PreferredDevice = device
	}
	if count > 0 {
		cfg.Session.DefaultCount = count
	}
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
