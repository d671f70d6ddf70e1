// Package main implements the gones NES emulator executable.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"gones/internal/bus"
	"gones/internal/cartridge"
	"gones/internal/config"
	"gones/internal/debugger"
	"gones/internal/graphics"
	"gones/internal/input"
	"gones/internal/logging"
	"gones/internal/version"
)

func main() {
	var (
		romFile     = flag.String("rom", "", "Path to NES ROM file (required)")
		configFile  = flag.String("config", "", "Path to configuration file")
		backendName = flag.String("backend", "", "Override the configured graphics backend (ebitengine, sdl2, headless, terminal)")
		debug       = flag.Bool("debug", false, "Enable debug logging")
		nogui       = flag.Bool("nogui", false, "Run without a graphics backend (headless mode)")
		tui         = flag.Bool("debugger", false, "Launch the interactive CPU debugger instead of running")
		showHelp    = flag.Bool("help", false, "Show help message")
		showVer     = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showHelp {
		printUsage()
		os.Exit(0)
	}
	if *showVer {
		version.PrintBuildInfo()
		os.Exit(0)
	}

	log := logging.New()
	if *debug {
		log.SetLevel(logrus.DebugLevel)
	}
	configPath := *configFile
	if configPath == "" {
		configPath = "./gones.toml"
	}
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *debug {
		cfg.Debug.EnableLogging = true
		cfg.Debug.LogLevel = "debug"
	}

	if *romFile == "" {
		fmt.Println("a ROM file is required")
		printUsage()
		os.Exit(1)
	}

	cart, err := cartridge.LoadFromFile(*romFile)
	if err != nil {
		log.Fatalf("load ROM %s: %v", *romFile, err)
	}

	b := bus.New(log)
	b.LoadCartridge(cart)
	b.Reset()

	setupGracefulShutdown()

	switch {
	case *tui:
		if err := debugger.Run(b); err != nil {
			log.Fatalf("debugger exited: %v", err)
		}
	case *nogui:
		runHeadless(b)
	default:
		if *backendName != "" {
			cfg.Video.Backend = *backendName
		}
		if err := runGUI(b, cfg); err != nil {
			log.Fatalf("gui mode failed: %v", err)
		}
	}
}

// runHeadless drives the emulator for a fixed number of frames with no
// graphics backend attached, for scripted testing.
func runHeadless(b *bus.Bus) {
	const targetFrames = 120
	frame := 0
	b.SetFrameCallback(func() { frame++ })

	for frame < targetFrames {
		b.Step()
	}
	fmt.Printf("ran %d frames headless\n", frame)
}

// runGUI opens a graphics backend window and drives the emulator in
// real time, translating window input events into joypad state.
func runGUI(b *bus.Bus, cfg *config.Config) error {
	backendType := graphics.BackendType(cfg.Video.Backend)
	backend, err := graphics.CreateBackend(backendType)
	if err != nil {
		return fmt.Errorf("create backend %s: %w", backendType, err)
	}

	gfxConfig := graphics.Config{
		WindowTitle:  "gones",
		WindowWidth:  cfg.Window.Width,
		WindowHeight: cfg.Window.Height,
		Fullscreen:   cfg.Window.Fullscreen,
		VSync:        cfg.Video.VSync,
		Headless:     backend.IsHeadless(),
	}
	if err := backend.Initialize(gfxConfig); err != nil {
		return fmt.Errorf("initialize backend: %w", err)
	}
	defer backend.Cleanup()

	window, err := backend.CreateWindow("gones", cfg.Window.Width, cfg.Window.Height)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer window.Cleanup()

	frameDone := false
	b.SetFrameCallback(func() { frameDone = true })

	runFrame := func() error {
		applyInputEvents(window.PollEvents(), b.Input)
		for !frameDone {
			b.Step()
		}
		frameDone = false
		return window.RenderFrame(*b.PPU.FrameBuffer())
	}

	// Ebitengine owns its own event loop: input is only populated inside
	// its Update callback, which only runs under ebiten.RunGame. Every
	// other backend polls its own events directly, so the generic
	// pace-and-render loop below drives them instead.
	if ebWindow, ok := graphics.AsEbitengineWindow(window); ok {
		ebWindow.SetEmulatorUpdateFunc(runFrame)
		return ebWindow.Run()
	}

	ticker := time.NewTicker(time.Second / time.Duration(cfg.Emulation.FrameRate))
	defer ticker.Stop()

	for !window.ShouldClose() {
		if err := runFrame(); err != nil {
			return err
		}
		window.SwapBuffers()
		<-ticker.C
	}
	return nil
}

// applyInputEvents drives both joypads from window events. Backends that
// already know about both players (Ebitengine) emit InputEventTypeButton
// directly; backends that only know keys (SDL2, terminal) emit
// InputEventTypeKey, which only reaches controller 1 since the
// backend-agnostic Key enum has no second-player bindings.
func applyInputEvents(events []graphics.InputEvent, in *input.InputState) {
	for _, ev := range events {
		switch ev.Type {
		case graphics.InputEventTypeButton:
			if button, player2, ok := gfxButtonToButton(ev.Button); ok {
				if player2 {
					in.Controller2.SetButton(button, ev.Pressed)
				} else {
					in.Controller1.SetButton(button, ev.Pressed)
				}
			}
		case graphics.InputEventTypeKey:
			if button, ok := keyToButton(ev.Key); ok {
				in.Controller1.SetButton(button, ev.Pressed)
			}
		}
	}
}

func gfxButtonToButton(b graphics.Button) (input.Button, bool, bool) {
	switch b {
	case graphics.ButtonUp:
		return input.ButtonUp, false, true
	case graphics.ButtonDown:
		return input.ButtonDown, false, true
	case graphics.ButtonLeft:
		return input.ButtonLeft, false, true
	case graphics.ButtonRight:
		return input.ButtonRight, false, true
	case graphics.ButtonA:
		return input.ButtonA, false, true
	case graphics.ButtonB:
		return input.ButtonB, false, true
	case graphics.ButtonStart:
		return input.ButtonStart, false, true
	case graphics.ButtonSelect:
		return input.ButtonSelect, false, true
	case graphics.Button2Up:
		return input.ButtonUp, true, true
	case graphics.Button2Down:
		return input.ButtonDown, true, true
	case graphics.Button2Left:
		return input.ButtonLeft, true, true
	case graphics.Button2Right:
		return input.ButtonRight, true, true
	case graphics.Button2A:
		return input.ButtonA, true, true
	case graphics.Button2B:
		return input.ButtonB, true, true
	case graphics.Button2Start:
		return input.ButtonStart, true, true
	case graphics.Button2Select:
		return input.ButtonSelect, true, true
	default:
		return 0, false, false
	}
}

func keyToButton(key graphics.Key) (input.Button, bool) {
	switch key {
	case graphics.KeyUp, graphics.KeyW:
		return input.ButtonUp, true
	case graphics.KeyDown, graphics.KeyS:
		return input.ButtonDown, true
	case graphics.KeyLeft, graphics.KeyA:
		return input.ButtonLeft, true
	case graphics.KeyRight, graphics.KeyD:
		return input.ButtonRight, true
	case graphics.KeyJ:
		return input.ButtonA, true
	case graphics.KeyK:
		return input.ButtonB, true
	case graphics.KeyEnter:
		return input.ButtonStart, true
	case graphics.KeySpace:
		return input.ButtonSelect, true
	default:
		return 0, false
	}
}

func setupGracefulShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Println("interrupt received, shutting down")
		os.Exit(0)
	}()
}

func printUsage() {
	fmt.Println("gones - NES emulator")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  gones -rom <file> [options]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("CONTROLS (player 1):")
	fmt.Println("  Arrow keys - D-Pad")
	fmt.Println("  J          - A")
	fmt.Println("  K          - B")
	fmt.Println("  Enter      - Start")
	fmt.Println("  Space      - Select")
}
