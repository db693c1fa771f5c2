package ui

import (
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hollowtile/gbcore/internal/emu"
)

// App is the minimal ebiten.Game host driver: window, keyboard-to-joypad
// polling, emulation pacing, and a silent audio stream (the APU is a
// register-only stub with no synthesis, per spec Non-goals).
type App struct {
	cfg Config
	m   *emu.Machine
	tex *ebiten.Image

	paused bool
	fast   bool

	lastTime time.Time
	frameAcc float64

	audioCtx    *audio.Context
	audioPlayer *audio.Player

	toastMsg   string
	toastUntil time.Time
}

// NewApp builds a host driver around an already-loaded Machine.
func NewApp(cfg Config, m *emu.Machine) *App {
	cfg.Defaults()
	ebiten.SetWindowTitle(windowTitle(cfg, m))
	ebiten.SetWindowSize(160*cfg.Scale, 144*cfg.Scale)

	a := &App{cfg: cfg, m: m}
	a.lastTime = time.Now()
	a.audioCtx = audio.NewContext(48000)
	return a
}

func windowTitle(cfg Config, m *emu.Machine) string {
	if m == nil {
		return cfg.Title
	}
	if t := m.ROMTitle(); t != "" {
		return cfg.Title + " - [" + t + "]"
	}
	return cfg.Title
}

func (a *App) Run() error { return ebiten.RunGame(a) }

func (a *App) Update() error {
	if a.audioPlayer == nil {
		if p, err := a.audioCtx.NewPlayer(&silenceStream{}); err == nil {
			a.audioPlayer = p
			a.audioPlayer.Play()
		}
	}

	var btn emu.Buttons
	if ebiten.IsKeyPressed(ebiten.KeyRight) {
		btn.Right = true
	}
	if ebiten.IsKeyPressed(ebiten.KeyLeft) {
		btn.Left = true
	}
	if ebiten.IsKeyPressed(ebiten.KeyUp) {
		btn.Up = true
	}
	if ebiten.IsKeyPressed(ebiten.KeyDown) {
		btn.Down = true
	}
	if ebiten.IsKeyPressed(ebiten.KeyZ) {
		btn.A = true
	}
	if ebiten.IsKeyPressed(ebiten.KeyX) {
		btn.B = true
	}
	if ebiten.IsKeyPressed(ebiten.KeyEnter) {
		btn.Start = true
	}
	if ebiten.IsKeyPressed(ebiten.KeyShiftRight) {
		btn.Select = true
	}
	a.m.SetButtons(btn)

	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		a.paused = !a.paused
		if a.paused {
			a.toast("Paused")
		} else {
			a.toast("Resumed")
		}
	}
	wasFast := a.fast
	a.fast = ebiten.IsKeyPressed(ebiten.KeyTab)
	if a.fast && !wasFast {
		a.toast("Fast-forward")
	} else if wasFast && !a.fast {
		a.toast("Normal speed")
	}
	if a.paused && inpututil.IsKeyJustPressed(ebiten.KeyN) {
		a.m.StepFrame()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}

	if !a.paused {
		now := time.Now()
		dt := now.Sub(a.lastTime).Seconds()
		if dt < 0 {
			dt = 0
		}
		a.lastTime = now

		const gbFPS = 4194304.0 / 70224.0 // ~59.7275, per spec §2's declared clock rate
		speed := 1.0
		if a.fast {
			speed = 4.0
		}
		a.frameAcc += dt * gbFPS * speed

		steps := 0
		for a.frameAcc >= 1.0 && steps < 10 { // cap to avoid a spiral of death on stalls
			a.m.StepFrame()
			a.frameAcc -= 1.0
			steps++
		}
	}

	return nil
}

func (a *App) Draw(screen *ebiten.Image) {
	if a.tex == nil {
		a.tex = ebiten.NewImage(160, 144)
	}
	a.tex.WritePixels(a.m.Framebuffer())
	screen.DrawImage(a.tex, nil)

	if a.toastMsg != "" && time.Now().Before(a.toastUntil) {
		ebitenutil.DebugPrintAt(screen, a.toastMsg, 6, 4)
	}
	if a.paused {
		ebitenutil.DebugPrintAt(screen, "PAUSED", 6, 4)
	}
}

func (a *App) Layout(outW, outH int) (int, int) { return 160, 144 }

func (a *App) toast(msg string) {
	a.toastMsg = msg
	a.toastUntil = time.Now().Add(2 * time.Second)
}
