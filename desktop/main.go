package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"math"
	"os"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"desktop/assets"
	"desktop/envclient"
)

const (
	boardSize         = 600
	headerHeight      = 80
	footerHeight      = 40
	screenWidth       = boardSize
	screenHeight      = boardSize + headerHeight + footerHeight
	animationDuration = 150 * time.Millisecond
	bumpDuration      = 400 * time.Millisecond
	pollInterval      = 500 * time.Millisecond
)

// ScreenType represents different screens in the app
type ScreenType int

const (
	ScreenTitle ScreenType = iota
	ScreenGame
)

var (
	backgroundColor = color.RGBA{20, 20, 30, 255}
	trailColor      = color.RGBA{255, 255, 255, 255}
)

// Sprites holds the images loaded from the asset directory
type Sprites struct {
	Title      *ebiten.Image
	Background *ebiten.Image
	Goal       *ebiten.Image
	Penalty    *ebiten.Image
	Agent      *ebiten.Image
}

// LoadSprites loads the full sprite set from dir. Any missing or undecodable
// sprite is an error.
func LoadSprites(dir string) (*Sprites, error) {
	paths, err := assets.Resolve(dir, assets.Default)
	if err != nil {
		return nil, err
	}

	sprites := &Sprites{}
	for _, s := range []struct {
		path string
		dst  **ebiten.Image
	}{
		{paths.Title, &sprites.Title},
		{paths.Background, &sprites.Background},
		{paths.Goal, &sprites.Goal},
		{paths.Penalty, &sprites.Penalty},
		{paths.Agent, &sprites.Agent},
	} {
		img, _, err := ebitenutil.NewImageFromFile(s.path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", assets.ErrAssetMissing, s.path, err)
		}
		*s.dst = img
	}
	return sprites, nil
}

// Game is the desktop window showing one environment session
type Game struct {
	client  *envclient.Client
	sprites *Sprites

	ctx    context.Context
	cancel context.CancelFunc

	currentScreen ScreenType
	configs       []envclient.ConfigSummary
	configIdx     int
	errorMsg      string

	sessionID  string
	stateMutex sync.RWMutex
	state      *envclient.Snapshot
	live       bool
	lastUpdate time.Time

	prevPos       envclient.Position
	targetPos     envclient.Position
	moveStartTime time.Time
	animationTime float64
	bumpTime      time.Time
	isBumping     bool
}

// NewGame creates the window state. With a session ID the title screen is skipped.
func NewGame(client *envclient.Client, sprites *Sprites, sessionID string) *Game {
	ctx, cancel := context.WithCancel(context.Background())
	g := &Game{
		client:        client,
		sprites:       sprites,
		ctx:           ctx,
		cancel:        cancel,
		currentScreen: ScreenTitle,
		animationTime: 1,
	}

	if sessionID != "" {
		g.attach(sessionID)
	} else {
		g.loadConfigs()
	}
	return g
}

func (g *Game) loadConfigs() {
	configs, err := g.client.ListConfigs(g.ctx)
	if err != nil {
		g.errorMsg = fmt.Sprintf("Error loading configs: %v", err)
		return
	}
	g.configs = configs
	g.errorMsg = ""
}

func (g *Game) selectedConfig() string {
	if len(g.configs) == 0 {
		return ""
	}
	return g.configs[g.configIdx].ConfigID
}

// startSession creates a session on the selected config and switches to it
func (g *Game) startSession() {
	session, err := g.client.CreateSession(g.ctx, g.selectedConfig())
	if err != nil {
		g.errorMsg = fmt.Sprintf("Failed to create session: %v", err)
		return
	}
	log.Printf("Created new session: %s (config: %s)", session.ID, session.ConfigName)
	g.attach(session.ID)
}

// attach switches to sessionID and starts listening to its feed
func (g *Game) attach(sessionID string) {
	g.sessionID = sessionID
	g.currentScreen = ScreenGame

	if err := g.fetchState(); err != nil {
		log.Printf("Error fetching state for %s: %v", sessionID, err)
	}

	go func() {
		g.setLive(true)
		err := g.client.Subscribe(g.ctx, sessionID, g.applySnapshot)
		g.setLive(false)
		if err != nil {
			log.Printf("Snapshot feed for %s closed: %v (falling back to polling)", sessionID, err)
		}
	}()
}

func (g *Game) setLive(live bool) {
	g.stateMutex.Lock()
	g.live = live
	g.stateMutex.Unlock()
}

func (g *Game) fetchState() error {
	snap, err := g.client.State(g.ctx, g.sessionID)
	if err != nil {
		return err
	}
	g.applySnapshot(snap)
	return nil
}

// applySnapshot stores a new snapshot and starts the move or bump animation
func (g *Game) applySnapshot(snap *envclient.Snapshot) {
	if snap == nil {
		return
	}
	g.stateMutex.Lock()
	defer g.stateMutex.Unlock()

	if g.state != nil && g.state.Episode == snap.Episode {
		switch {
		case g.state.Agent != snap.Agent:
			g.prevPos = g.state.Agent
			g.targetPos = snap.Agent
			g.moveStartTime = time.Now()
			g.animationTime = 0
			g.isBumping = false
		case snap.Steps > g.state.Steps:
			// Stepped without moving: blocked or invalid
			g.bumpTime = time.Now()
			g.isBumping = true
		}
	} else {
		g.prevPos = snap.Agent
		g.targetPos = snap.Agent
		g.animationTime = 1
	}
	g.state = snap
	g.lastUpdate = time.Now()
}

func (g *Game) sendStep(direction string) {
	snap, err := g.client.Step(g.ctx, g.sessionID, direction)
	if err != nil {
		log.Printf("Step %s failed: %v", direction, err)
		return
	}
	g.applySnapshot(snap)
}

func (g *Game) sendReset() {
	snap, err := g.client.Reset(g.ctx, g.sessionID)
	if err != nil {
		log.Printf("Reset failed: %v", err)
		return
	}
	g.applySnapshot(snap)
}

// Update updates game logic
func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.cancel()
		return ebiten.Termination
	}

	switch g.currentScreen {
	case ScreenTitle:
		return g.updateTitleScreen()
	case ScreenGame:
		return g.updateGameScreen()
	}
	return nil
}

func (g *Game) updateTitleScreen() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		g.loadConfigs()
	}
	if len(g.configs) > 0 {
		if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) || inpututil.IsKeyJustPressed(ebiten.KeyTab) {
			g.configIdx = (g.configIdx + 1) % len(g.configs)
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) {
			g.configIdx = (g.configIdx + len(g.configs) - 1) % len(g.configs)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.startSession()
	}
	return nil
}

func (g *Game) updateGameScreen() error {
	g.stateMutex.Lock()
	if g.animationTime < 1 {
		g.animationTime = math.Min(1, float64(time.Since(g.moveStartTime))/float64(animationDuration))
	}
	if g.isBumping && time.Since(g.bumpTime) > bumpDuration {
		g.isBumping = false
	}
	live := g.live
	stale := time.Since(g.lastUpdate) > pollInterval
	g.stateMutex.Unlock()

	if !live && stale {
		if err := g.fetchState(); err != nil {
			log.Printf("Error fetching state for %s: %v", g.sessionID, err)
		}
	}

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowUp):
		g.sendStep("up")
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowDown):
		g.sendStep("down")
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft):
		g.sendStep("left")
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowRight):
		g.sendStep("right")
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		g.sendReset()
	}
	return nil
}

// Draw renders the current screen
func (g *Game) Draw(screen *ebiten.Image) {
	switch g.currentScreen {
	case ScreenTitle:
		g.drawTitleScreen(screen)
	case ScreenGame:
		g.drawGameScreen(screen)
	}
}

func (g *Game) drawTitleScreen(screen *ebiten.Image) {
	screen.Fill(backgroundColor)
	drawSprite(screen, g.sprites.Title, 0, 0, screenWidth, screenHeight)

	y := headerHeight
	ebitenutil.DebugPrintAt(screen, "=== GRID WORLD ===", screenWidth/2-60, 20)

	if g.errorMsg != "" {
		ebitenutil.DebugPrintAt(screen, "ERROR: "+g.errorMsg, 20, y)
		y += 20
	}

	ebitenutil.DebugPrintAt(screen, "Select a configuration:", 20, y)
	y += 20
	if len(g.configs) == 0 {
		ebitenutil.DebugPrintAt(screen, "  (server default)", 20, y)
		y += 15
	}
	for i, cfg := range g.configs {
		marker := "  "
		if i == g.configIdx {
			marker = "> "
		}
		line := fmt.Sprintf("%s%s (%dx%d) - %s", marker, cfg.Name, cfg.GridSize, cfg.GridSize, cfg.Description)
		ebitenutil.DebugPrintAt(screen, line, 20, y)
		y += 15
	}

	ebitenutil.DebugPrintAt(screen, "UP/DOWN: choose config | ENTER: start | F5: refresh | ESC: quit", 10, screenHeight-20)
}

func (g *Game) drawGameScreen(screen *ebiten.Image) {
	g.stateMutex.RLock()
	defer g.stateMutex.RUnlock()

	screen.Fill(backgroundColor)
	state := g.state
	if state == nil || state.GridSize == 0 {
		ebitenutil.DebugPrint(screen, "Loading...")
		return
	}

	cell := float64(boardSize) / float64(state.GridSize)
	originY := float64(headerHeight)

	drawSprite(screen, g.sprites.Background, 0, originY, boardSize, boardSize)

	for r := 0; r < state.GridSize; r++ {
		for c := 0; c < state.GridSize; c++ {
			p := envclient.Position{Row: r, Col: c}
			x, y := float64(c)*cell, originY+float64(r)*cell

			switch {
			case p == state.Goal:
				drawSprite(screen, g.sprites.Goal, x, y, cell, cell)
			case state.IsPenalty(p):
				drawSprite(screen, g.sprites.Penalty, x, y, cell, cell)
			}
		}
	}

	// Trail of the current episode, fading with age
	moves := state.CurrentMoves
	for i, move := range moves {
		if move.Outcome != "moved" {
			continue
		}
		alpha := float64(i+1) / float64(len(moves)) * 0.4
		dot := cell / 8
		tc := trailColor
		tc.A = uint8(alpha * 255)
		ebitenutil.DrawRect(screen,
			float64(move.To.Col)*cell+cell/2-dot/2,
			originY+float64(move.To.Row)*cell+cell/2-dot/2,
			dot, dot, tc)
	}

	t := g.animationTime
	col := float64(g.prevPos.Col)*(1-t) + float64(g.targetPos.Col)*t
	row := float64(g.prevPos.Row)*(1-t) + float64(g.targetPos.Row)*t

	var shakeX, shakeY float64
	var tint ebiten.ColorScale
	if g.isBumping {
		progress := time.Since(g.bumpTime).Seconds() / bumpDuration.Seconds()
		intensity := 4 * (1 - progress)
		shakeX = intensity * math.Sin(progress*40)
		shakeY = intensity * math.Cos(progress*40)
		// Flash red: fade green and blue
		flash := float32((1 - progress) * 0.7)
		tint.Scale(1, 1-flash, 1-flash, 1)
	}

	ax := col*cell + shakeX
	ay := originY + row*cell + shakeY
	drawTinted(screen, g.sprites.Agent, ax+cell*0.1, ay+cell*0.1, cell*0.8, cell*0.8, tint)

	g.drawHeader(screen, state)
	ebitenutil.DebugPrintAt(screen, "Arrows: step | R: reset | ESC: quit", 10, screenHeight-20)
}

func (g *Game) drawHeader(screen *ebiten.Image, state *envclient.Snapshot) {
	feed := "POLL"
	if g.live {
		feed = "WS"
	}
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Session %s [%s] config=%s", g.sessionID, feed, state.ConfigName), 10, 5)
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Episode %d | Steps %d | Return %.2f | Distance %.2f",
		state.Episode, state.Steps, state.Return, state.Info.DistanceToGoal), 10, 22)

	status := "RUNNING"
	switch state.Reason {
	case "goal":
		status = "GOAL REACHED! Press R to play again"
	case "penalty":
		status = "PENALTY CELL! Press R to play again"
	}
	ebitenutil.DebugPrintAt(screen, status, 10, 39)
	ebitenutil.DebugPrintAt(screen, state.Message, 10, 56)
}

// drawSprite draws img scaled into the w x h box at (x, y)
func drawSprite(screen, img *ebiten.Image, x, y, w, h float64) {
	drawTinted(screen, img, x, y, w, h, ebiten.ColorScale{})
}

func drawTinted(screen, img *ebiten.Image, x, y, w, h float64, tint ebiten.ColorScale) {
	b := img.Bounds()
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(w/float64(b.Dx()), h/float64(b.Dy()))
	op.GeoM.Translate(x, y)
	op.Filter = ebiten.FilterLinear
	op.ColorScale = tint
	screen.DrawImage(img, op)
}

// Layout returns the game screen size
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

func main() {
	serverURL := flag.String("url", envOr("GRIDWORLD_URL", "http://localhost:8080"), "Grid world server URL")
	assetDir := flag.String("assets", envOr("ASSET_DIR", "."), "Directory containing the sprite images")
	flag.Parse()

	sessionID := ""
	if flag.NArg() > 0 {
		sessionID = flag.Arg(0)
	}

	sprites, err := LoadSprites(*assetDir)
	if err != nil {
		log.Fatalf("Failed to load sprites: %v", err)
	}

	game := NewGame(envclient.New(*serverURL), sprites, sessionID)
	defer game.cancel()

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("Grid World")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(game); err != nil && err != ebiten.Termination {
		log.Fatal(err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
