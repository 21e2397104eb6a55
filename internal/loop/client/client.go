// Package client renders a session dashboard on a terminal and turns key
// presses into server intents.
package client

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tomz197/asteroid-idle/internal/draw"
	"github.com/tomz197/asteroid-idle/internal/input"
	"github.com/tomz197/asteroid-idle/internal/loop/config"
	"github.com/tomz197/asteroid-idle/internal/loop/server"
)

// Client handles rendering and input for a single connection.
type Client struct {
	server       server.GameServer
	handle       *server.ClientHandle
	state        *ClientState
	chunkWriter  *draw.ChunkWriter // Accumulates frame text for chunked output
	writer       io.Writer
	inputStream  *input.Stream
	lastInput    time.Time
	termSizeFunc draw.TermSizeFunc
	logger       *log.Logger

	width, height   int
	offCol, offRow  int
	prevLines       []string // Last frame, for line-level redraw
	forceFullRedraw bool
}

// ClientOptions configures the client.
type ClientOptions struct {
	TermSizeFunc draw.TermSizeFunc
	Player       string
	Logger       *log.Logger
}

// NewClient registers a new client for opts.Player with the given server.
func NewClient(gs server.GameServer, r *bufio.Reader, w io.Writer, opts ClientOptions) (*Client, error) {
	termSizeFunc := opts.TermSizeFunc
	if termSizeFunc == nil {
		termSizeFunc = draw.DefaultTermSizeFunc
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	handle, err := gs.RegisterClient(opts.Player)
	if err != nil {
		return nil, fmt.Errorf("register client: %w", err)
	}

	termWidth, termHeight, _ := draw.TerminalSizeRawWith(termSizeFunc)
	width, height, offsetCol, offsetRow := clampTermSize(termWidth, termHeight)

	return &Client{
		server:       gs,
		handle:       handle,
		state:        NewClientState(),
		chunkWriter:  draw.NewChunkWriter(w, offsetCol, offsetRow),
		writer:       w,
		inputStream:  input.StartStream(r),
		lastInput:    time.Now(),
		termSizeFunc: termSizeFunc,
		logger:       logger.With("player", handle.Player),
		width:        width,
		height:       height,
		offCol:       offsetCol,
		offRow:       offsetRow,
	}, nil
}

// Player returns the normalized player name the client is attached as.
func (c *Client) Player() string {
	return c.handle.Player
}

// Run starts the client loop. Blocks until the client disconnects or server stops.
func (c *Client) Run() error {
	draw.HideCursor(c.writer)
	defer draw.ShowCursor(c.writer)
	draw.ClearScreen(c.writer)
	defer c.server.UnregisterClient(c.handle.ID)

	lastTime := time.Now()

	for c.state.Running {
		frameStart := time.Now()
		c.state.tick(frameStart.Sub(lastTime))
		lastTime = frameStart

		snap := c.server.GetSnapshot(c.handle.ID)

		c.processInput(snap)
		c.processServerEvents()
		c.updateScreen()

		if err := c.drawFrame(snap); err != nil {
			return err
		}

		elapsed := time.Since(frameStart)
		if elapsed < config.ClientTargetFrameTime {
			time.Sleep(config.ClientTargetFrameTime - elapsed)
		}
	}

	draw.ClearScreen(c.writer)
	return nil
}

// processInput reads input and sends resulting intents to the server.
func (c *Client) processInput(snap *server.SessionSnapshot) {
	in := input.ReadInput(c.inputStream)
	if in.Closed && len(in.Events) == 0 {
		c.state.Running = false
		return
	}

	if len(in.Pressed) > 0 {
		c.lastInput = time.Now()
		if c.state.isInactive {
			// The key that dismisses the warning does nothing else.
			c.state.isInactive = false
			return
		}
	} else if time.Since(c.lastInput) > config.InactivityDisconnectUser {
		c.logger.Info("disconnecting inactive client")
		c.state.Running = false
		return
	} else if time.Since(c.lastInput) > config.InactivityWarnUser {
		c.state.isInactive = true
	}

	for _, intent := range c.state.HandleInput(in, snap) {
		c.server.SendIntent(c.handle.ID, intent)
	}
}

// processServerEvents handles events from the server.
func (c *Client) processServerEvents() {
	for {
		select {
		case event, ok := <-c.handle.EventsCh:
			if !ok {
				// Server closed the channel
				c.state.Running = false
				return
			}
			c.state.HandleEvent(event)
		default:
			return
		}
	}
}

// updateScreen handles terminal resize, clamping to the max frame size.
// On actual size changes, clears the terminal to remove stale text outside
// the new frame.
func (c *Client) updateScreen() {
	termWidth, termHeight, err := draw.TerminalSizeRawWith(c.termSizeFunc)
	if err != nil {
		return
	}
	width, height, offsetCol, offsetRow := clampTermSize(termWidth, termHeight)

	if width != c.width || height != c.height || offsetCol != c.offCol || offsetRow != c.offRow {
		draw.ClearScreen(c.writer)
		c.forceFullRedraw = true
	}

	c.width, c.height = width, height
	c.offCol, c.offRow = offsetCol, offsetRow
	c.chunkWriter.SetOffset(offsetCol, offsetRow)
}

// clampTermSize clamps terminal dimensions to the max frame size and computes
// the centering offset for the frame.
func clampTermSize(termWidth, termHeight int) (width, height, offsetCol, offsetRow int) {
	width = termWidth
	height = termHeight
	if width > config.MaxTermWidth {
		width = config.MaxTermWidth
	}
	if height > config.MaxTermHeight {
		height = config.MaxTermHeight
	}
	offsetCol = (termWidth - width) / 2
	offsetRow = (termHeight - height) / 2
	return
}
