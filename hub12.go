package hub12

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/flavioheleno/hub12/bitplane"
	"github.com/flavioheleno/hub12/geometry"
)

// DefaultFreq is the SPI clock used when Opts.Freq is zero.
const DefaultFreq = 20 * physic.MegaHertz

var errHalted = errors.New("hub12: halted")

// Pins are the control lines of the panels.
type Pins struct {
	OE gpio.PinOut // Output enable, active low unless Opts.OEInvert is set
	// Latch holds one pin shared by every chain or one pin per chain.
	Latch []gpio.PinOut
	// Addr are the multiplexer address lines A to E. Only the first
	// log2(ScanRatio) are used and those must be set.
	Addr [5]gpio.PinOut
}

// Opts is the configuration of a display.
type Opts struct {
	// Display dimensions in pixels, before rotation
	W int // Width (default: 32)
	H int // Height (default: 16)

	// Panel arrangement
	PanelsX   int               // Panels per panel row (default: 1)
	PanelsY   int               // Panel rows (default: 1)
	Chaining  geometry.Chaining // Order of the panel rows inside a chain
	ScanRatio int               // 1/ScanRatio of the rows is lit at a time (default: 4)
	Lines     int               // Independent chains (default: 1)

	// Framebuffer
	Depth        int         // Bit-planes per pixel (default: 4)
	DoubleBuffer bool        // Draw into a second buffer and swap with ShowBuffer
	Gamma        *[256]uint8 // Optional gamma lookup applied when drawing

	// Transform
	Rotate bool // 90° rotation
	Flip   bool // Horizontal mirror

	// Timing
	FastUpdate bool             // Stream the next row while the current one is lit
	ShowTime   time.Duration    // Row budget per plane cycle (default: DefaultShowTime)
	MuxDelay   [5]time.Duration // Settle time after driving each address line
	Freq       physic.Frequency // SPI clock for NewSPI (default: DefaultFreq)
	Clock      clockwork.Clock  // Time source for illumination (default: real clock)

	// Polarity
	Invert      bool // Data lines drive LEDs on a low bit
	OEInvert    bool // OE is active high
	LatchInvert bool // Latch pulses low

	Logger *zerolog.Logger // Optional, nil disables logging
}

// DefaultOpts is a single P10 32×16 panel at 1/4 scan.
var DefaultOpts = Opts{
	W:         32,
	H:         16,
	PanelsX:   1,
	PanelsY:   1,
	ScanRatio: 4,
	Lines:     1,
	Depth:     bitplane.DefaultDepth,
	ShowTime:  DefaultShowTime,
}

// Dev is a display made of HUB12 panels.
//
// Dev has no internal goroutine. The caller must invoke Display continuously
// to keep the picture visible, from the goroutine that also draws.
type Dev struct {
	// Communication
	chains []conn.Conn
	maxTx  []int
	oe     gpio.PinOut
	latch  []gpio.PinOut
	addr   []gpio.PinOut

	// A single data connection feeding chains that latch separately.
	interleave bool

	oeOn, oeOff       gpio.Level
	latchOn, latchOff gpio.Level

	buf *bitplane.Buffer
	off []byte // One scan row of unlit data

	clk clockwork.Clock
	log zerolog.Logger

	// State
	muxDelay   [5]time.Duration
	showTime   time.Duration
	brightness uint8
	fast       bool
	primed     bool
	plane      int
	halted     bool
}

// NewSPI returns a Dev whose chains are daisy-chained on one SPI port.
//
// The port is configured for opts.Freq (default 20MHz), Mode0, 8-bit
// transfers. opts can be nil to use DefaultOpts.
func NewSPI(p spi.Port, pins *Pins, opts *Opts) (*Dev, error) {
	if opts == nil {
		o := DefaultOpts
		opts = &o
	}
	f := opts.Freq
	if f == 0 {
		f = DefaultFreq
	}
	c, err := p.Connect(f, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("hub12: failed to connect: %w", err)
	}
	return New([]conn.Conn{c}, pins, opts)
}

// New returns a Dev streaming through chains.
//
// chains holds either one connection shared by every chain or one connection
// per chain. The display is flushed and left dark. opts can be nil to use
// DefaultOpts.
func New(chains []conn.Conn, pins *Pins, opts *Opts) (*Dev, error) {
	if opts == nil {
		o := DefaultOpts
		opts = &o
	}
	topo := geometry.Topology{
		Width:     orDefault(opts.W, DefaultOpts.W),
		Height:    orDefault(opts.H, DefaultOpts.H),
		PanelsX:   orDefault(opts.PanelsX, 1),
		PanelsY:   orDefault(opts.PanelsY, 1),
		Chaining:  opts.Chaining,
		ScanRatio: orDefault(opts.ScanRatio, DefaultOpts.ScanRatio),
		Lines:     orDefault(opts.Lines, 1),
	}
	m, err := geometry.New(topo, geometry.Transform{Rotate: opts.Rotate, Flip: opts.Flip})
	if err != nil {
		return nil, fmt.Errorf("hub12: %w", err)
	}
	buf, err := bitplane.New(m, &bitplane.Opts{
		Depth:  opts.Depth,
		Double: opts.DoubleBuffer,
		Invert: opts.Invert,
		Gamma:  opts.Gamma,
	})
	if err != nil {
		return nil, fmt.Errorf("hub12: %w", err)
	}

	if len(chains) != 1 && len(chains) != topo.Lines {
		return nil, fmt.Errorf("hub12: got %d connections for %d lines", len(chains), topo.Lines)
	}
	for i, c := range chains {
		if c == nil {
			return nil, fmt.Errorf("hub12: connection %d is nil", i)
		}
	}
	if pins == nil || pins.OE == nil {
		return nil, errors.New("hub12: OE pin is required")
	}
	if len(pins.Latch) != 1 && len(pins.Latch) != topo.Lines {
		return nil, fmt.Errorf("hub12: got %d latch pins for %d lines", len(pins.Latch), topo.Lines)
	}
	for i, p := range pins.Latch {
		if p == nil {
			return nil, fmt.Errorf("hub12: latch pin %d is nil", i)
		}
	}
	addr := pins.Addr[:topo.AddrBits()]
	for i, p := range addr {
		if p == nil {
			return nil, fmt.Errorf("hub12: address pin %c is required for 1/%d scan", 'A'+i, topo.ScanRatio)
		}
	}

	d := &Dev{
		chains:     chains,
		maxTx:      make([]int, len(chains)),
		oe:         pins.OE,
		latch:      pins.Latch,
		addr:       addr,
		interleave: len(chains) == 1 && len(pins.Latch) > 1,
		oeOn:       gpio.Low,
		oeOff:      gpio.High,
		latchOn:    gpio.High,
		latchOff:   gpio.Low,
		buf:        buf,
		off:        make([]byte, topo.RowSize()),
		clk:        opts.Clock,
		log:        zerolog.Nop(),
		muxDelay:   opts.MuxDelay,
		brightness: 255,
	}
	for i, c := range chains {
		if l, ok := c.(conn.Limits); ok {
			d.maxTx[i] = l.MaxTxSize()
		}
	}
	if opts.OEInvert {
		d.oeOn, d.oeOff = d.oeOff, d.oeOn
	}
	if opts.LatchInvert {
		d.latchOn, d.latchOff = d.latchOff, d.latchOn
	}
	if opts.Invert {
		for i := range d.off {
			d.off[i] = 0xFF
		}
	}
	if d.clk == nil {
		d.clk = clockwork.NewRealClock()
	}
	if opts.Logger != nil {
		d.log = *opts.Logger
	}
	d.SetShowTime(opts.ShowTime)
	d.SetFastUpdate(opts.FastUpdate)

	if err := d.Flush(); err != nil {
		return nil, err
	}
	d.log.Debug().
		Str("dev", d.String()).
		Int("planes", buf.Depth()).
		Int("lines", topo.Lines).
		Stringer("chaining", topo.Chaining).
		Bool("double", buf.Double()).
		Msg("display initialized")
	return d, nil
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// Display shows one plane of the active buffer, row by row, using the
// configured show time.
func (d *Dev) Display() error {
	return d.DisplayFor(d.showTime)
}

// DisplayFor shows one plane of the active buffer, row by row. Each row is
// lit for its share of show.
//
// Every call advances to the next plane, so Display must be called Depth
// times to show a full grayscale frame. A show of zero or less uses
// DefaultShowTime.
func (d *Dev) DisplayFor(show time.Duration) error {
	if d.halted {
		return errHalted
	}
	if show <= 0 {
		show = DefaultShowTime
	}
	if show > MaxShowTime {
		show = MaxShowTime
	}
	t := PlaneTime(show, d.plane, d.buf.Depth(), d.brightness)
	var err error
	if d.fast && d.brightness == 255 {
		err = d.scanFast(t)
	} else {
		err = d.scan(t)
	}
	if err != nil {
		return err
	}
	d.plane = (d.plane + 1) % d.buf.Depth()
	return nil
}

func (d *Dev) scan(t time.Duration) error {
	d.primed = false
	rows := d.buf.Mapper().Topology().ScanRatio
	for row := 0; row < rows; row++ {
		if err := d.selectRow(row); err != nil {
			return err
		}
		if err := d.load(d.buf.RowSlice(bitplane.Active, d.plane, row), true); err != nil {
			return err
		}
		if err := d.illuminate(t, nil); err != nil {
			return err
		}
	}
	return nil
}

// scanFast latches data shifted in while the previous row was lit, then
// shifts in the following row, or the first row of the next plane, while
// this one is lit.
func (d *Dev) scanFast(t time.Duration) error {
	rows := d.buf.Mapper().Topology().ScanRatio
	depth := d.buf.Depth()
	if !d.primed {
		if err := d.load(d.buf.RowSlice(bitplane.Active, d.plane, 0), false); err != nil {
			return err
		}
		d.primed = true
	}
	for row := 0; row < rows; row++ {
		next, plane := row+1, d.plane
		if next == rows {
			next, plane = 0, (plane+1)%depth
		}
		if err := d.selectRow(row); err != nil {
			return err
		}
		if err := d.latchAll(); err != nil {
			return err
		}
		err := d.illuminate(t, func() error {
			return d.load(d.buf.RowSlice(bitplane.Active, plane, next), false)
		})
		if err != nil {
			d.primed = false
			return err
		}
	}
	return nil
}

// selectRow drives the multiplexer address lines.
func (d *Dev) selectRow(row int) error {
	for i, p := range d.addr {
		l := gpio.Level(row>>uint(i)&1 == 1)
		if err := p.Out(l); err != nil {
			return fmt.Errorf("hub12: failed to drive address line %c: %w", 'A'+i, err)
		}
		if d.muxDelay[i] > 0 {
			d.hold(d.clk.Now(), d.muxDelay[i])
		}
	}
	return nil
}

// load shifts one scan row of every chain, line 0 first, and latches it when
// latch is set.
func (d *Dev) load(row []byte, latch bool) error {
	ls := len(row) / d.buf.Mapper().Topology().Lines
	switch {
	case d.interleave:
		// Every chain sees the same data; each keeps what it latches.
		for line, p := range d.latch {
			if err := d.tx(0, row[line*ls:(line+1)*ls]); err != nil {
				return err
			}
			if latch {
				if err := d.pulse(p); err != nil {
					return err
				}
			}
		}
		return nil
	case len(d.chains) == 1:
		if err := d.tx(0, row); err != nil {
			return err
		}
	default:
		for line := range d.chains {
			if err := d.tx(line, row[line*ls:(line+1)*ls]); err != nil {
				return err
			}
		}
	}
	if latch {
		return d.latchAll()
	}
	return nil
}

// tx writes b to chain i, split to the connection's transfer limit.
func (d *Dev) tx(i int, b []byte) error {
	c, max := d.chains[i], d.maxTx[i]
	for len(b) > 0 {
		n := len(b)
		if max > 0 && n > max {
			n = max
		}
		if err := c.Tx(b[:n], nil); err != nil {
			return fmt.Errorf("hub12: failed to write chain %d: %w", i, err)
		}
		b = b[n:]
	}
	return nil
}

func (d *Dev) latchAll() error {
	for _, p := range d.latch {
		if err := d.pulse(p); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dev) pulse(p gpio.PinOut) error {
	if err := p.Out(d.latchOn); err != nil {
		return fmt.Errorf("hub12: failed to latch: %w", err)
	}
	if err := p.Out(d.latchOff); err != nil {
		return fmt.Errorf("hub12: failed to latch: %w", err)
	}
	return nil
}

// illuminate enables the outputs for t. during, when set, runs while the row
// is lit and counts against t.
func (d *Dev) illuminate(t time.Duration, during func() error) error {
	if t <= 0 && during == nil {
		return nil
	}
	if err := d.oe.Out(d.oeOn); err != nil {
		return fmt.Errorf("hub12: failed to drive OE: %w", err)
	}
	start := d.clk.Now()
	if during != nil {
		if err := during(); err != nil {
			_ = d.oe.Out(d.oeOff)
			return err
		}
	}
	d.hold(start, t)
	if err := d.oe.Out(d.oeOff); err != nil {
		return fmt.Errorf("hub12: failed to drive OE: %w", err)
	}
	return nil
}

// hold spins until t has elapsed since start. Sleeping is too coarse for
// microsecond windows.
func (d *Dev) hold(start time.Time, t time.Duration) {
	for d.clk.Now().Sub(start) < t {
	}
}

// Flush shifts unlit data into every chain and latches it. OE stays off.
func (d *Dev) Flush() error {
	if d.halted {
		return errHalted
	}
	d.primed = false
	if err := d.oe.Out(d.oeOff); err != nil {
		return fmt.Errorf("hub12: failed to drive OE: %w", err)
	}
	return d.load(d.off, true)
}

// SetShowTime sets the row budget used by Display. Zero or negative values
// restore DefaultShowTime.
func (d *Dev) SetShowTime(show time.Duration) {
	if show <= 0 {
		show = DefaultShowTime
	}
	if show > MaxShowTime {
		show = MaxShowTime
	}
	d.showTime = show
}

// ShowTime returns the row budget used by Display.
func (d *Dev) ShowTime() time.Duration { return d.showTime }

// SetBrightness scales the illumination time, 255 being the full budget.
func (d *Dev) SetBrightness(b uint8) { d.brightness = b }

// Brightness returns the current brightness.
func (d *Dev) Brightness() uint8 { return d.brightness }

// SetFastUpdate enables streaming the next row while the current one is lit.
// It only takes effect at brightness 255 and is refused when chains sharing
// one connection latch separately.
func (d *Dev) SetFastUpdate(on bool) {
	if on && d.interleave {
		d.log.Warn().
			Int("latches", len(d.latch)).
			Msg("fast update needs one connection per latch, disabled")
		on = false
	}
	d.fast = on
	d.primed = false
}

// FastUpdate reports whether fast update is enabled.
func (d *Dev) FastUpdate() bool { return d.fast }

// SetRotate rotates the logical drawing area by 90°. Buffer contents are kept
// as they are.
func (d *Dev) SetRotate(rotate bool) {
	tr := d.buf.Mapper().Transform()
	tr.Rotate = rotate
	d.setTransform(tr)
}

// SetFlip mirrors the logical drawing area horizontally.
func (d *Dev) SetFlip(flip bool) {
	tr := d.buf.Mapper().Transform()
	tr.Flip = flip
	d.setTransform(tr)
}

func (d *Dev) setTransform(tr geometry.Transform) {
	d.buf.SetTransform(tr)
}

// SetMuxDelay sets the settle time after driving address line (0 for A up to
// 4 for E).
func (d *Dev) SetMuxDelay(line int, delay time.Duration) error {
	if line < 0 || line >= len(d.muxDelay) {
		return fmt.Errorf("hub12: no address line %d", line)
	}
	d.muxDelay[line] = delay
	return nil
}

// ShowBuffer swaps the active and inactive buffers. Without double buffering
// it does nothing.
//
// Swap when Plane returns 0. A swap in the middle of a cycle shows the low
// planes of one frame with the high planes of the other.
func (d *Dev) ShowBuffer() {
	d.buf.Swap()
	d.primed = false
}

// CopyBuffer copies the active buffer onto the inactive one, or the other way
// around when reverse is set.
func (d *Dev) CopyBuffer(reverse bool) {
	d.buf.Copy(reverse)
	if reverse {
		d.primed = false
	}
}

// Clear clears the inactive buffer.
func (d *Dev) Clear() {
	d.ClearBuffer(bitplane.Inactive)
}

// ClearBuffer clears the selected buffer.
func (d *Dev) ClearBuffer(sel bitplane.Selector) {
	d.buf.Clear(sel)
	if sel != bitplane.Inactive || !d.buf.Double() {
		d.primed = false
	}
}

// SetPixel draws into the inactive buffer. Out of bounds pixels are ignored.
func (d *Dev) SetPixel(x, y int, level uint8) {
	d.buf.Set(x, y, level, bitplane.Inactive)
}

// Pixel returns the level displayed at (x, y).
func (d *Dev) Pixel(x, y int) uint8 {
	return d.buf.At(x, y, bitplane.Active)
}

// PixelIn returns the level stored at (x, y) in the selected buffer.
func (d *Dev) PixelIn(x, y int, sel bitplane.Selector) uint8 {
	return d.buf.At(x, y, sel)
}

// Plane returns the plane the next Display call shows.
func (d *Dev) Plane() int { return d.plane }

// Buffer returns the framebuffer.
func (d *Dev) Buffer() *bitplane.Buffer { return d.buf }

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return color.GrayModel
}

// Bounds implements display.Drawer. It returns the logical drawing area.
func (d *Dev) Bounds() image.Rectangle {
	return d.buf.Mapper().Bounds()
}

// Draw implements display.Drawer. It renders src into the inactive buffer;
// call ShowBuffer to display it.
func (d *Dev) Draw(dst image.Rectangle, src image.Image, sp image.Point) error {
	if d.halted {
		return errHalted
	}
	if dst.Intersect(d.Bounds()).Empty() {
		return nil
	}
	draw.Draw(d.buf.Canvas(bitplane.Inactive), dst, src, sp, draw.Src)
	return nil
}

// Halt blanks the display. Display, Flush and Draw fail afterwards.
func (d *Dev) Halt() error {
	if d.halted {
		return nil
	}
	err := d.Flush()
	d.halted = true
	return err
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	t := d.buf.Mapper().Topology()
	return fmt.Sprintf("hub12.Dev{%dx%d 1/%d}", t.Width, t.Height, t.ScanRatio)
}
