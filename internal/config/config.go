package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/flavioheleno/hub12"
	"github.com/flavioheleno/hub12/bitplane"
	"github.com/flavioheleno/hub12/geometry"
)

type Panel struct {
	Width     int               `yaml:"width"`
	Height    int               `yaml:"height"`
	PanelsX   int               `yaml:"panels_x"`
	PanelsY   int               `yaml:"panels_y"`
	Chaining  geometry.Chaining `yaml:"chaining"` // "linear" | "zigzag-up" | "zigzag-down"
	ScanRatio int               `yaml:"scan_ratio"`
	Lines     int               `yaml:"lines"`
}

type Timing struct {
	ShowTimeUs int   `yaml:"show_time_us"`
	MuxDelayUs []int `yaml:"mux_delay_us,omitempty"` // A..E
	FastUpdate bool  `yaml:"fast_update"`
	Brightness int   `yaml:"brightness"` // 0..255
}

type Pins struct {
	OE    string   `yaml:"oe"`
	Latch []string `yaml:"latch"` // one, or one per line
	Addr  []string `yaml:"addr"`  // A..E
}

type SPI struct {
	Dev     string `yaml:"dev"`      // e.g. /dev/spidev0.0, empty for the first port
	SpeedHz int    `yaml:"speed_hz"` // e.g. 20000000
}

type Config struct {
	Driver string `yaml:"driver"` // "spi" | "sim"

	Panel        Panel   `yaml:"panel"`
	Depth        int     `yaml:"depth"`
	DoubleBuffer bool    `yaml:"double_buffer"`
	Gamma        float64 `yaml:"gamma,omitempty"` // 0 disables
	Rotate       bool    `yaml:"rotate"`
	Flip         bool    `yaml:"flip"`

	Invert      bool `yaml:"invert"`
	OEInvert    bool `yaml:"oe_invert"`
	LatchInvert bool `yaml:"latch_invert"`

	Timing Timing `yaml:"timing"`
	Pins   Pins   `yaml:"pins"`
	SPI    SPI    `yaml:"spi,omitempty"`
}

// Default describes one P10 panel wired to a Raspberry Pi.
func Default() *Config {
	return &Config{
		Driver: "spi",
		Panel: Panel{
			Width: 32, Height: 16,
			PanelsX: 1, PanelsY: 1,
			ScanRatio: 4, Lines: 1,
		},
		Depth:        bitplane.DefaultDepth,
		DoubleBuffer: true,
		Timing: Timing{
			ShowTimeUs: int(hub12.DefaultShowTime / time.Microsecond),
			Brightness: 255,
		},
		Pins: Pins{
			OE:    "GPIO22",
			Latch: []string{"GPIO27"},
			Addr:  []string{"GPIO23", "GPIO24"},
		},
		SPI: SPI{SpeedHz: int(hub12.DefaultFreq / physic.Hertz)},
	}
}

// Load reads path on top of Default.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// Validate checks the fields the driver cannot check itself.
func (c *Config) Validate() error {
	if c.Driver != "spi" && c.Driver != "sim" {
		return fmt.Errorf("config: unknown driver %q", c.Driver)
	}
	if c.Timing.Brightness < 0 || c.Timing.Brightness > 255 {
		return fmt.Errorf("config: brightness %d is not between 0 and 255", c.Timing.Brightness)
	}
	if len(c.Timing.MuxDelayUs) > 5 {
		return fmt.Errorf("config: %d mux delays for at most 5 address lines", len(c.Timing.MuxDelayUs))
	}
	if len(c.Pins.Addr) > 5 {
		return fmt.Errorf("config: %d address pins, at most 5", len(c.Pins.Addr))
	}
	if c.Gamma < 0 {
		return fmt.Errorf("config: negative gamma %g", c.Gamma)
	}
	return nil
}

// Opts converts c into driver options. Pins, clock and logger are left to
// the caller.
func (c *Config) Opts() *hub12.Opts {
	o := &hub12.Opts{
		W:            c.Panel.Width,
		H:            c.Panel.Height,
		PanelsX:      c.Panel.PanelsX,
		PanelsY:      c.Panel.PanelsY,
		Chaining:     c.Panel.Chaining,
		ScanRatio:    c.Panel.ScanRatio,
		Lines:        c.Panel.Lines,
		Depth:        c.Depth,
		DoubleBuffer: c.DoubleBuffer,
		Rotate:       c.Rotate,
		Flip:         c.Flip,
		FastUpdate:   c.Timing.FastUpdate,
		ShowTime:     time.Duration(c.Timing.ShowTimeUs) * time.Microsecond,
		Freq:         physic.Frequency(c.SPI.SpeedHz) * physic.Hertz,
		Invert:       c.Invert,
		OEInvert:     c.OEInvert,
		LatchInvert:  c.LatchInvert,
	}
	for i, us := range c.Timing.MuxDelayUs {
		if i < len(o.MuxDelay) {
			o.MuxDelay[i] = time.Duration(us) * time.Microsecond
		}
	}
	if c.Gamma > 0 {
		o.Gamma = bitplane.GammaTable(c.Gamma)
	}
	return o
}
