package device

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// PatternScheme prefixes the built-in test source, e.g. "pattern:320x240" or
// "pattern:64x48?frames=10".
const PatternScheme = "pattern"

var bars = [...]color.RGBA{
	{255, 255, 255, 255},
	{255, 255, 0, 255},
	{0, 255, 255, 255},
	{0, 255, 0, 255},
	{255, 0, 255, 255},
	{255, 0, 0, 255},
	{0, 0, 255, 255},
	{0, 0, 0, 255},
}

// Pattern generates scrolling colour bars. It needs no hardware and accepts
// width and height; frame rate is left to the producer's pacer.
type Pattern struct {
	mu            sync.Mutex
	width, height int
	limit         int // frames before end of stream, 0 = endless
	count         int
	open          bool
}

// NewPattern parses a "pattern:WxH[?frames=N]" source.
func NewPattern(source string) (*Pattern, error) {
	u, err := url.Parse(source)
	if err != nil {
		return nil, err
	}
	if u.Scheme != PatternScheme {
		return nil, fmt.Errorf("not a pattern source: %q", source)
	}

	p := &Pattern{width: 320, height: 240, open: true}
	if size := u.Opaque; size != "" {
		w, h, ok := strings.Cut(size, "x")
		if !ok {
			return nil, fmt.Errorf("pattern size %q: want WxH", size)
		}
		if p.width, err = strconv.Atoi(w); err != nil || p.width <= 0 {
			return nil, fmt.Errorf("pattern width %q", w)
		}
		if p.height, err = strconv.Atoi(h); err != nil || p.height <= 0 {
			return nil, fmt.Errorf("pattern height %q", h)
		}
	}
	if n := u.Query().Get("frames"); n != "" {
		if p.limit, err = strconv.Atoi(n); err != nil || p.limit < 0 {
			return nil, fmt.Errorf("pattern frames %q", n)
		}
	}
	return p, nil
}

func (p *Pattern) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

func (p *Pattern) Set(id SettingID, value float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return false
	}
	switch id {
	case FrameWidth:
		p.width = int(math.Round(value))
	case FrameHeight:
		p.height = int(math.Round(value))
	default:
		return false
	}
	return true
}

// Size returns the current frame size.
func (p *Pattern) Size() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.width, p.height
}

func (p *Pattern) Read() (*image.RGBA, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return nil, ErrEndOfStream
	}
	if p.limit > 0 && p.count >= p.limit {
		return nil, ErrEndOfStream
	}

	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	barWidth := max(p.width/len(bars), 1)
	shift := p.count
	for x := 0; x < p.width; x++ {
		c := bars[((x+shift)/barWidth)%len(bars)]
		for y := 0; y < p.height; y++ {
			img.SetRGBA(x, y, c)
		}
	}
	p.count++
	return img, nil
}

func (p *Pattern) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = false
	return nil
}
