// Package colors hands out badge colours for centers, recycling the least
// recently used one when the palette runs out.
package colors

import "sync"

// Neutral is used for rows without a center.
const Neutral = "245"

// slots are ANSI 256 colour indexes that read well on light and dark
// terminals.
var slots = []string{"33", "35", "69", "99", "130", "136", "160", "166", "172", "31", "127"}

type entry struct {
	color    string
	lastUsed uint64
}

// Palette is safe for concurrent use.
type Palette struct {
	mu      sync.Mutex
	centers map[string]*entry
	tick    uint64
}

func NewPalette() *Palette {
	return &Palette{centers: make(map[string]*entry)}
}

// ColorFor returns the colour for center, assigning one on first use.
func (p *Palette) ColorFor(center string) string {
	if center == "" {
		return Neutral
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tick++

	if e, ok := p.centers[center]; ok {
		e.lastUsed = p.tick
		return e.color
	}
	return p.assign(center)
}

func (p *Palette) assign(center string) string {
	used := make(map[string]bool, len(p.centers))
	for _, e := range p.centers {
		used[e.color] = true
	}
	for _, c := range slots {
		if !used[c] {
			p.centers[center] = &entry{color: c, lastUsed: p.tick}
			return c
		}
	}

	// Full: recycle the least recently used colour.
	var oldest string
	var oldestTick uint64
	first := true
	for name, e := range p.centers {
		if first || e.lastUsed < oldestTick {
			oldest, oldestTick = name, e.lastUsed
			first = false
		}
	}
	recycled := p.centers[oldest].color
	delete(p.centers, oldest)
	p.centers[center] = &entry{color: recycled, lastUsed: p.tick}
	return recycled
}
