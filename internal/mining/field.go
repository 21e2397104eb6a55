// Package mining simulates the asteroid field a ship works through: rocks
// drift and wrap, get shot down, drop ore, and the field refills itself.
package mining

import (
	"math"
	"math/rand"
	"sort"

	"github.com/tomz197/asteroid-idle/internal/economy"
	"github.com/tomz197/asteroid-idle/internal/physics"
)

// Size is the size category of an asteroid.
type Size int

const (
	Small  Size = 1
	Medium Size = 2
	Large  Size = 3
)

var sizeRadius = map[Size]float64{
	Small:  1.5,
	Medium: 3.0,
	Large:  5.0,
}

var sizeSpeed = map[Size]float64{
	Small:  15.0,
	Medium: 10.0,
	Large:  6.0,
}

var sizeHP = map[Size]float64{
	Small:  1,
	Medium: 3,
	Large:  6,
}

// Base metal per rock, before mining_power.
var sizeOre = map[Size]float64{
	Small:  1,
	Medium: 3,
	Large:  8,
}

// Population weight of each size when keeping the field at its target.
var sizeWeight = map[Size]int{
	Small:  1,
	Medium: 2,
	Large:  4,
}

// Crystal carried by a crystalline rock, as a share of its metal.
const crystalShare = 0.25

const gridCellSize = 20.0

// Asteroid is a minable rock.
type Asteroid struct {
	ID          uint64
	X, Y        float64
	VX, VY      float64
	Size        Size
	Radius      float64
	HP          float64
	Crystalline bool
	destroyed   bool
}

// Ore returns the base loot of a.
func (a *Asteroid) Ore() economy.Amounts {
	ore := sizeOre[a.Size]
	out := economy.Amounts{economy.Metal: ore}
	if a.Crystalline {
		out[economy.Crystal] = ore * crystalShare
	}
	return out
}

// FieldConfig sizes a field.
type FieldConfig struct {
	Width, Height float64
	// Target is the population the field refills to, counted in size weights
	// (a large rock counts 4, medium 2, small 1).
	Target            int
	CrystallineChance float64
}

// Field is a wrapping world of asteroids. It is not safe for concurrent use.
type Field struct {
	cfg       FieldConfig
	rng       *rand.Rand
	asteroids []*Asteroid
	grid      *physics.SpatialGrid
	nextID    uint64
}

// NewField creates a field already populated to its target.
func NewField(cfg FieldConfig, rng *rand.Rand) *Field {
	if cfg.Target < 0 {
		cfg.Target = 0
	}
	f := &Field{
		cfg:  cfg,
		rng:  rng,
		grid: physics.NewSpatialGrid(cfg.Width, cfg.Height, gridCellSize),
	}
	for f.population() < f.cfg.Target {
		size := f.sizeFor(f.cfg.Target - f.population())
		f.spawn(f.rng.Float64()*f.cfg.Width, f.rng.Float64()*f.cfg.Height, size, f.rng.Float64()*2*math.Pi)
	}
	f.reindex()
	return f
}

// Width returns the world width.
func (f *Field) Width() float64 { return f.cfg.Width }

// Height returns the world height.
func (f *Field) Height() float64 { return f.cfg.Height }

// Update moves every rock by dt seconds, drops destroyed ones and refills
// the field from its edges.
func (f *Field) Update(dt float64) {
	live := f.asteroids[:0]
	for _, a := range f.asteroids {
		if a.destroyed {
			continue
		}
		a.X = physics.Wrap(a.X+a.VX*dt, f.cfg.Width)
		a.Y = physics.Wrap(a.Y+a.VY*dt, f.cfg.Height)
		live = append(live, a)
	}
	clear(f.asteroids[len(live):])
	f.asteroids = live

	f.refill()
	f.reindex()
}

// Nearest returns up to limit live rocks within r of (x, y), closest first.
func (f *Field) Nearest(x, y, r float64, limit int) []*Asteroid {
	if limit <= 0 || r <= 0 {
		return nil
	}
	type hit struct {
		a  *Asteroid
		d2 float64
	}
	var hits []hit
	r2 := r * r
	f.grid.QueryRadius(x, y, r, func(i int) bool {
		a := f.asteroids[i]
		if a.destroyed {
			return false
		}
		if d2 := physics.WrappedDistanceSquared(x, y, a.X, a.Y, f.cfg.Width, f.cfg.Height); d2 <= r2 {
			hits = append(hits, hit{a, d2})
		}
		return false
	})
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].d2 != hits[j].d2 {
			return hits[i].d2 < hits[j].d2
		}
		return hits[i].a.ID < hits[j].a.ID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]*Asteroid, len(hits))
	for i, h := range hits {
		out[i] = h.a
	}
	return out
}

// Damage applies dmg to a. It reports whether a was destroyed by this hit;
// a destroyed rock larger than Small breaks into two smaller fragments.
func (f *Field) Damage(a *Asteroid, dmg float64) bool {
	if a.destroyed || dmg <= 0 {
		return false
	}
	a.HP -= dmg
	if a.HP > 0 {
		return false
	}
	a.destroyed = true
	if a.Size > Small {
		for i := 0; i < 2; i++ {
			f.spawn(a.X, a.Y, a.Size-1, f.rng.Float64()*2*math.Pi)
		}
	}
	return true
}

// Asteroids returns copies of the live rocks.
func (f *Field) Asteroids() []Asteroid {
	out := make([]Asteroid, 0, len(f.asteroids))
	for _, a := range f.asteroids {
		if !a.destroyed {
			out = append(out, *a)
		}
	}
	return out
}

// Len returns the number of live rocks.
func (f *Field) Len() int {
	n := 0
	for _, a := range f.asteroids {
		if !a.destroyed {
			n++
		}
	}
	return n
}

func (f *Field) population() int {
	total := 0
	for _, a := range f.asteroids {
		if !a.destroyed {
			total += sizeWeight[a.Size]
		}
	}
	return total
}

func (f *Field) sizeFor(deficit int) Size {
	switch {
	case deficit >= sizeWeight[Large]:
		return Large
	case deficit >= sizeWeight[Medium]:
		return Medium
	default:
		return Small
	}
}

// refill spawns rocks at a random edge, aimed roughly at the centre.
func (f *Field) refill() {
	count := f.population()
	for count < f.cfg.Target {
		size := f.sizeFor(f.cfg.Target - count)
		count += sizeWeight[size]

		w, h := f.cfg.Width, f.cfg.Height
		var x, y float64
		switch f.rng.Intn(4) {
		case 0:
			x, y = f.rng.Float64()*w, 0
		case 1:
			x, y = f.rng.Float64()*w, h-1
		case 2:
			x, y = 0, f.rng.Float64()*h
		default:
			x, y = w-1, f.rng.Float64()*h
		}
		angle := math.Atan2(h/2-y, w/2-x) + (f.rng.Float64()-0.5)*math.Pi/2
		f.spawn(x, y, size, angle)
	}
}

func (f *Field) spawn(x, y float64, size Size, angle float64) *Asteroid {
	f.nextID++
	speed := sizeSpeed[size]
	a := &Asteroid{
		ID:          f.nextID,
		X:           physics.Wrap(x, f.cfg.Width),
		Y:           physics.Wrap(y, f.cfg.Height),
		VX:          math.Cos(angle) * speed,
		VY:          math.Sin(angle) * speed,
		Size:        size,
		Radius:      sizeRadius[size],
		HP:          sizeHP[size],
		Crystalline: f.rng.Float64() < f.cfg.CrystallineChance,
	}
	f.asteroids = append(f.asteroids, a)
	return a
}

func (f *Field) reindex() {
	f.grid.Clear()
	for i, a := range f.asteroids {
		f.grid.Insert(a.X, a.Y, i)
	}
}
