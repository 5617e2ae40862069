// Package maps loads arena documents: wall segments and spawn points.
package maps

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/opd-ai/go-tanks/pkg/entity"
	"github.com/opd-ai/go-tanks/pkg/logging"
	"github.com/opd-ai/go-tanks/pkg/physics"
	"github.com/opd-ai/go-tanks/pkg/protocol"
)

// ErrNoValidMaps is returned when none of the configured maps could be loaded.
var ErrNoValidMaps = errors.New("no valid maps")

// ErrTooManyWalls is returned for maps that cannot fit in one MapChange message.
var ErrTooManyWalls = fmt.Errorf("map has more than %d walls", protocol.MaxListEntries)

// Map is a loaded arena.
type Map struct {
	Name   string
	Walls  []entity.Wall
	Spawns []entity.Spawn
}

type wallDoc struct {
	From   [2]float64  `yaml:"from"`
	To     [2]float64  `yaml:"to"`
	Normal *[2]float64 `yaml:"normal"`
}

type mapDoc struct {
	// Background is a sprite reference used by clients only.
	Background string       `yaml:"background"`
	Walls      []wallDoc    `yaml:"walls"`
	Spawns     [][2]float64 `yaml:"spawns"`
}

// Load reads one map document. YAML and JSON documents are both accepted.
// Zero-length walls are skipped with a warning.
func Load(path string, logger *logging.Logger) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map: %w", err)
	}
	var doc mapDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse map %s: %w", path, err)
	}

	m := &Map{Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))}
	for i, w := range doc.Walls {
		var normal physics.Vector2D
		if w.Normal != nil {
			normal = vec(*w.Normal)
		}
		wall, err := entity.NewWall(vec(w.From), vec(w.To), normal)
		if err != nil {
			logger.Warn(context.Background(), "skipping wall", "map", path, "index", i, "error", err.Error())
			continue
		}
		m.Walls = append(m.Walls, wall)
	}
	if len(m.Walls) > protocol.MaxListEntries {
		return nil, fmt.Errorf("map %s: %w", path, ErrTooManyWalls)
	}
	for _, s := range doc.Spawns {
		m.Spawns = append(m.Spawns, entity.Spawn{Position: vec(s)})
	}
	return m, nil
}

// LoadRandom loads every path and returns one of the valid maps chosen
// uniformly at random. Invalid maps are logged and skipped.
func LoadRandom(paths []string, rng *rand.Rand, logger *logging.Logger) (*Map, error) {
	var loaded []*Map
	for _, path := range paths {
		m, err := Load(path, logger)
		if err != nil {
			logger.Error(context.Background(), "failed to load map", err, "map", path)
			continue
		}
		loaded = append(loaded, m)
	}
	if len(loaded) == 0 {
		return nil, ErrNoValidMaps
	}
	m := loaded[rng.IntN(len(loaded))]
	logger.Info(context.Background(), "map selected", "map", m.Name, "walls", len(m.Walls), "spawns", len(m.Spawns))
	return m, nil
}

func vec(p [2]float64) physics.Vector2D {
	return physics.Vector2D{X: p[0], Y: p[1]}
}
