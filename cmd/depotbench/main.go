// Profiling:
// go build ./cmd/depotbench
// ./depotbench -c depot.toml --profile cpu --rounds 50
// go tool pprof -http=":8000" ./depotbench cpu.pprof

package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/profile"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/TheBitDrifter/depot"
)

type Position struct {
	X, Y float64
}

type Velocity struct {
	X, Y float64
}

type Marker struct{}

type Likes struct {
	Weight int
}

var (
	position = depot.FactoryNewComponent[Position]()
	velocity = depot.FactoryNewComponent[Velocity]()
	marker   = depot.FactoryNewTag[Marker]()
	likes    = depot.FactoryNewComponent[Likes]()
)

type options struct {
	configPath string
	profile    string
	rounds     int
	entities   int
	frames     int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:          "depotbench",
		Short:        "Run a movement workload against a depot world",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.OutOrStdout(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "TOML config file")
	f.StringVar(&opts.profile, "profile", "", "profile mode: cpu or mem")
	f.IntVar(&opts.rounds, "rounds", 10, "worlds to build and tear down")
	f.IntVar(&opts.entities, "entities", 15, "entities per world")
	f.IntVar(&opts.frames, "frames", 100, "frames per world")
	return cmd
}

func run(out io.Writer, opts options) error {
	cfg := depot.DefaultConfig()
	if opts.configPath != "" {
		var err error
		if cfg, err = depot.LoadConfig(opts.configPath); err != nil {
			return err
		}
	}
	logger, err := depot.NewLogger(cfg.Logging, os.Stderr)
	if err != nil {
		return eris.Wrap(err, "logger")
	}

	switch opts.profile {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		return eris.Errorf("unknown profile mode %q", opts.profile)
	}

	start := time.Now()
	var visited int
	for round := range opts.rounds {
		n, err := runWorld(cfg, logger, opts.entities, opts.frames)
		if err != nil {
			return eris.Wrapf(err, "round %d", round)
		}
		visited += n
	}
	logger.Info().
		Int("rounds", opts.rounds).
		Int("visited", visited).
		Dur("elapsed", time.Since(start)).
		Msg("workload finished")
	fmt.Fprintf(out, "visited %d entities in %s\n", visited, time.Since(start))
	return nil
}

// runWorld populates a world, moves every odd entity once per frame and
// relates the movers to the tagged leader. It returns the number of entities
// the movement query visited.
func runWorld(cfg depot.Config, logger zerolog.Logger, entities, frames int) (int, error) {
	w := depot.NewWorld(depot.WithConfig(cfg), depot.WithLogger(logger))
	defer w.Free()

	ids, err := w.NewEntities(entities)
	if err != nil {
		return 0, err
	}
	for i, e := range ids {
		if i%2 == 0 {
			continue
		}
		if err := position.Set(w, e, Position{X: float64(i), Y: float64(i)}); err != nil {
			return 0, err
		}
		if err := velocity.Set(w, e, Velocity{X: float64(i), Y: float64(i)}); err != nil {
			return 0, err
		}
	}
	if len(ids) > 3 {
		if err := marker.Add(w, ids[3]); err != nil {
			return 0, err
		}
	}

	leader := depot.TagTarget(w, marker)
	d, err := depot.Factory.NewQuery().And(position, velocity).Build(w)
	if err != nil {
		return 0, err
	}
	defer func() { d.Free() }()
	movers, err := d.Collect()
	if err != nil {
		return 0, err
	}
	for _, e := range movers {
		if _, err := depot.SetRelation(w, e, likes, leader, Likes{Weight: int(e)}); err != nil {
			return 0, err
		}
	}

	// Relations changed the presence set; rebuild before iterating.
	d.Free()
	rebuilt, err := depot.Factory.NewQuery().And(position, velocity).Build(w)
	if err != nil {
		return 0, err
	}
	d = rebuilt

	visited := 0
	clock := time.Now()
	cursor := d.Cursor()
	for range frames {
		if _, err := w.TickFrame(clock); err != nil {
			return visited, err
		}
		clock = clock.Add(16 * time.Millisecond)
		for range cursor.Entities() {
			pos := position.GetFromCursor(cursor)
			vel := velocity.GetFromCursor(cursor)
			pos.X += vel.X
			pos.Y += vel.Y
			visited++
		}
		if err := cursor.Err(); err != nil {
			return visited, err
		}
	}

	stats := w.Stats()
	logger.Debug().
		Int("entities", stats.Entities).
		Int("relations", stats.Relations).
		Int("arena_blocks", stats.Arena.Blocks).
		Msg("world finished")
	return visited, nil
}
