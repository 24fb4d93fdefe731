package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/vireo-engine/vireo"
	"github.com/vireo-engine/vireo/codec"
	"github.com/vireo-engine/vireo/example/comp"
	"github.com/vireo-engine/vireo/example/sys"
	"github.com/vireo-engine/vireo/vql"
)

// A tiny drone colony: a spawner creates entities, a reaper erases the expired
// ones, and a census reads the result at the end of each step. Run it with
// EXAMPLE_STEPS=100 VIREO_LOG_PRETTY=true to watch the population settle.
func main() {
	world, err := vireo.NewWorld()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create world")
	}

	vireo.MustRegisterComponent[comp.Position](world)
	vireo.MustRegisterComponent[comp.Lifetime](world)
	err = vireo.RegisterSystems(world, &sys.Spawner{PerStep: 3}, &sys.Reaper{}, &sys.Census{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register systems")
	}

	// 0 steps means run until SIGINT/SIGTERM.
	iterations := uint64(0)
	if raw := os.Getenv("EXAMPLE_STEPS"); raw != "" {
		iterations, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			log.Fatal().Err(err).Msgf("invalid EXAMPLE_STEPS value %q", raw)
		}
	}

	if err := world.Run(true, iterations, false); err != nil {
		log.Fatal().Err(err).Msg("step loop failed")
	}

	survivors, err := vql.Parse("CONTAINS(lifetime)", world.GetComponentByName)
	if err != nil {
		log.Fatal().Err(err).Msg("bad query")
	}
	population, err := world.Search(survivors).Count()
	if err != nil {
		log.Fatal().Err(err).Msg("query failed")
	}
	log.Info().Int("population", population).Uint64("steps", world.CurrentStep()).Msg("run complete")

	state, err := world.DebugState()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to dump state")
	}
	bz, err := codec.EncodeIndent(state)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to encode state")
	}
	fmt.Println(string(bz))
}
