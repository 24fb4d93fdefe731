package vireo_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vireo-engine/vireo"
	"github.com/vireo-engine/vireo/assert"
	vireolog "github.com/vireo-engine/vireo/log"
	"github.com/vireo-engine/vireo/testutils"
)

type FuelComponent struct {
	Level int
}

func (FuelComponent) Name() string { return "fuelComponent" }

type fuelLogSystem struct{}

func (fuelLogSystem) Update(wCtx vireo.Context) error {
	wCtx.Logger().Log().Msg("fuel check")
	return nil
}

func TestWorldLogger(t *testing.T) {
	world := testutils.NewTestWorld(t)
	// replaces the internal logger with one that logs to the buf variable above.
	var buf bytes.Buffer
	bufLogger := zerolog.New(&buf)
	world.InjectLogger(&bufLogger)

	assert.NilError(t, vireo.RegisterComponent[FuelComponent](world))
	assert.NilError(t, vireo.RegisterSystems(world, fuelLogSystem{}))

	vireolog.World(&bufLogger, world, zerolog.InfoLevel)
	jsonWorldInfoString := `{
		"level":"info",
		"total_components":1,
		"components":[
			{
				"component_id":1,
				"component_name":"fuelComponent"
			}
		],
		"total_systems":1,
		"systems":["vireo_test.fuelLogSystem"]
	}`
	assert.JSONEq(t, jsonWorldInfoString, buf.String())

	assert.NilError(t, world.LoadState())

	// Entity creation and component attachment are logged at debug level.
	buf.Reset()
	wCtx := vireo.NewWorldContext(world)
	id, err := vireo.CreateEntity(wCtx, FuelComponent{Level: 3})
	assert.NilError(t, err)
	assert.Equal(t, vireo.EntityID(1), id)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.JSONEq(t, `{"level":"debug","components":[],"entity_id":1}`, lines[0])
	assert.JSONEq(t,
		`{"level":"debug","entity_id":1,"component_name":"fuelComponent","message":"component attached"}`,
		lines[1])

	// Log lines emitted from inside a system carry the system and phase names.
	buf.Reset()
	assert.NilError(t, world.Step(context.Background()))
	found := false
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		values := map[string]any{}
		if err := json.Unmarshal([]byte(line), &values); err != nil {
			continue
		}
		if values["message"] != "fuel check" {
			continue
		}
		found = true
		assert.Equal(t, "vireo_test.fuelLogSystem", values["system"])
		assert.Equal(t, "update", values["phase"])
	}
	assert.Assert(t, found, "no system log line found")
}
