// Package statsd is a helper package that wraps some common statsd methods.
// It hides the datadog dependency so if we decide to migrate away from datadog in the future, we only need to
// edit this single file. For example, the https://pkg.go.dev/github.com/cactus/go-statsd-client/statsd package roughly
// implements datadog's ClientInterface interface.
package statsd

import (
	"strings"
	"time"

	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

var (
	client     ddstatsd.ClientInterface = &ddstatsd.NoOpClient{}
	globalTags []string
)

func Client() ddstatsd.ClientInterface {
	return client
}

// EmitStepStat emits the elapsed time since start under the "step" metric, tagged
// with the phase of the step that produced it.
func EmitStepStat(start time.Time, phase string) {
	duration := time.Since(start)
	err := Client().Timing("step", duration, []string{phase}, 1)
	if err != nil {
		log.Logger.Warn().Msgf("failed to emit step stat: %v", err)
	}
}

// EmitEntityCount gauges the current number of live entities.
func EmitEntityCount(count int) {
	err := Client().Gauge("entities", float64(count), nil, 1)
	if err != nil {
		log.Logger.Warn().Msgf("failed to emit entity count: %v", err)
	}
}

func Init(address string, tags []string) error {
	if address == "" {
		return eris.New("address must not be empty")
	}
	opts := []ddstatsd.Option{
		// The statsd namespace is the prefix of all metrics
		ddstatsd.WithNamespace("vireo"),
	}
	if len(tags) > 0 {
		opts = append(opts, ddstatsd.WithTags(tags))
	}

	newClient, err := ddstatsd.New(address, opts...)
	if err != nil {
		return err
	}
	// Success! replace the global client
	client = newClient
	globalTags = tags
	return nil
}

// TraceTags returns the configured global tags in the key/value shape trace spans
// want, so step spans carry the same tags as the metrics.
func TraceTags() map[string]any {
	traceTags := make(map[string]any, len(globalTags))
	for _, tag := range globalTags {
		key, value := tagToTraceTag(tag)
		traceTags[key] = value
	}
	return traceTags
}

// tagToTraceTag splits a statsd-style "key:value" tag into a span tag key and value.
// A tag with no value (or no key) maps to a bare key with a nil value.
func tagToTraceTag(tag string) (string, any) {
	parts := strings.SplitN(tag, ":", 2)
	if len(parts) == 1 {
		return parts[0], nil
	}
	key, value := parts[0], parts[1]
	if key == "" {
		return value, nil
	}
	if value == "" {
		return key, nil
	}
	return key, value
}
