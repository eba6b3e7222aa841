package ramp

import (
	"github.com/BotBlake/jellybench/internal/benchmark"
	"github.com/BotBlake/jellybench/internal/catalog"
	"github.com/BotBlake/jellybench/pkg/models"
)

// Observer receives progress events from a running ramp. Implementations
// render them (console, logs); the ramp itself never prints. Callbacks run
// on the controller goroutine and must not block for long.
type Observer interface {
	// RampStarted fires once per hardware path, before the first batch.
	RampStarted(path models.HardwarePath, cases int)

	// BatchStarted fires before a batch of workers launches.
	BatchStarted(tc catalog.TestCase, workers int)

	// BatchFinished fires after every worker in a batch reached a
	// terminal state.
	BatchFinished(result benchmark.BatchResult)

	// RampFinished fires once per hardware path with the final record,
	// including aborted ramps.
	RampFinished(record benchmark.CapacityRecord)
}

// nopObserver is the default when no observer is configured.
type nopObserver struct{}

func (nopObserver) RampStarted(models.HardwarePath, int) {}
func (nopObserver) BatchStarted(catalog.TestCase, int) {}
func (nopObserver) BatchFinished(benchmark.BatchResult) {}
func (nopObserver) RampFinished(benchmark.CapacityRecord) {}
