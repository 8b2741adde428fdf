package sync

import (
	metrics "github.com/rcrowley/go-metrics"
)

// Meters named per SPEC_FULL.md §4 ("sync duration / selection /
// lock-contention meters, teacher's metrics.Meter idiom"), registered in
// the default go-metrics registry so a process wiring a reporter (or the
// prometheus bridge in cmd/walletd) picks them up without this package
// knowing about the exporter.
var (
	syncDurationTimer = metrics.NewRegisteredTimer("wallet/sync/duration", metrics.DefaultRegistry)
	syncErrorMeter     = metrics.NewRegisteredMeter("wallet/sync/errors", metrics.DefaultRegistry)
	newOutputMeter     = metrics.NewRegisteredMeter("wallet/sync/new_outputs", metrics.DefaultRegistry)
	spentOutputMeter   = metrics.NewRegisteredMeter("wallet/sync/spent_outputs", metrics.DefaultRegistry)
)
