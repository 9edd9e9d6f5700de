// Package di contains dependency injection tokens for the execution context.
package di

import (
	"github.com/apexarb/flasharb/business/execution/app"
	"github.com/apexarb/flasharb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Coordinator = di.NewToken[*app.Coordinator]("execution.Coordinator")
	Runner      = di.NewToken[*app.Runner]("execution.Runner")
)

// Private dependency tokens - internal to execution module
var (
	SequenceManager = di.NewToken[*app.SequenceManager]("execution:sequenceManager")
	Submitter       = di.NewToken[app.Submitter]("execution:submitter")
	SequenceSyncer  = di.NewToken[app.SequenceSyncer]("execution:sequenceSyncer")
)

// Helper functions for type-safe access
func GetCoordinator(c di.ServiceRegistry) *app.Coordinator {
	return di.GetToken(c, Coordinator)
}

func GetRunner(c di.ServiceRegistry) *app.Runner {
	return di.GetToken(c, Runner)
}

func GetSequenceManager(c di.ServiceRegistry) *app.SequenceManager {
	return di.GetToken(c, SequenceManager)
}

func GetSubmitter(c di.ServiceRegistry) app.Submitter {
	return di.GetToken(c, Submitter)
}

func GetSequenceSyncer(c di.ServiceRegistry) app.SequenceSyncer {
	return di.GetToken(c, SequenceSyncer)
}
