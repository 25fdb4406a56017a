package lifecycle

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Component is a long-running part of the process, started once and stopped
// during shutdown.
type Component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type entry struct {
	name      string
	component Component
}

// Runtime starts registered components in registration order and stops them
// in reverse, so a later component can rely on an earlier one for its whole
// lifetime. A start failure rolls the already started components back.
type Runtime struct {
	entries []entry
}

func NewRuntime() *Runtime {
	return &Runtime{}
}

func (r *Runtime) Register(name string, component Component) {
	if component == nil {
		return
	}
	r.entries = append(r.entries, entry{name: name, component: component})
}

func (r *Runtime) Start(ctx context.Context) error {
	for i, e := range r.entries {
		log.WithField("component", e.name).Debug("starting component")
		if err := e.component.Start(ctx); err != nil {
			_ = stopEntries(ctx, r.entries[:i])
			return errors.WithMessagef(err, "cant start %s", e.name)
		}
	}
	return nil
}

func (r *Runtime) Stop(ctx context.Context) error {
	return stopEntries(ctx, r.entries)
}

// stopEntries keeps going past failures so every component gets its shutdown
// call; the first failure is returned, later ones are only logged.
func stopEntries(ctx context.Context, entries []entry) error {
	var firstErr error
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		log.WithField("component", e.name).Debug("stopping component")
		if err := e.component.Stop(ctx); err != nil {
			log.WithError(err).WithField("component", e.name).Error("cant stop component")
			if firstErr == nil {
				firstErr = errors.WithMessagef(err, "cant stop %s", e.name)
			}
		}
	}
	return firstErr
}
