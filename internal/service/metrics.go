package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// assignmentAttempts counts child-assignment attempts by protocol state.
	// Labels: outcome (attempting, committed, conflicted, failed)
	assignmentAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carpool",
		Subsystem: "assignments",
		Name:      "attempts_total",
		Help:      "Child seat assignment attempts by protocol state",
	}, []string{"outcome"})

	// slotReads counts slot detail reads, the point where a caller observes
	// the free seats it will later try to take.
	slotReads = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "carpool",
		Name:      "slot_reads_total",
		Help:      "Slot detail reads",
	})

	// slotLifecycle counts slot creation and deletion.
	// Labels: event (created, deleted)
	slotLifecycle = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carpool",
		Subsystem: "slots",
		Name:      "lifecycle_total",
		Help:      "Schedule slots created and deleted",
	}, []string{"event"})

	// invariantDefects counts computations that could only come from
	// corrupted state, such as negative free seats or occupancy drift.
	// Labels: kind (negative_available, counter_drift)
	invariantDefects = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carpool",
		Subsystem: "capacity",
		Name:      "invariant_defects_total",
		Help:      "Capacity invariant defects observed while serving requests",
	}, []string{"kind"})
)

const (
	eventSlotCreated = "created"
	eventSlotDeleted = "deleted"

	defectNegativeAvailable = "negative_available"
	defectCounterDrift      = "counter_drift"
)
