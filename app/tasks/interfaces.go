package tasks

import (
	"icalagenda/app/ical"
)

type SchedulerInterface interface {
	Start()
	Stop()
	TriggerRefresh()
	Subscribe() <-chan struct{}
	Snapshot() [][]ical.EventOccurrence
}
