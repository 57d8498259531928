package sched

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceUnitContents(t *testing.T) {
	rendered := fmt.Sprintf(serviceTemplate, "/usr/local/bin/dockhand")

	assert.Contains(t, rendered, "ExecStart=/usr/local/bin/dockhand backup")
	assert.Contains(t, rendered, "Type=oneshot")
	assert.Contains(t, rendered, "After=docker.service")
}

func TestTimerUnitContents(t *testing.T) {
	assert.Contains(t, timerContents, "OnCalendar=*-*-* 03:30:00")
	assert.Contains(t, timerContents, "RandomizedDelaySec=30m")
	assert.Contains(t, timerContents, "Persistent=true")
	assert.Contains(t, timerContents, "WantedBy=timers.target")
}

func TestUnitNamesMatch(t *testing.T) {
	// The timer fires the service of the same stem.
	assert.Equal(t,
		strings.TrimSuffix(timerUnit, ".timer"),
		strings.TrimSuffix(serviceUnit, ".service"))
}
