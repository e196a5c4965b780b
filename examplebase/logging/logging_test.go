package logging

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewWithWriter(buf, "pushconstants", log.WarnLevel)

	l.Info("hidden")
	assert.Empty(t, buf.String())

	l.Warn("visible", "image", 2)
	assert.Contains(t, buf.String(), "visible")
	assert.Contains(t, buf.String(), "image=2")
	assert.Contains(t, buf.String(), "pushconstants")
}
