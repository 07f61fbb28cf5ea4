package logger

import (
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
)

func TestInitSetsLevel(t *testing.T) {
	l := Init("debug", "json")
	assert.Equal(t, hclog.Debug, l.GetLevel())
	assert.Same(t, l, Get())

	l = Init("warn", "text")
	assert.Equal(t, hclog.Warn, l.GetLevel())
	assert.Equal(t, "abrstream.pipeline", Named("pipeline").Name())
}
