package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManualOverrideDetected(t *testing.T) {

	assert := assert.New(t)

	// reported 21 against a commanded 20 is past the band
	assert.True(ManualOverride(f(21.0), f(20.0), false))
	assert.True(ManualOverride(f(19.0), f(20.0), false))
}

func TestManualOverrideWithinBand(t *testing.T) {

	assert := assert.New(t)

	assert.False(ManualOverride(f(20.4), f(20.0), false))
	assert.False(ManualOverride(f(20.5), f(20.0), false))
}

func TestManualOverrideIgnored(t *testing.T) {

	assert := assert.New(t)

	assert.False(ManualOverride(f(25.0), f(20.0), true))
}

func TestManualOverrideMissingValues(t *testing.T) {

	assert := assert.New(t)

	assert.False(ManualOverride(nil, f(20.0), false))
	assert.False(ManualOverride(f(21.0), nil, false))
	assert.False(ManualOverride(nil, nil, false))
}
