package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestInValidRange(t *testing.T) {

	assert := assert.New(t)
	v := NewTemperatureValidator(2.0, zap.NewNop())

	assert.True(v.InValidRange(21.0))
	assert.True(v.InValidRange(MIN_VALID_TEMP))
	assert.True(v.InValidRange(MAX_VALID_TEMP))
	assert.False(v.InValidRange(-25.0))
	assert.False(v.InValidRange(72.0))
}

func TestPlausibleChange(t *testing.T) {

	assert := assert.New(t)
	v := NewTemperatureValidator(2.0, zap.NewNop())

	assert.True(v.PlausibleChange(21.0, 20.0, time.Minute))
	assert.True(v.PlausibleChange(20.0, 21.0, time.Minute))
	assert.False(v.PlausibleChange(25.0, 20.0, time.Minute))
	assert.True(v.PlausibleChange(25.0, 20.0, 10*time.Minute))
	assert.False(v.PlausibleChange(21.0, 20.0, 0))
}
