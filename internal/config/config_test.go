package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 3*time.Second, cfg.HandshakeStepTimeout)
	assert.Equal(t, 2*time.Second, cfg.RPCTimeout)
	assert.Equal(t, 20, cfg.MTU)
	assert.Equal(t, CounterInformational, cfg.RXCounterPolicy)
}

func TestApplyValuesOverridesDefaults(t *testing.T) {
	cfg := Default()
	applyValues(map[string]string{
		"SCOOTERBLE_MTU":               "23",
		"SCOOTERBLE_RX_COUNTER_POLICY": "monotonic",
		"SCOOTERBLE_RPC_TIMEOUT":       "5s",
	}, &cfg)

	assert.Equal(t, 23, cfg.MTU)
	assert.Equal(t, CounterMonotonic, cfg.RXCounterPolicy)
	assert.Equal(t, 5*time.Second, cfg.RPCTimeout)
}

func TestApplyValuesIgnoresGarbage(t *testing.T) {
	cfg := Default()
	applyValues(map[string]string{
		"SCOOTERBLE_MTU":         "not-a-number",
		"SCOOTERBLE_RPC_TIMEOUT": "not-a-duration",
	}, &cfg)
	assert.Equal(t, Default().MTU, cfg.MTU)
	assert.Equal(t, Default().RPCTimeout, cfg.RPCTimeout)
}
