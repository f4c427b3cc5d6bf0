package boilermodbus

import (
	"fmt"
	"time"

	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

// BoilerRelay drives a boiler's heat demand contact through a modbus
// TCP coil.
type BoilerRelay interface {
	Open() error
	Close() error
	SetDemand(demand bool) error
	GetDemand() (bool, error)
}

type boilerRelayClient struct {
	client     *modbus.ModbusClient
	demandCoil uint16
	logger     *zap.Logger
}

func CreateBoilerRelay(ip string, port uint, unitId uint8, demandCoil uint16, timeout time.Duration,
	logger *zap.Logger) (BoilerRelay, error) {
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     fmt.Sprintf("tcp://%s:%d", ip, port),
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	if err := client.SetUnitId(unitId); err != nil {
		return nil, err
	}
	return &boilerRelayClient{
		client:     client,
		demandCoil: demandCoil,
		logger:     logger.With(zap.String("target", "boiler")).With(zap.Uint8("unit", unitId)),
	}, nil
}

func (r *boilerRelayClient) Open() error {
	if err := r.client.Open(); err != nil {
		return err
	}
	// read once to validate the coil address before reporting ready
	if _, err := r.client.ReadCoil(r.demandCoil); err != nil {
		r.client.Close()
		return fmt.Errorf("demand coil %d unreadable: %w", r.demandCoil, err)
	}
	return nil
}

func (r *boilerRelayClient) Close() error {
	return r.client.Close()
}

func (r *boilerRelayClient) SetDemand(demand bool) error {
	r.logger.Debug("write demand coil", zap.Bool("demand", demand))
	return r.client.WriteCoil(r.demandCoil, demand)
}

func (r *boilerRelayClient) GetDemand() (bool, error) {
	return r.client.ReadCoil(r.demandCoil)
}
