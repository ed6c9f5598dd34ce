package telemetry

import (
	"errors"

	"amdmon/internal/amdsmi"
)

// mockSMI is a hand-written mock of the AMD SMI handle for testing the
// library-backed source without hardware.
type mockSMI struct {
	InitErr        error
	DeviceCountVal int
	DeviceCountErr error

	MetricsPayload map[string]interface{}
	MetricsErr     error

	PowerPayload map[string]interface{}
	PowerErr     error

	TemperatureVal float64
	TemperatureErr error

	ActivityPayload map[string]interface{}
	ActivityErr     error

	EnergyPayload map[string]interface{}
	EnergyErr     error

	VRAMUsed  uint64
	VRAMTotal uint64
	VRAMErr   error

	InitCalls     int
	ShutdownCalls int
}

var errMockFailure = errors.New("mock failure")

func newMockSMI(devices int) *mockSMI {
	return &mockSMI{
		DeviceCountVal: devices,
		MetricsErr:     errMockFailure,
		PowerErr:       errMockFailure,
		TemperatureErr: errMockFailure,
		ActivityErr:    errMockFailure,
		EnergyErr:      errMockFailure,
		VRAMErr:        errMockFailure,
	}
}

func (m *mockSMI) Init() error {
	m.InitCalls++
	return m.InitErr
}

func (m *mockSMI) Shutdown() error {
	m.ShutdownCalls++
	return nil
}

func (m *mockSMI) DeviceCount() (int, error) {
	return m.DeviceCountVal, m.DeviceCountErr
}

func (m *mockSMI) Metrics(int) (map[string]interface{}, error) {
	return m.MetricsPayload, m.MetricsErr
}

func (m *mockSMI) Power(int) (map[string]interface{}, error) {
	return m.PowerPayload, m.PowerErr
}

func (m *mockSMI) TemperatureCelsius(int) (float64, error) {
	return m.TemperatureVal, m.TemperatureErr
}

func (m *mockSMI) Activity(int) (map[string]interface{}, error) {
	return m.ActivityPayload, m.ActivityErr
}

func (m *mockSMI) Energy(int) (map[string]interface{}, error) {
	return m.EnergyPayload, m.EnergyErr
}

func (m *mockSMI) VRAMUsage(int) (used, total uint64, err error) {
	return m.VRAMUsed, m.VRAMTotal, m.VRAMErr
}

// assert mockSMI satisfies the interface
var _ amdsmi.SMI = (*mockSMI)(nil)
