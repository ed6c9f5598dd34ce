//go:build amdsmi

package amdsmi

import (
	"fmt"

	goamdsmi "github.com/amd/go_amd_smi"
)

// systemSMI wraps the goamdsmi binding. The binding exposes no comprehensive
// metrics call and no energy counter accessor, so Metrics and Energy report
// ErrUnsupported and the telemetry layer degrades to the narrow calls it can
// serve.
type systemSMI struct{}

// NewSystemSMI returns a handle backed by the real AMD SMI library.
func NewSystemSMI() SMI {
	return &systemSMI{}
}

func (s *systemSMI) Init() error {
	if !goamdsmi.GO_gpu_init() {
		return ErrUnavailable
	}
	return nil
}

func (s *systemSMI) Shutdown() error {
	if !goamdsmi.GO_gpu_shutdown() {
		return fmt.Errorf("amdsmi shutdown failed")
	}
	return nil
}

func (s *systemSMI) DeviceCount() (int, error) {
	return int(goamdsmi.GO_gpu_num_monitor_devices()), nil
}

func (s *systemSMI) Metrics(device int) (map[string]interface{}, error) {
	return nil, ErrUnsupported
}

func (s *systemSMI) Power(device int) (map[string]interface{}, error) {
	// Reported in microwatts.
	raw := goamdsmi.GO_gpu_dev_power_ave_get(device)
	return map[string]interface{}{
		"average_socket_power": float64(raw) / 1e6,
	}, nil
}

func (s *systemSMI) TemperatureCelsius(device int) (float64, error) {
	// Sensor 0 (edge), metric 0 (current), reported in millidegrees.
	raw := goamdsmi.GO_gpu_dev_temp_metric_get(device, 0, 0)
	return float64(raw) / 1000.0, nil
}

func (s *systemSMI) Activity(device int) (map[string]interface{}, error) {
	return map[string]interface{}{
		"gfx_activity": float64(goamdsmi.GO_gpu_dev_gpu_busy_percent_get(device)),
	}, nil
}

func (s *systemSMI) Energy(device int) (map[string]interface{}, error) {
	return nil, ErrUnsupported
}

func (s *systemSMI) VRAMUsage(device int) (used, total uint64, err error) {
	return 0, 0, ErrUnsupported
}
