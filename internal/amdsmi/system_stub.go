//go:build !amdsmi

package amdsmi

// stubSMI is used when the binary is built without the amdsmi tag. Every
// call reports the library as unavailable; the availability probe then
// excludes the library-backed source for the session.
type stubSMI struct{}

// NewSystemSMI returns a stub handle; rebuild with -tags amdsmi for the real
// library binding.
func NewSystemSMI() SMI {
	return &stubSMI{}
}

func (s *stubSMI) Init() error     { return ErrUnavailable }
func (s *stubSMI) Shutdown() error { return nil }

func (s *stubSMI) DeviceCount() (int, error) { return 0, ErrUnavailable }

func (s *stubSMI) Metrics(int) (map[string]interface{}, error) {
	return nil, ErrUnavailable
}

func (s *stubSMI) Power(int) (map[string]interface{}, error) {
	return nil, ErrUnavailable
}

func (s *stubSMI) TemperatureCelsius(int) (float64, error) {
	return 0, ErrUnavailable
}

func (s *stubSMI) Activity(int) (map[string]interface{}, error) {
	return nil, ErrUnavailable
}

func (s *stubSMI) Energy(int) (map[string]interface{}, error) {
	return nil, ErrUnavailable
}

func (s *stubSMI) VRAMUsage(int) (used, total uint64, err error) {
	return 0, 0, ErrUnavailable
}
