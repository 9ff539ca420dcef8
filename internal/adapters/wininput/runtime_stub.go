//go:build !windows

package wininput

import (
	"fmt"
	"time"

	"github.com/PachudermPack/UniMacro/internal/core/engine"
	"github.com/PachudermPack/UniMacro/internal/core/keycode"
)

type Runtime struct{}

func NewRuntime(cfg RuntimeConfig, logger engine.Logger) (*Runtime, error) {
	return nil, fmt.Errorf("windows input runtime is only available on Windows")
}

func (r *Runtime) Start() error {
	return fmt.Errorf("windows input runtime is only available on Windows")
}

func (r *Runtime) Stop() {}

func (r *Runtime) Service() *engine.Service {
	return nil
}

func ListInputDevices() ([]DeviceInfo, error) {
	return nil, fmt.Errorf("windows input runtime is only available on Windows")
}

func CaptureNextKeyCode(timeout time.Duration) (keycode.Code, error) {
	return 0, fmt.Errorf("windows input runtime is only available on Windows")
}
