package wininput

import "github.com/PachudermPack/UniMacro/internal/core/engine"

type RuntimeConfig struct {
	Engine engine.Config
	// FineTimer raises the system timer resolution to 1ms while running.
	FineTimer bool
}

type DeviceInfo struct {
	Path      string
	Name      string
	IsVirtual bool
	IsPointer bool
}
