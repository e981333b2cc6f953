// Package docker reads raw container runtime statistics. Implementations
// return the runtime's text output untouched so that all parsing stays in
// the metrics aggregator.
package docker

import (
	"context"
	"fmt"

	constants "nselfadmin/config"
)

// Output formats shared by every provider. Each line describes one
// container, or one disk usage category for DiskUsage.
const (
	StatesFormat   = "{{.State}}\t{{.Status}}"
	ResourceFormat = "{{.CPUPerc}}\t{{.MemUsage}}"
	MemoryFormat   = "{{.MemUsage}}"
	NetworkFormat  = "{{.NetIO}}"
	DiskFormat     = "{{json .}}"
)

// Provider issues runtime calls and returns their raw output.
type Provider interface {
	// ContainerStates lists all containers as "state\tstatus" lines.
	ContainerStates(ctx context.Context) ([]byte, error)
	// ResourceUsage returns "cpu%\tused / limit" lines for running containers.
	ResourceUsage(ctx context.Context) ([]byte, error)
	// MemoryUsage returns "used / limit" lines for running containers.
	MemoryUsage(ctx context.Context) ([]byte, error)
	// NetworkIO returns cumulative "rx / tx" lines for running containers.
	NetworkIO(ctx context.Context) ([]byte, error)
	// DiskUsage returns one JSON record with a Size field per line.
	DiskUsage(ctx context.Context) ([]byte, error)
}

// NewProvider builds the provider named by kind.
func NewProvider(kind, binary string) (Provider, error) {
	switch kind {
	case "", constants.PROVIDER_CLI:
		return NewCLIProvider(binary), nil
	case constants.PROVIDER_ENGINE:
		return NewEngineProvider()
	default:
		return nil, fmt.Errorf("unknown runtime provider %q", kind)
	}
}
