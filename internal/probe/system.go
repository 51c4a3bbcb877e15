package probe

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/alexisbeaulieu97/lorikeet/internal/config"
)

type systemProbe struct {
	selector string
}

// Run samples the host metric named by the selector and renders it as a
// decimal string.
func (p *systemProbe) Run(ctx context.Context, rt *Runtime) (string, error) {
	switch p.selector {
	case config.SystemLoadAvg1m, config.SystemLoadAvg5m, config.SystemLoadAvg15m:
		avg, err := load.AvgWithContext(ctx)
		if err != nil {
			return "", fmt.Errorf("sampling load average: %w", err)
		}
		switch p.selector {
		case config.SystemLoadAvg1m:
			return formatFloat(avg.Load1), nil
		case config.SystemLoadAvg5m:
			return formatFloat(avg.Load5), nil
		default:
			return formatFloat(avg.Load15), nil
		}

	case config.SystemMemAvailable, config.SystemMemFree, config.SystemMemTotal:
		vm, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil {
			return "", fmt.Errorf("sampling memory: %w", err)
		}
		switch p.selector {
		case config.SystemMemAvailable:
			return formatUint(vm.Available), nil
		case config.SystemMemFree:
			return formatUint(vm.Free), nil
		default:
			return formatUint(vm.Total), nil
		}

	case config.SystemDiskFree, config.SystemDiskTotal:
		usage, err := disk.UsageWithContext(ctx, "/")
		if err != nil {
			return "", fmt.Errorf("sampling disk: %w", err)
		}
		if p.selector == config.SystemDiskFree {
			return formatUint(usage.Free), nil
		}
		return formatUint(usage.Total), nil

	default:
		return "", fmt.Errorf("unknown system selector %q", p.selector)
	}
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func formatUint(value uint64) string {
	return strconv.FormatUint(value, 10)
}
