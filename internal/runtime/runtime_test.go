package runtime

import (
	"reflect"
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
)

func TestFormatPortMap(t *testing.T) {
	ports := nat.PortMap{
		"80/tcp": []nat.PortBinding{
			{HostIP: "0.0.0.0", HostPort: "8080"},
		},
		"5432/tcp": nil,
		"53/udp": []nat.PortBinding{
			{HostIP: "127.0.0.1", HostPort: "53"},
		},
	}

	got := FormatPortMap(ports)
	want := []string{
		"*:8080->80/tcp",
		"127.0.0.1:53->53/udp",
		"5432/tcp",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FormatPortMap = %v, want %v", got, want)
	}
}

func TestFormatPortMapEmpty(t *testing.T) {
	if got := FormatPortMap(nil); len(got) != 0 {
		t.Errorf("expected no entries, got %v", got)
	}
}

func TestCPUPercent(t *testing.T) {
	s := &container.StatsResponse{}
	s.PreCPUStats.CPUUsage.TotalUsage = 1000
	s.PreCPUStats.SystemUsage = 10000
	s.CPUStats.CPUUsage.TotalUsage = 2000
	s.CPUStats.SystemUsage = 20000
	s.CPUStats.OnlineCPUs = 4

	got := cpuPercent(s)
	want := 40.0 // (1000/10000) * 4 cpus * 100
	if got != want {
		t.Errorf("cpuPercent = %v, want %v", got, want)
	}
}

func TestCPUPercentNoDelta(t *testing.T) {
	s := &container.StatsResponse{}
	if got := cpuPercent(s); got != 0 {
		t.Errorf("cpuPercent on zero stats = %v, want 0", got)
	}
}

func TestNilClientDegradesCleanly(t *testing.T) {
	var c *Client
	if _, err := c.List(t.Context()); err == nil {
		t.Error("expected error from nil client List")
	}
	if _, err := c.IsRunning(t.Context(), "web"); err == nil {
		t.Error("expected error from nil client IsRunning")
	}
	if c.IsAvailable(t.Context()) {
		t.Error("nil client should not be available")
	}
}
