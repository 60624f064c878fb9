package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	dockerclient "github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
	"github.com/docker/go-units"

	"github.com/hostdeck/hostdeck/internal/config"
)

const stopTimeout = 30 // seconds

// Client wraps the Docker daemon connection used for container lifecycle
// operations and status queries.
type Client struct {
	docker    *dockerclient.Client
	available bool
}

var instance *Client

// Connect establishes the daemon connection and stores it as the process-wide
// client. A failed connection is not fatal; the console starts degraded and
// reports the runtime as unavailable.
func Connect(ctx context.Context) error {
	c := &Client{}
	if err := c.initialize(ctx); err != nil {
		instance = c
		return err
	}
	instance = c
	return nil
}

// Get returns the process-wide client, or nil before Connect.
func Get() *Client {
	return instance
}

func (c *Client) initialize(ctx context.Context) error {
	var opts []dockerclient.Opt
	opts = append(opts, dockerclient.FromEnv)
	opts = append(opts, dockerclient.WithAPIVersionNegotiation())
	if config.Cfg.DockerHost != "" {
		opts = append(opts, dockerclient.WithHost(config.Cfg.DockerHost))
	}

	var err error
	c.docker, err = dockerclient.NewClientWithOpts(opts...)
	if err != nil {
		return fmt.Errorf("docker client: %w", err)
	}

	if _, err = c.docker.Ping(ctx); err != nil {
		return fmt.Errorf("docker ping: %w", err)
	}

	c.available = true
	log.Println("Docker daemon connected")
	return nil
}

// IsAvailable reports whether the daemon answered the last ping. It re-pings
// so a daemon restart is picked up without restarting the console.
func (c *Client) IsAvailable(ctx context.Context) bool {
	if c == nil || c.docker == nil {
		return false
	}
	_, err := c.docker.Ping(ctx)
	c.available = err == nil
	return c.available
}

// IsRunning reports whether the named container exists and is running.
// A missing container is not an error; it is simply not running.
func (c *Client) IsRunning(ctx context.Context, ref string) (bool, error) {
	if c == nil || c.docker == nil {
		return false, fmt.Errorf("container runtime unavailable")
	}
	inspect, err := c.docker.ContainerInspect(ctx, ref)
	if err != nil {
		if dockerclient.IsErrNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("inspect container %s: %w", ref, err)
	}
	return inspect.State != nil && inspect.State.Running, nil
}

// ContainerInfo is the list/detail view of a container exposed over the API.
type ContainerInfo struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Image   string   `json:"image"`
	State   string   `json:"state"`
	Status  string   `json:"status"`
	Ports   []string `json:"ports"`
	Created int64    `json:"created"`
}

// List returns all containers on the host, running or not.
func (c *Client) List(ctx context.Context) ([]ContainerInfo, error) {
	if c == nil || c.docker == nil {
		return nil, fmt.Errorf("container runtime unavailable")
	}
	summaries, err := c.docker.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	infos := make([]ContainerInfo, 0, len(summaries))
	for _, s := range summaries {
		name := ""
		if len(s.Names) > 0 {
			name = strings.TrimPrefix(s.Names[0], "/")
		}
		infos = append(infos, ContainerInfo{
			ID:      s.ID,
			Name:    name,
			Image:   s.Image,
			State:   s.State,
			Status:  s.Status,
			Ports:   c.portBindings(ctx, s.ID),
			Created: s.Created,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// portBindings renders a container's published ports as "host->container/proto"
// strings. Inspect failures degrade to an empty list rather than failing the
// whole listing.
func (c *Client) portBindings(ctx context.Context, id string) []string {
	inspect, err := c.docker.ContainerInspect(ctx, id)
	if err != nil || inspect.NetworkSettings == nil {
		return nil
	}
	return FormatPortMap(inspect.NetworkSettings.Ports)
}

// FormatPortMap flattens a nat.PortMap into sorted display strings.
func FormatPortMap(ports nat.PortMap) []string {
	var out []string
	for port, bindings := range ports {
		if len(bindings) == 0 {
			out = append(out, fmt.Sprintf("%s/%s", port.Port(), port.Proto()))
			continue
		}
		for _, b := range bindings {
			host := b.HostIP
			if host == "" || host == "0.0.0.0" {
				host = "*"
			}
			out = append(out, fmt.Sprintf("%s:%s->%s/%s", host, b.HostPort, port.Port(), port.Proto()))
		}
	}
	sort.Strings(out)
	return out
}

func (c *Client) Start(ctx context.Context, ref string) error {
	if c == nil || c.docker == nil {
		return fmt.Errorf("container runtime unavailable")
	}
	return c.docker.ContainerStart(ctx, ref, container.StartOptions{})
}

func (c *Client) Stop(ctx context.Context, ref string) error {
	if c == nil || c.docker == nil {
		return fmt.Errorf("container runtime unavailable")
	}
	timeout := stopTimeout
	return c.docker.ContainerStop(ctx, ref, container.StopOptions{Timeout: &timeout})
}

func (c *Client) Restart(ctx context.Context, ref string) error {
	if c == nil || c.docker == nil {
		return fmt.Errorf("container runtime unavailable")
	}
	timeout := stopTimeout
	return c.docker.ContainerRestart(ctx, ref, container.StopOptions{Timeout: &timeout})
}

// ContainerStats is a point-in-time resource snapshot for one container.
type ContainerStats struct {
	CPUPercent  float64 `json:"cpu_percent"`
	MemoryUsage uint64  `json:"memory_usage"`
	MemoryLimit uint64  `json:"memory_limit"`
	MemoryHuman string  `json:"memory_human"`
}

// Stats takes a one-shot stats sample of the named container.
func (c *Client) Stats(ctx context.Context, ref string) (*ContainerStats, error) {
	if c == nil || c.docker == nil {
		return nil, fmt.Errorf("container runtime unavailable")
	}

	resp, err := c.docker.ContainerStatsOneShot(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("stats for %s: %w", ref, err)
	}
	defer resp.Body.Close()

	var raw container.StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode stats for %s: %w", ref, err)
	}

	stats := &ContainerStats{
		CPUPercent:  cpuPercent(&raw),
		MemoryUsage: raw.MemoryStats.Usage,
		MemoryLimit: raw.MemoryStats.Limit,
	}
	stats.MemoryHuman = fmt.Sprintf("%s / %s",
		units.HumanSize(float64(stats.MemoryUsage)),
		units.HumanSize(float64(stats.MemoryLimit)))
	return stats, nil
}

func cpuPercent(s *container.StatsResponse) float64 {
	cpuDelta := float64(s.CPUStats.CPUUsage.TotalUsage) - float64(s.PreCPUStats.CPUUsage.TotalUsage)
	sysDelta := float64(s.CPUStats.SystemUsage) - float64(s.PreCPUStats.SystemUsage)
	if cpuDelta <= 0 || sysDelta <= 0 {
		return 0
	}
	cpus := float64(s.CPUStats.OnlineCPUs)
	if cpus == 0 {
		cpus = float64(len(s.CPUStats.CPUUsage.PercpuUsage))
	}
	if cpus == 0 {
		cpus = 1
	}
	return cpuDelta / sysDelta * cpus * 100.0
}

// Logs returns the last tail lines of a container's output.
func (c *Client) Logs(ctx context.Context, ref string, tail int) (string, error) {
	if c == nil || c.docker == nil {
		return "", fmt.Errorf("container runtime unavailable")
	}
	reader, err := c.docker.ContainerLogs(ctx, ref, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       fmt.Sprintf("%d", tail),
	})
	if err != nil {
		return "", fmt.Errorf("logs for %s: %w", ref, err)
	}
	defer reader.Close()

	// The log stream is multiplexed; stdcopy strips the frame headers.
	var out bytes.Buffer
	if _, err := stdcopy.StdCopy(&out, &out, reader); err != nil {
		return "", fmt.Errorf("read logs for %s: %w", ref, err)
	}
	return out.String(), nil
}

// WaitRunning polls until the container reports running or the deadline
// passes.
func (c *Client) WaitRunning(ctx context.Context, ref string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		running, err := c.IsRunning(ctx, ref)
		if err == nil && running {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(2 * time.Second):
		}
	}
	return false
}
