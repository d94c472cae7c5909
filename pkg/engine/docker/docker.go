/*
   Copyright 2020 Docker Compose CLI authors

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package docker is the production adapter for pkg/engine.Engine, built on
// the Moby API client the teacher itself drives its container lifecycle
// through (pkg/compose/create.go, container.go). It is intentionally a
// thin translation layer: no compose-file concepts, no multi-network
// wiring, no build-kit frontends — only the ten operations of the
// engine.Engine port.
package docker

import (
	"archive/tar"
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	dockernetwork "github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/docker/go-units"
	"github.com/sirupsen/logrus"

	"github.com/miniboss-dev/miniboss/pkg/engine"
)

// Client adapts a Moby API client to engine.Engine.
type Client struct {
	api client.APIClient
}

// New builds a Client from the environment (DOCKER_HOST and friends),
// mirroring docker.from_env() in original_source/miniboss/docker_client.py.
func New() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Client{api: cli}, nil
}

// NewFromAPIClient wraps an existing client.APIClient, for tests.
func NewFromAPIClient(api client.APIClient) *Client {
	return &Client{api: api}
}

var _ engine.Engine = (*Client)(nil)

func (c *Client) CreateNetwork(ctx context.Context, name string) (engine.Network, error) {
	existing, err := c.api.NetworkList(ctx, dockernetwork.ListOptions{
		Filters: filters.NewArgs(filters.Arg("name", name)),
	})
	if err != nil {
		return engine.Network{}, fmt.Errorf("list networks: %w", err)
	}
	for _, n := range existing {
		if n.Name == name {
			return engine.Network{Name: name, ID: n.ID}, nil
		}
	}
	created, err := c.api.NetworkCreate(ctx, name, dockernetwork.CreateOptions{Driver: "bridge"})
	if err != nil {
		return engine.Network{}, fmt.Errorf("create network %s: %w", name, err)
	}
	logrus.WithField("network", name).Info("created network")
	return engine.Network{Name: name, ID: created.ID}, nil
}

func (c *Client) RemoveNetwork(ctx context.Context, name string) error {
	existing, err := c.api.NetworkList(ctx, dockernetwork.ListOptions{
		Filters: filters.NewArgs(filters.Arg("name", name)),
	})
	if err != nil {
		return fmt.Errorf("list networks: %w", err)
	}
	if len(existing) == 0 {
		return nil
	}
	if err := c.api.NetworkRemove(ctx, existing[0].ID); err != nil {
		return fmt.Errorf("remove network %s: %w", name, err)
	}
	logrus.WithField("network", name).Info("removed network")
	return nil
}

func (c *Client) ExistingOnNetwork(ctx context.Context, prefix string, network engine.Network) ([]engine.ContainerHandle, error) {
	containers, err := c.api.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("network", network.ID), filters.Arg("name", prefix)),
	})
	if err != nil {
		return nil, fmt.Errorf("list containers on network %s: %w", network.Name, err)
	}
	handles := make([]engine.ContainerHandle, 0, len(containers))
	for _, ctr := range containers {
		name := strings.TrimPrefix(firstOrEmpty(ctr.Names), "/")
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		inspected, err := c.api.ContainerInspect(ctx, ctr.ID)
		if err != nil {
			return nil, fmt.Errorf("inspect container %s: %w", ctr.ID, err)
		}
		var env []string
		if inspected.Config != nil {
			env = inspected.Config.Env
		}
		handles = append(handles, engine.ContainerHandle{
			ID:     ctr.ID,
			Name:   name,
			Status: engine.ContainerStatus(ctr.State),
			Image:  engine.ImageInfo{Tags: []string{ctr.Image}},
			Env:    env,
		})
	}
	return handles, nil
}

func firstOrEmpty(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

func (c *Client) CheckImage(ctx context.Context, tag string) error {
	_, err := c.api.ImageInspect(ctx, tag)
	if err == nil {
		return nil
	}
	if !client.IsErrNotFound(err) {
		return fmt.Errorf("inspect image %s: %w", tag, err)
	}
	logrus.WithField("image", tag).Info("image does not exist locally, pulling")
	reader, err := c.api.ImagePull(ctx, tag, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", tag, err)
	}
	defer reader.Close()
	_, err = io.Copy(io.Discard, reader)
	if err != nil {
		return fmt.Errorf("pull image %s: %w", tag, err)
	}
	return nil
}

func (c *Client) BuildImage(ctx context.Context, buildDir, dockerfile, tag string) error {
	buildCtx, err := tarDirectory(buildDir)
	if err != nil {
		return fmt.Errorf("tar build context %s: %w", buildDir, err)
	}
	resp, err := c.api.ImageBuild(ctx, buildCtx, newBuildOptions(dockerfile, tag))
	if err != nil {
		return fmt.Errorf("build image %s: %w", tag, err)
	}
	defer resp.Body.Close()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("build image %s: %w", tag, err)
	}
	return nil
}

func (c *Client) RunServiceOnNetwork(ctx context.Context, prefix string, service engine.ServiceSpec, network engine.Network) (string, error) {
	if err := c.CheckImage(ctx, service.Image); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s-%s", prefix, randomDigits(4))

	portSet, portBindings, err := portMapping(service.Ports)
	if err != nil {
		return "", fmt.Errorf("translate port mapping for %s: %w", service.Name, err)
	}

	config := &container.Config{
		Image:        service.Image,
		Env:          envSlice(service.Env),
		ExposedPorts: portSet,
		Entrypoint:   service.Entrypoint,
		Cmd:          service.Command,
		User:         service.User,
		StopSignal:   service.StopSignal,
		Volumes:      volumeSet(service.VolumeMounts),
	}
	hostConfig := &container.HostConfig{
		PortBindings: portBindings,
		Binds:        service.VolumeBinds,
	}
	netConfig := &dockernetwork.NetworkingConfig{
		EndpointsConfig: map[string]*dockernetwork.EndpointSettings{
			network.Name: {Aliases: []string{service.Name}},
		},
	}

	created, err := c.api.ContainerCreate(ctx, config, hostConfig, netConfig, nil, name)
	if err != nil {
		return "", fmt.Errorf("create container for %s: %w", service.Name, err)
	}
	if err := c.RunContainer(ctx, created.ID); err != nil {
		return "", err
	}
	logrus.WithFields(logrus.Fields{"service": service.Name, "container": name}).Info("started container")
	return name, nil
}

func (c *Client) RunContainer(ctx context.Context, id string) error {
	if err := c.api.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return fmt.Errorf("start container %s: %w", id, err)
	}
	// The reported status is not necessarily settled the instant Start
	// returns; give it a moment before verifying, matching the teacher's
	// own post-start settle-then-verify pattern.
	time.Sleep(time.Second)
	inspected, err := c.api.ContainerInspect(ctx, id)
	if err != nil {
		return fmt.Errorf("inspect container %s after start: %w", id, err)
	}
	if inspected.State == nil || !inspected.State.Running {
		logs, logErr := c.ContainerLogs(ctx, id)
		if logErr != nil {
			logs = fmt.Sprintf("(could not fetch logs: %v)", logErr)
		}
		return &containerNotRunningError{name: inspected.Name, logs: logs}
	}
	return nil
}

type containerNotRunningError struct {
	name string
	logs string
}

func (e *containerNotRunningError) Error() string {
	return fmt.Sprintf("container %s did not reach running state", e.name)
}

func (e *containerNotRunningError) Name() string { return strings.TrimPrefix(e.name, "/") }
func (e *containerNotRunningError) Logs() string  { return e.logs }

func (c *Client) StopContainer(ctx context.Context, id string, timeoutSeconds int) error {
	timeout := timeoutSeconds
	if err := c.api.ContainerStop(ctx, id, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("stop container %s (timeout %s): %w", id, units.HumanDuration(time.Duration(timeoutSeconds)*time.Second), err)
	}
	return nil
}

func (c *Client) RemoveContainer(ctx context.Context, id string) error {
	if err := c.api.ContainerRemove(ctx, id, container.RemoveOptions{}); err != nil {
		return fmt.Errorf("remove container %s: %w", id, err)
	}
	return nil
}

func (c *Client) ContainerLogs(ctx context.Context, id string) (string, error) {
	reader, err := c.api.ContainerLogs(ctx, id, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return "", fmt.Errorf("fetch logs for %s: %w", id, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read logs for %s: %w", id, err)
	}
	return string(data), nil
}

func envSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

// volumeSet builds the Config.Volumes set from a service's container-side
// mount paths, the same volume_def_to_binds() role the original adapter
// passes as create_container's volumes= argument alongside HostConfig.Binds.
func volumeSet(mounts []string) map[string]struct{} {
	if len(mounts) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(mounts))
	for _, m := range mounts {
		out[m] = struct{}{}
	}
	return out
}

func portMapping(ports map[int]int) (nat.PortSet, nat.PortMap, error) {
	portSet := nat.PortSet{}
	portBindings := nat.PortMap{}
	for containerPort, hostPort := range ports {
		p, err := nat.NewPort("tcp", strconv.Itoa(containerPort))
		if err != nil {
			return nil, nil, err
		}
		portSet[p] = struct{}{}
		portBindings[p] = []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: strconv.Itoa(hostPort)}}
	}
	return portSet, portBindings, nil
}

func randomDigits(n int) string {
	const digits = "0123456789"
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			// crypto/rand failure is effectively unrecoverable; fall back
			// to a fixed but still name-legal suffix rather than panic.
			out[i] = digits[0]
			continue
		}
		out[i] = digits[idx.Int64()]
	}
	return string(out)
}

func tarDirectory(dir string) (io.Reader, error) {
	buf := &bytes.Buffer{}
	tw := tar.NewWriter(buf)
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = rel
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return buf, nil
}

func newBuildOptions(dockerfile, tag string) types.ImageBuildOptions {
	return types.ImageBuildOptions{
		Dockerfile: dockerfile,
		Tags:       []string{tag},
		Remove:     true,
	}
}
