package testtool

import (
	"context"
	"strings"
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// SetupContainer 通用函式來啟動測試容器, returns host and the mapped first exposed port
func SetupContainer(ctx context.Context, req testcontainers.ContainerRequest) (testcontainers.Container, string, string, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", "", err
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, "", "", err
	}

	natPort, err := nat.NewPort("tcp", strings.TrimSuffix(req.ExposedPorts[0], "/tcp"))
	if err != nil {
		return nil, "", "", err
	}

	port, err := container.MappedPort(ctx, natPort)
	if err != nil {
		return nil, "", "", err
	}

	return container, host, port.Port(), nil
}

// MongoRequest container request for a throwaway mongo
func MongoRequest() testcontainers.ContainerRequest {
	return testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp"),
	}
}

// RedisRequest container request for a throwaway redis
func RedisRequest() testcontainers.ContainerRequest {
	return testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	}
}

// StartOrSkip start req, skipping t under -short or when docker is unavailable
func StartOrSkip(t *testing.T, req testcontainers.ContainerRequest) (string, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("container test skipped in short mode")
	}

	ctx := context.Background()
	container, host, port, err := SetupContainer(ctx, req)
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })
	return host, port
}
