// Package testutil starts throwaway Postgres and S3 containers for
// integration and e2e tests, and builds deterministic test vectors.
package testutil

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/cloo-solutions/ragchat/internal/database"
	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	pgImage     = "pgvector/pgvector:0.8.1-pg18"
	pgPort      = nat.Port("5432/tcp")
	pgCredsName = "ragchat"

	rustfsImage = "rustfs/rustfs:latest"
	rustfsPort  = nat.Port("9000/tcp")
	// RustFSKey is both the access key and the secret of the test S3 store.
	RustFSKey = "rustfsadmin"
)

type started struct {
	container testcontainers.Container
	host      string
	port      string
}

func start(ctx context.Context, t *testing.T, req testcontainers.ContainerRequest, port nat.Port) started {
	t.Helper()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start %s: %v", req.Image, err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("%s host: %v", req.Image, err)
	}
	mapped, err := c.MappedPort(ctx, port)
	if err != nil {
		t.Fatalf("%s port %s: %v", req.Image, port, err)
	}
	return started{container: c, host: host, port: mapped.Port()}
}

// PostgresContainer is a pgvector-enabled Postgres.
type PostgresContainer struct {
	Container testcontainers.Container
	Host      string
	Port      string
	User      string
	Password  string
	Database  string
}

func NewPostgresContainer(ctx context.Context, t *testing.T) *PostgresContainer {
	t.Helper()

	s := start(ctx, t, testcontainers.ContainerRequest{
		Image:        pgImage,
		ExposedPorts: []string{string(pgPort)},
		Env: map[string]string{
			"POSTGRES_USER":     pgCredsName,
			"POSTGRES_PASSWORD": pgCredsName,
			"POSTGRES_DB":       pgCredsName,
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort(pgPort),
		).WithStartupTimeout(60 * time.Second),
	}, pgPort)

	return &PostgresContainer{
		Container: s.container,
		Host:      s.host,
		Port:      s.port,
		User:      pgCredsName,
		Password:  pgCredsName,
		Database:  pgCredsName,
	}
}

func (pc *PostgresContainer) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		pc.User, pc.Password, pc.Host, pc.Port, pc.Database)
}

func (pc *PostgresContainer) Terminate(ctx context.Context) error {
	return testcontainers.TerminateContainer(pc.Container)
}

// RustFSContainer is an S3-compatible object store.
type RustFSContainer struct {
	Container testcontainers.Container
	Host      string
	Port      string
}

func NewRustFSContainer(ctx context.Context, t *testing.T) *RustFSContainer {
	t.Helper()

	s := start(ctx, t, testcontainers.ContainerRequest{
		Image:        rustfsImage,
		ExposedPorts: []string{string(rustfsPort)},
		Env: map[string]string{
			"RUSTFS_ACCESS_KEY": RustFSKey,
			"RUSTFS_SECRET_KEY": RustFSKey,
		},
		WaitingFor: wait.ForListeningPort(rustfsPort).WithStartupTimeout(30 * time.Second),
	}, rustfsPort)

	return &RustFSContainer{Container: s.container, Host: s.host, Port: s.port}
}

func (rc *RustFSContainer) Endpoint() string {
	return fmt.Sprintf("http://%s:%s", rc.Host, rc.Port)
}

func (rc *RustFSContainer) Terminate(ctx context.Context) error {
	return testcontainers.TerminateContainer(rc.Container)
}

// NewTestPool migrates the container's database up using the files in
// migrationsDir and returns a pool connected to it.
func NewTestPool(ctx context.Context, t *testing.T, pc *PostgresContainer, migrationsDir string) *pgxpool.Pool {
	t.Helper()

	abs, err := filepath.Abs(migrationsDir)
	if err != nil {
		t.Fatalf("migrations dir: %v", err)
	}

	var pool *pgxpool.Pool
	for attempt := 1; ; attempt++ {
		pool, err = database.NewPool(ctx, database.Config{URL: pc.ConnectionString()})
		if err == nil {
			break
		}
		if attempt == 5 {
			t.Fatalf("connect to postgres: %v", err)
		}
		time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
	}

	if err := database.Migrate(pc.ConnectionString(), "file://"+filepath.ToSlash(abs), "up"); err != nil {
		pool.Close()
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

// UnitVector returns a dims-long vector with 1 at axis and 0 elsewhere.
func UnitVector(dims, axis int) []float32 {
	v := make([]float32, dims)
	v[axis%dims] = 1
	return v
}

// BlendVector returns a unit-length vector between axes a and b, weighted
// toward a by w in [0, 1].
func BlendVector(dims, a, b int, w float64) []float32 {
	v := make([]float32, dims)
	norm := math.Sqrt(w*w + (1-w)*(1-w))
	v[a%dims] = float32(w / norm)
	v[b%dims] += float32((1 - w) / norm)
	return v
}
