package testutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainerPorts(t *testing.T) {
	assert.Equal(t, "tcp", pgPort.Proto())
	assert.Equal(t, "5432", pgPort.Port())
	assert.Equal(t, "9000", rustfsPort.Port())
}

func TestPostgresContainer_ConnectionString(t *testing.T) {
	pc := &PostgresContainer{Host: "localhost", Port: "55432", User: "u", Password: "p", Database: "d"}
	assert.Equal(t, "postgres://u:p@localhost:55432/d?sslmode=disable", pc.ConnectionString())
}

func TestVectors(t *testing.T) {
	assert.Equal(t, []float32{0, 1, 0}, UnitVector(3, 1))

	v := BlendVector(3, 0, 1, 0.8)
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
	assert.Greater(t, v[0], v[1])
}
