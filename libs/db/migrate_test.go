package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrateURL(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@db:5432/slots?sslmode=disable": "pgx5://u:p@db:5432/slots?sslmode=disable",
		"postgresql://u@db/slots":                       "pgx5://u@db/slots",
		"pgx5://already":                                "pgx5://already",
	}
	for in, want := range cases {
		assert.Equal(t, want, MigrateURL(in), in)
	}
}

func TestPoolOptionsDefaults(t *testing.T) {
	o := PoolOptions{MinConns: 20, MaxConns: 4}.withDefaults()
	assert.Equal(t, int32(4), o.MaxConns)
	assert.Equal(t, int32(4), o.MinConns)
	assert.NotZero(t, o.MaxConnLifetime)
	assert.NotZero(t, o.MaxConnIdleTime)
}
