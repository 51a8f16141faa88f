package mysql

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hilsim/hilsim/internal/storage"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func TestInit_UnreachableServer(t *testing.T) {
	viper.Set("db.host", "127.0.0.1")
	viper.Set("db.mysqlPort", "1")
	viper.Set("db.username", "hilsim")
	viper.Set("db.password", "hilsim")
	viper.Set("db.database", "hilsim")
	t.Cleanup(viper.Reset)

	b := New(nil)
	err := b.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
}
