package magnetar_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"magnetar/internal/magnetar"
)

func TestNewOptions(t *testing.T) {
	t.Run("test mode uses the simulated player", func(t *testing.T) {
		opts := magnetar.NewOptions(magnetar.WithTestMode(true))

		assert.IsType(t, &magnetar.SimulatedDialer{}, opts.Dialer)
		assert.NotNil(t, opts.Sleep)
		assert.NotNil(t, opts.Logger)
	})

	t.Run("debug leaves the process log level alone", func(t *testing.T) {
		before := zerolog.GlobalLevel()
		defer zerolog.SetGlobalLevel(before)
		zerolog.SetGlobalLevel(zerolog.InfoLevel)

		opts := magnetar.NewOptions(magnetar.WithDebug(true))

		assert.True(t, opts.Debug)
		assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	})
}
