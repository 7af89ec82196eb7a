// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package lodestar

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	bedrockcfg "github.com/z5labs/bedrock/config"
)

func TestConfig_InitializeOTel(t *testing.T) {
	t.Run("will not return an error", func(t *testing.T) {
		t.Run("with the default parameters", func(t *testing.T) {
			m, err := bedrockcfg.Read(DefaultConfig())
			require.Nil(t, err)

			var cfg Config
			err = m.Unmarshal(&cfg)
			require.Nil(t, err)

			err = cfg.InitializeOTel(context.Background())
			require.Nil(t, err)
		})
	})
}

func TestConfigSource(t *testing.T) {
	t.Run("will substitute environment variables", func(t *testing.T) {
		t.Setenv("TEST_SERVICE_NAME", "ingest-worker")

		src := ConfigSource(strings.NewReader(`otel:
  resource:
    service_name: '{{env "TEST_SERVICE_NAME"}}'`))

		m, err := bedrockcfg.Read(src)
		require.Nil(t, err)

		var cfg Config
		err = m.Unmarshal(&cfg)
		require.Nil(t, err)
		require.Equal(t, "ingest-worker", cfg.OTel.Resource.ServiceName)
	})

	t.Run("will fall back to the default when the variable is unset", func(t *testing.T) {
		src := ConfigSource(strings.NewReader(`otel:
  resource:
    service_name: '{{default "fallback" (env "TEST_UNSET_SERVICE_NAME")}}'`))

		m, err := bedrockcfg.Read(src)
		require.Nil(t, err)

		var cfg Config
		err = m.Unmarshal(&cfg)
		require.Nil(t, err)
		require.Equal(t, "fallback", cfg.OTel.Resource.ServiceName)
	})
}
