// Copyright 2024 The Contig Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lni/goutils/leaktest"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/contig-io/contig/pkg/common/cerr"
)

func TestLogConfig_getter(t *testing.T) {
	defer leaktest.AfterTest(t)()

	cfg := &LogConfig{Level: "debug", Format: "console"}
	require.True(t, cfg.getLevel().Enabled(zapcore.DebugLevel))
	require.NotNil(t, cfg.getEncoder())
	require.NotNil(t, cfg.getSyncer())

	cfg = &LogConfig{Level: "not-a-level", Format: "json"}
	require.False(t, cfg.getLevel().Enabled(zapcore.DebugLevel))
	require.True(t, cfg.getLevel().Enabled(zapcore.InfoLevel))
}

func TestSetupAndGlobal(t *testing.T) {
	defer leaktest.AfterTest(t)()

	Setup(&LogConfig{Level: "info", Format: "json"})
	logger := GetGlobalLogger()
	require.NotNil(t, logger)
	Info("logutil test", zap.Int("n", 1))
	Infof("logutil test %d", 2)
}

func TestLoadConfig(t *testing.T) {
	defer leaktest.AfterTest(t)()

	path := filepath.Join(t.TempDir(), "contig.toml")
	content := `
[log]
level = "warn"
format = "json"
max-size = 128
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "warn", cfg.Level)
	require.Equal(t, "json", cfg.Format)
	require.Equal(t, 128, cfg.MaxSize)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.True(t, cerr.IsErrCode(err, cerr.ErrBadConfig))
}
