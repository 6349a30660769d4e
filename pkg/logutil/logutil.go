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
	"sync/atomic"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/contig-io/contig/pkg/common/cerr"
)

// LogConfig is the logging section of a contig configuration file.
type LogConfig struct {
	// Level is one of debug, info, warn, error, dpanic, panic, fatal.
	Level string `toml:"level"`
	// Format is console or json.
	Format string `toml:"format"`
	// Filename is the log sink; empty means stderr.
	Filename string `toml:"filename"`
	// MaxSize is the maximum size in MB before rotation.
	MaxSize int `toml:"max-size"`
	// MaxDays is the retention period in days, 0 keeps everything.
	MaxDays int `toml:"max-days"`
	// MaxBackups is the number of rotated files kept, 0 keeps everything.
	MaxBackups int `toml:"max-backups"`
}

var defaultConfig = LogConfig{
	Level:  "info",
	Format: "console",
}

// LoadConfig decodes a toml file holding a [log] section.
func LoadConfig(path string) (*LogConfig, error) {
	var file struct {
		Log LogConfig `toml:"log"`
	}
	file.Log = defaultConfig
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, cerr.NewBadConfig("parse log config %s: %v", path, err)
	}
	return &file.Log, nil
}

func (cfg *LogConfig) getLevel() zap.AtomicLevel {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zapcore.InfoLevel)
	}
	return level
}

func (cfg *LogConfig) getEncoder() zapcore.Encoder {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	if cfg.Format == "json" {
		return zapcore.NewJSONEncoder(encCfg)
	}
	return zapcore.NewConsoleEncoder(encCfg)
}

func (cfg *LogConfig) getSyncer() zapcore.WriteSyncer {
	if cfg.Filename != "" {
		return zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxAge:     cfg.MaxDays,
			MaxBackups: cfg.MaxBackups,
			LocalTime:  true,
		})
	}
	return zapcore.Lock(os.Stderr)
}

func (cfg *LogConfig) getOptions() []zap.Option {
	return []zap.Option{
		zap.AddStacktrace(zapcore.FatalLevel),
		zap.AddCaller(),
	}
}

var _globalLogger atomic.Value // *zap.Logger

// Setup replaces the global logger with one built from cfg. It is called
// at most once by embedding programs; library code never calls it.
func Setup(cfg *LogConfig) {
	if cfg == nil {
		cfg = &defaultConfig
	}
	core := zapcore.NewCore(cfg.getEncoder(), cfg.getSyncer(), cfg.getLevel())
	replaceGlobalLogger(zap.New(core, cfg.getOptions()...))
}

func replaceGlobalLogger(logger *zap.Logger) {
	_globalLogger.Store(logger)
	zap.ReplaceGlobals(logger)
}

// GetGlobalLogger returns the process-wide logger, setting up the default
// configuration on first use.
func GetGlobalLogger() *zap.Logger {
	if l := _globalLogger.Load(); l != nil {
		return l.(*zap.Logger)
	}
	Setup(nil)
	return _globalLogger.Load().(*zap.Logger)
}
