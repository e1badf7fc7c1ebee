package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds a console logger at level. When dir is set, entries are also written as JSON to a
// rotating file in dir.
func New(level, dir string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cores := []zapcore.Core{newConsoleCore(lvl)}
	if dir != "" {
		fileCore, err := newFileCore(dir, lvl)
		if err != nil {
			return nil, err
		}
		cores = append(cores, fileCore)
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

func newFileCore(dir string, lvl zapcore.Level) (zapcore.Core, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create log directory: %w", err)
	}

	writer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(dir, "bloom.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     7, // days
		Compress:   true,
	})

	encoderConfig := zapcore.EncoderConfig{
		MessageKey:   "message",
		LevelKey:     "level",
		TimeKey:      "time",
		CallerKey:    "caller",
		EncodeLevel:  zapcore.CapitalLevelEncoder,
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}
	return zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), writer, lvl), nil
}

// newConsoleCore writes to stderr so the terminal survey keeps stdout to itself.
func newConsoleCore(lvl zapcore.Level) zapcore.Core {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(os.Stderr), lvl)
}
