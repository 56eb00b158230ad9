package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// fileWriter returns a size-rotated writer for config.File.
func fileWriter(config Config) (*lumberjack.Logger, error) {
	if dir := filepath.Dir(config.File); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &lumberjack.Logger{
		Filename:   config.File,
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
		LocalTime:  true,
	}, nil
}

// getWriteSyncer builds the sink for config.Output.
func getWriteSyncer(config Config) (zapcore.WriteSyncer, error) {
	switch config.Output {
	case OutputFile, OutputBoth:
		lj, err := fileWriter(config)
		if err != nil {
			return nil, err
		}
		if config.Output == OutputFile {
			return zapcore.AddSync(lj), nil
		}
		return zapcore.NewMultiWriteSyncer(zapcore.Lock(os.Stdout), zapcore.AddSync(lj)), nil
	default:
		return zapcore.Lock(os.Stdout), nil
	}
}
