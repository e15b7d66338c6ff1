package logger

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config 日志配置
type Config struct {
	LogFile    string // 日志文件路径
	Level      string // 日志级别: debug/info/warn/error
	MaxSize    int    // 单个日志文件最大大小（MB）
	MaxBackups int    // 保留的旧日志文件数量
	MaxAge     int    // 日志文件保留天数
	Compress   bool   // 是否压缩旧日志
	Console    bool   // 是否同时输出到控制台
}

var (
	instance *zap.Logger
	initOnce sync.Once
)

// InitLogger 初始化全局日志实例
func InitLogger(cfg Config) error {
	var err error
	initOnce.Do(func() {
		instance, err = build(cfg)
	})
	return err
}

// build 根据配置构建 zap.Logger
func build(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil && cfg.Level != "" {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	var cores []zapcore.Core
	if cfg.LogFile != "" {
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), fileWriter, level))
	}
	if cfg.Console || cfg.LogFile == "" {
		consoleEncoder := zapcore.NewConsoleEncoder(encoderConfig)
		cores = append(cores, zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)), nil
}

// get 返回全局日志实例，未初始化时退化为标准输出
func get() *zap.Logger {
	if instance == nil {
		logger, _ := build(Config{Level: "info", Console: true})
		instance = logger
	}
	return instance
}

// withTrace 从上下文提取链路追踪信息附加到日志字段
func withTrace(ctx context.Context, fields []zap.Field) []zap.Field {
	if ctx == nil {
		return fields
	}
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.HasTraceID() {
		fields = append(fields, zap.String("trace_id", spanCtx.TraceID().String()))
	}
	return fields
}

// Debug 输出Debug级别日志
func Debug(ctx context.Context, msg string, fields ...zap.Field) {
	get().Debug(msg, withTrace(ctx, fields)...)
}

// Info 输出Info级别日志
func Info(ctx context.Context, msg string, fields ...zap.Field) {
	get().Info(msg, withTrace(ctx, fields)...)
}

// Warn 输出Warn级别日志
func Warn(ctx context.Context, msg string, fields ...zap.Field) {
	get().Warn(msg, withTrace(ctx, fields)...)
}

// Error 输出Error级别日志
func Error(ctx context.Context, msg string, fields ...zap.Field) {
	get().Error(msg, withTrace(ctx, fields)...)
}

// Debugf 输出格式化的Debug级别日志
func Debugf(ctx context.Context, format string, args ...any) {
	get().Debug(fmt.Sprintf(format, args...), withTrace(ctx, nil)...)
}

// Infof 输出格式化的Info级别日志
func Infof(ctx context.Context, format string, args ...any) {
	get().Info(fmt.Sprintf(format, args...), withTrace(ctx, nil)...)
}

// Warnf 输出格式化的Warn级别日志
func Warnf(ctx context.Context, format string, args ...any) {
	get().Warn(fmt.Sprintf(format, args...), withTrace(ctx, nil)...)
}

// Errorf 输出格式化的Error级别日志
func Errorf(ctx context.Context, format string, args ...any) {
	get().Error(fmt.Sprintf(format, args...), withTrace(ctx, nil)...)
}

// Fatalf 输出致命错误日志并退出进程
func Fatalf(ctx context.Context, format string, args ...any) {
	get().Fatal(fmt.Sprintf(format, args...), withTrace(ctx, nil)...)
}

// Sync 刷新缓冲的日志
func Sync() error {
	return get().Sync()
}
