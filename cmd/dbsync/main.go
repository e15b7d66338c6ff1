package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/ayxworxfr/go_authcore/internal/config"
	"github.com/ayxworxfr/go_authcore/internal/dao"
	"github.com/ayxworxfr/go_authcore/pkg/logger"
	"github.com/ayxworxfr/go_authcore/pkg/utils"
	_ "github.com/go-sql-driver/mysql"
)

// 数据库表结构同步工具
// 按模型定义创建或更新表结构，-drop时先删除旧表（需交互确认）。
func main() {
	dropTables := flag.Bool("drop", false, "drop existing tables before sync")
	yes := flag.Bool("y", false, "skip interactive confirmation")
	flag.Parse()

	cfg := initConfig()
	initLogger(cfg.Logger)

	ctx := context.Background()
	engine := dao.InitDB()
	if engine == nil {
		logger.Error(ctx, "Failed to connect to database")
		panic("failed to connect to database")
	}

	if err := dao.SyncDB(engine, *dropTables, !*yes); err != nil {
		logger.Errorf(ctx, "Failed to sync database: %v", err)
		panic(fmt.Sprintf("failed to sync database: %v", err))
	}

	logger.Info(ctx, "Database schema synced")
}

func initConfig() *config.Config {
	configPath := utils.GetAbsPath("conf/config.yaml")
	cfg, err := config.Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	return cfg
}

func initLogger(cfg config.LoggerConfig) {
	logger.InitLogger(logger.Config{
		LogFile:    cfg.LogFile,
		Level:      cfg.Level,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
		Console:    cfg.Console,
	})
}
