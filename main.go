// @title Course Hub 后端 API
// @version 1.0
// @description 课程目录、购买权限与课程互动（问答、评价）的后端服务。
// @termsOfService http://swagger.io/terms/

// @contact.name API支持
// @contact.url http://www.swagger.io/support
// @contact.email support@swagger.io

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"context"
	"course_hub_backend/internal/app"
	"course_hub_backend/internal/config"
	"course_hub_backend/pkg/configwatcher"
	"course_hub_backend/pkg/logger"
	"flag"
	"log"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const configDir = "configs"

func main() {
	// 命令行参数
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	migrate := flag.Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	flag.Parse()

	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 设置迁移标志
	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	// 迁移完成后直接退出
	if *migrateOnly {
		log.Println("数据库迁移完成，退出程序")
		return
	}

	// 配置热更新：缓存策略可在运行时切换
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		path := filepath.Join(configDir, "config.yaml")
		if err := configwatcher.WatchConfig(ctx, path, time.Second, application.ApplyConfig); err != nil {
			logger.Log.Error("Config watcher stopped", zap.Error(err))
		}
	}()

	application.Run()
}
