package cron

import (
	"context"

	"github.com/ayxworxfr/go_authcore/internal/config"
	"github.com/ayxworxfr/go_authcore/internal/service"
	"github.com/ayxworxfr/go_authcore/pkg/cron"
	"github.com/ayxworxfr/go_authcore/pkg/logger"
)

// InitCronTask 注册后台维护任务并启动调度
// 任务的调度表达式来自配置文件，未配置的任务不会调度。
func InitCronTask() (*cron.Scheduler, error) {
	scheduler := cron.NewScheduler(nil)

	registry := cron.NewRegistry()
	registry.Register("evict_authz_cache", evictAuthzCache)
	registry.Register("refresh_permission_cache", refreshPermissionCache)

	tasks := config.GetCronTasks()
	if tasks == nil {
		return scheduler, nil
	}
	if err := scheduler.LoadTasks(tasks, registry); err != nil {
		return nil, err
	}
	scheduler.Start()
	return scheduler, nil
}

// 清理过期的权限解析缓存
func evictAuthzCache() {
	ctx := context.Background()
	if service.AuthzServiceInstance == nil {
		return
	}
	service.AuthzServiceInstance.EvictExpiredCache()
	logger.Info(ctx, "[TASK] Evicted expired authz cache entries")
}

// 全量清空权限解析缓存，角色权限批量变更后兜底
func refreshPermissionCache() {
	ctx := context.Background()
	if service.AuthzServiceInstance == nil {
		return
	}
	service.AuthzServiceInstance.ClearResolveCache()
	logger.Info(ctx, "[TASK] Cleared permission resolve cache")
}
