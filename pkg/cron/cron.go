package cron

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ayxworxfr/go_authcore/pkg/logger"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v2"
)

// Scheduler 定时任务调度器
// 管理后台维护任务（如权限缓存刷新、部门快照同步）的注册与调度。
type Scheduler struct {
	runner *cron.Cron
	jobs   map[string]*job
	mu     sync.RWMutex
	logger Logger
}

// job 已调度的任务
type job struct {
	entryID cron.EntryID
	spec    string
}

// Logger 日志接口
type Logger interface {
	Infof(msg string, args ...any)
	Warnf(msg string, args ...any)
	Errorf(msg string, args ...any)
}

// defaultLogger 默认日志实现，透传给全局logger
type defaultLogger struct{}

func (l *defaultLogger) Infof(msg string, args ...any) {
	logger.Infof(context.Background(), msg, args...)
}

func (l *defaultLogger) Warnf(msg string, args ...any) {
	logger.Warnf(context.Background(), msg, args...)
}

func (l *defaultLogger) Errorf(msg string, args ...any) {
	logger.Errorf(context.Background(), msg, args...)
}

// NewScheduler 创建调度器，log为nil时使用全局logger
func NewScheduler(log Logger) *Scheduler {
	if log == nil {
		log = &defaultLogger{}
	}
	return &Scheduler{
		runner: cron.New(),
		jobs:   make(map[string]*job),
		logger: log,
	}
}

// Start 启动调度
func (s *Scheduler) Start() {
	s.runner.Start()
	s.logger.Infof("All scheduled tasks started")
}

// Stop 停止调度，等待正在运行的任务完成
func (s *Scheduler) Stop() {
	ctx := s.runner.Stop()
	<-ctx.Done()
	s.logger.Infof("All scheduled tasks stopped")
}

// Add 注册定时任务，同名任务重复注册返回错误
func (s *Scheduler) Add(name, spec string, handler func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("task %s already exists", name)
	}

	entryID, err := s.runner.AddFunc(spec, handler)
	if err != nil {
		return fmt.Errorf("failed to add task %s: %w", name, err)
	}

	s.jobs[name] = &job{entryID: entryID, spec: spec}
	s.logger.Infof("Task %s added, expression: %s", name, spec)
	return nil
}

// Remove 移除定时任务
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if j, exists := s.jobs[name]; exists {
		s.runner.Remove(j.entryID)
		delete(s.jobs, name)
		s.logger.Infof("Task %s removed", name)
	} else {
		s.logger.Warnf("Attempt to remove non-existent task %s", name)
	}
}

// Jobs 列出已注册任务及下次执行时间
func (s *Scheduler) Jobs() []map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []map[string]any
	for name, j := range s.jobs {
		schedule, err := cron.ParseStandard(j.spec)
		if err != nil {
			s.logger.Errorf("Failed to parse cron expression for task %s: %v", name, err)
			continue
		}
		result = append(result, map[string]any{
			"name":      name,
			"cron_expr": j.spec,
			"next_run":  schedule.Next(time.Now()).Format(time.RFC3339),
		})
	}
	return result
}

// TaskConfig YAML配置中的单个任务
type TaskConfig struct {
	Name     string `yaml:"name"`
	CronExpr string `yaml:"cron_expr"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

// Registry 任务名称到处理函数的注册表
type Registry struct {
	handlers map[string]func()
}

// NewRegistry 创建任务注册表
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]func())}
}

// Register 注册任务处理函数
func (r *Registry) Register(name string, handler func()) {
	r.handlers[name] = handler
}

// LoadFile 从YAML文件加载任务配置并注册到调度器
func (s *Scheduler) LoadFile(path string, registry *Registry) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read YAML file: %w", err)
	}
	return s.LoadBytes(data, registry)
}

// LoadBytes 从YAML字节数据加载任务配置
// 严格解析，未知字段视为配置错误；缺少处理函数或表达式非法的任务
// 记录日志后跳过，不中断其余任务的加载。
func (s *Scheduler) LoadBytes(data []byte, registry *Registry) error {
	var configs []TaskConfig
	if err := yaml.UnmarshalStrict(data, &configs); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return s.LoadTasks(configs, registry)
}

// LoadTasks 加载任务配置列表并注册到调度器
func (s *Scheduler) LoadTasks(configs []TaskConfig, registry *Registry) error {
	for _, config := range configs {
		if config.Disabled {
			s.logger.Infof("Skipping disabled task: %s", config.Name)
			continue
		}
		handler, exists := registry.handlers[config.Name]
		if !exists {
			s.logger.Warnf("Task %s has no registered handler", config.Name)
			continue
		}
		if err := s.Add(config.Name, config.CronExpr, handler); err != nil {
			s.logger.Errorf("Failed to load task %s: %v", config.Name, err)
			continue
		}
	}
	return nil
}
