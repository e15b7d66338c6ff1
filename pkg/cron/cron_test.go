package cron

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func noopTask() {}

func TestScheduler_Add(t *testing.T) {
	assert := assert.New(t)

	s := NewScheduler(nil)
	err := s.Add("refresh_permission_cache", "0 0 * * *", noopTask)
	assert.NoError(err)

	jobs := s.Jobs()
	assert.Len(jobs, 1)
	assert.Equal("refresh_permission_cache", jobs[0]["name"])
}

func TestScheduler_AddDuplicate(t *testing.T) {
	assert := assert.New(t)

	s := NewScheduler(nil)
	assert.NoError(s.Add("refresh_permission_cache", "0 0 * * *", noopTask))
	err := s.Add("refresh_permission_cache", "30 0 * * *", noopTask)
	assert.Error(err)
	assert.Len(s.Jobs(), 1)
}

func TestScheduler_Remove(t *testing.T) {
	assert := assert.New(t)

	s := NewScheduler(nil)
	assert.NoError(s.Add("refresh_permission_cache", "0 0 * * *", noopTask))

	s.Remove("refresh_permission_cache")
	assert.Len(s.Jobs(), 0)
}

func TestScheduler_StartAndStop(t *testing.T) {
	assert := assert.New(t)

	s := NewScheduler(nil)
	assert.NoError(s.Add("refresh_permission_cache", "0 0 * * *", noopTask))

	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()
}

func TestScheduler_LoadFile(t *testing.T) {
	assert := assert.New(t)

	s := NewScheduler(nil)
	registry := NewRegistry()
	registry.Register("refresh_permission_cache", noopTask)

	tmpFile, err := os.CreateTemp("", "tasks.yaml")
	assert.NoError(err)
	defer os.Remove(tmpFile.Name())

	_, err = tmpFile.Write([]byte(`
- name: refresh_permission_cache
  cron_expr: 0 0 * * *
`))
	assert.NoError(err)
	assert.NoError(tmpFile.Close())

	assert.NoError(s.LoadFile(tmpFile.Name(), registry))
	assert.Len(s.Jobs(), 1)
}

func TestScheduler_LoadBytes_InvalidYAML(t *testing.T) {
	assert := assert.New(t)

	s := NewScheduler(nil)
	registry := NewRegistry()
	registry.Register("refresh_permission_cache", noopTask)

	// 未知字段触发严格解析错误
	invalidYAML := []byte(`
- name: refresh_permission_cache
  cron_expr: 0 0 * * *
  invalid_field: true
`)

	err := s.LoadBytes(invalidYAML, registry)
	assert.Error(err)
	assert.Contains(err.Error(), "failed to parse YAML")
	assert.Len(s.Jobs(), 0)
}

func TestScheduler_LoadBytes_UndefinedTask(t *testing.T) {
	assert := assert.New(t)

	s := NewScheduler(nil)
	registry := NewRegistry()

	yamlData := []byte(`
- name: undefined_task
  cron_expr: 0 0 * * *
`)

	assert.NoError(s.LoadBytes(yamlData, registry))
	assert.Len(s.Jobs(), 0)
}

func TestScheduler_LoadBytes_InvalidCronExpr(t *testing.T) {
	assert := assert.New(t)

	s := NewScheduler(nil)
	registry := NewRegistry()
	registry.Register("refresh_permission_cache", noopTask)

	yamlData := []byte(`
- name: refresh_permission_cache
  cron_expr: not_a_cron_expr
`)

	assert.NoError(s.LoadBytes(yamlData, registry))
	assert.Len(s.Jobs(), 0)
}

func TestScheduler_LoadBytes_DisabledTask(t *testing.T) {
	assert := assert.New(t)

	s := NewScheduler(nil)
	registry := NewRegistry()
	registry.Register("refresh_permission_cache", noopTask)
	registry.Register("sync_department_snapshot", noopTask)

	yamlData := []byte(`
- name: refresh_permission_cache
  cron_expr: "0 0 * * *"
- name: sync_department_snapshot
  cron_expr: "0 12 * * *"
  disabled: true
`)

	assert.NoError(s.LoadBytes(yamlData, registry))
	jobs := s.Jobs()
	assert.Len(jobs, 1)
	assert.Equal("refresh_permission_cache", jobs[0]["name"])
}
