// Copyright 2026 Lodestone Framework Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/pprof"
	"runtime"
	"sync"
	"time"

	"github.com/lodestone-framework/lodestone/framework/core"
)

// DebugConfig конфигурация для debugging utilities
type DebugConfig struct {
	Enabled              bool
	LogLevel             string // "debug", "info", "warn", "error"
	EnablePprof          bool
	PprofPort            int
	EnableHealthCheck    bool
	EnableReadinessCheck bool
}

// DefaultDebugConfig возвращает конфигурацию по умолчанию
func DefaultDebugConfig() DebugConfig {
	return DebugConfig{
		Enabled:              false,
		LogLevel:             "info",
		EnablePprof:          false,
		PprofPort:            6060,
		EnableHealthCheck:    true,
		EnableReadinessCheck: true,
	}
}

// DebugManager менеджер для debugging utilities
type DebugManager struct {
	config          DebugConfig
	pprofServer     *http.Server
	healthChecks    []HealthCheck
	readinessChecks []HealthCheck
	running         bool
	mu              sync.RWMutex
}

// NewDebugManager создает новый DebugManager
func NewDebugManager(config DebugConfig) *DebugManager {
	return &DebugManager{
		config:          config,
		healthChecks:    make([]HealthCheck, 0),
		readinessChecks: make([]HealthCheck, 0),
		running:         false,
	}
}

// Start запускает debug server с pprof endpoints
func (dm *DebugManager) Start(ctx context.Context) error {
	dm.mu.Lock()
	dm.running = true
	dm.mu.Unlock()

	if dm.config.EnablePprof {
		mux := http.NewServeMux()
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

		dm.pprofServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", dm.config.PprofPort),
			Handler: mux,
		}

		go func() {
			if err := dm.pprofServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				// Логируем ошибку
				_ = err
			}
		}()
	}

	return nil
}

// Stop останавливает debug server
func (dm *DebugManager) Stop(ctx context.Context) error {
	dm.mu.Lock()
	dm.running = false
	dm.mu.Unlock()

	if dm.pprofServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return dm.pprofServer.Shutdown(shutdownCtx)
	}

	return nil
}

// IsRunning проверяет статус
func (dm *DebugManager) IsRunning() bool {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.running
}

// RegisterHealthCheck регистрирует health check
func (dm *DebugManager) RegisterHealthCheck(check HealthCheck) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.healthChecks = append(dm.healthChecks, check)
}

// RegisterReadinessCheck регистрирует readiness check
func (dm *DebugManager) RegisterReadinessCheck(check HealthCheck) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.readinessChecks = append(dm.readinessChecks, check)
}

// HealthCheckHandler возвращает http handler для health check
func (dm *DebugManager) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		dm.mu.RLock()
		checks := dm.healthChecks
		dm.mu.RUnlock()

		result := HealthCheckResult{
			Status:    "healthy",
			Checks:    make(map[string]CheckResult),
			Timestamp: time.Now(),
		}

		allHealthy := true
		for _, check := range checks {
			start := time.Now()
			err := check.Check(ctx)
			duration := time.Since(start)

			status := "healthy"
			message := ""
			if err != nil {
				status = "unhealthy"
				message = err.Error()
				allHealthy = false
			}

			result.Checks[check.Name()] = CheckResult{
				Status:   status,
				Message:  message,
				Duration: duration,
			}
		}

		statusCode := http.StatusOK
		if !allHealthy {
			result.Status = "unhealthy"
			statusCode = http.StatusServiceUnavailable
		}
		writeJSON(w, statusCode, result)
	}
}

// ReadinessCheckHandler возвращает http handler для readiness check
func (dm *DebugManager) ReadinessCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		dm.mu.RLock()
		checks := dm.readinessChecks
		dm.mu.RUnlock()

		for _, check := range checks {
			if err := check.Check(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
				return
			}
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// HealthCheck интерфейс для health checks
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthCheckResult результат health check
type HealthCheckResult struct {
	Status    string                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp time.Time              `json:"timestamp"`
}

// CheckResult результат отдельной проверки
type CheckResult struct {
	Status   string        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
}

// BackendHealthCheck проверка доступности search backend
type BackendHealthCheck struct {
	name    string
	backend core.HealthCheckable
}

// NewBackendHealthCheck создает новый BackendHealthCheck
func NewBackendHealthCheck(name string, backend core.HealthCheckable) *BackendHealthCheck {
	return &BackendHealthCheck{name: name, backend: backend}
}

// Name возвращает имя проверки
func (h *BackendHealthCheck) Name() string {
	return h.name
}

// Check выполняет проверку
func (h *BackendHealthCheck) Check(ctx context.Context) error {
	if h.backend == nil {
		return fmt.Errorf("backend is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := h.backend.HealthCheck(ctx); err != nil {
		return fmt.Errorf("backend health check failed: %w", err)
	}

	return nil
}

// FuncHealthCheck проверка на основе функции
type FuncHealthCheck struct {
	checkFunc func(ctx context.Context) error
	name      string
}

// NewFuncHealthCheck создает новый FuncHealthCheck
func NewFuncHealthCheck(name string, checkFunc func(ctx context.Context) error) *FuncHealthCheck {
	return &FuncHealthCheck{
		name:      name,
		checkFunc: checkFunc,
	}
}

// Name возвращает имя проверки
func (h *FuncHealthCheck) Name() string {
	return h.name
}

// Check выполняет проверку
func (h *FuncHealthCheck) Check(ctx context.Context) error {
	if h.checkFunc == nil {
		return fmt.Errorf("check function is nil")
	}
	return h.checkFunc(ctx)
}

// MemoryHealthCheck проверка использования памяти
type MemoryHealthCheck struct{}

// NewMemoryHealthCheck создает новый MemoryHealthCheck
func NewMemoryHealthCheck() *MemoryHealthCheck {
	return &MemoryHealthCheck{}
}

// Name возвращает имя проверки
func (h *MemoryHealthCheck) Name() string {
	return "memory"
}

// Check выполняет проверку
func (h *MemoryHealthCheck) Check(ctx context.Context) error {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	// Проверка использования памяти
	usedPercent := float64(m.Alloc) / float64(m.Sys) * 100

	if usedPercent > 95 {
		return fmt.Errorf("memory usage too high: %.2f%%", usedPercent)
	}

	return nil
}

// ProfileOperation профилирует операцию репозитория
func ProfileOperation(ctx context.Context, operationName string, fn func() error) error {
	start := time.Now()
	err := fn()
	duration := time.Since(start)

	// Логирование медленных операций
	if duration > 1*time.Second {
		// В production здесь должно быть структурированное логирование
		_ = fmt.Sprintf("slow operation: %s, duration: %v", operationName, duration)
	}

	return err
}

// Bottleneck структура для обнаружения bottlenecks
type Bottleneck struct {
	Type        string
	Description string
	Severity    string // "low", "medium", "high"
}

// DetectBottlenecks автоматически обнаруживает bottlenecks
func DetectBottlenecks(ctx context.Context) []Bottleneck {
	var bottlenecks []Bottleneck

	// Проверка использования памяти
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	if m.Alloc > 100*1024*1024 { // 100MB
		bottlenecks = append(bottlenecks, Bottleneck{
			Type:        "memory",
			Description: "High memory usage detected",
			Severity:    "medium",
		})
	}

	// Проверка количества goroutines
	numGoroutines := runtime.NumGoroutine()
	if numGoroutines > 1000 {
		bottlenecks = append(bottlenecks, Bottleneck{
			Type:        "goroutines",
			Description: fmt.Sprintf("High number of goroutines: %d", numGoroutines),
			Severity:    "high",
		})
	}

	return bottlenecks
}
