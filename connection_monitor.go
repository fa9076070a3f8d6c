package ckorm

import (
	"context"
	"sync"
	"time"
)

// connectionMonitor 定时 ping 当前持有的连接，失败时丢弃该连接，
// 下一次操作会重新申请。没有持有连接时不会主动建立连接。
type connectionMonitor struct {
	conn           *connManager
	normalInterval time.Duration // 正常检查间隔
	errorInterval  time.Duration // 故障检查间隔
	pingTimeout    time.Duration

	stopCh      chan struct{}
	done        chan struct{}
	stopOnce    sync.Once
	lastHealthy bool // 只在状态变化时记录日志
}

// globalLimitCh 限制同时进行的 ping 数量，避免慢库阻塞所有检查
var globalLimitCh = make(chan struct{}, 5)

func newConnectionMonitor(conn *connManager, interval time.Duration) *connectionMonitor {
	errorInterval := interval / 2
	if errorInterval <= 0 {
		errorInterval = interval
	}
	timeout := 3 * time.Second
	if interval < timeout {
		timeout = interval
	}
	return &connectionMonitor{
		conn:           conn,
		normalInterval: interval,
		errorInterval:  errorInterval,
		pingTimeout:    timeout,
		stopCh:         make(chan struct{}),
		done:           make(chan struct{}),
		lastHealthy:    true,
	}
}

// start 启动监控 goroutine
func (cm *connectionMonitor) start() {
	go cm.run()
}

// stop 停止监控并等待 goroutine 退出，可重复调用
func (cm *connectionMonitor) stop() {
	if cm == nil {
		return
	}
	cm.stopOnce.Do(func() { close(cm.stopCh) })
	<-cm.done
}

func (cm *connectionMonitor) run() {
	defer close(cm.done)

	currentInterval := cm.normalInterval
	ticker := time.NewTicker(currentInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cm.stopCh:
			return
		case <-ticker.C:
			newInterval := cm.normalInterval
			if !cm.check() {
				newInterval = cm.errorInterval
			}
			if newInterval != currentInterval {
				ticker.Reset(newInterval)
				currentInterval = newInterval
			}
		}
	}
}

// check ping 当前连接，返回是否健康；没有持有连接视为健康
func (cm *connectionMonitor) check() bool {
	c := cm.conn.held.Load()
	if c == nil {
		return true
	}

	select {
	case globalLimitCh <- struct{}{}:
		defer func() { <-globalLimitCh }()
	case <-cm.stopCh:
		return cm.lastHealthy
	default:
		// 限流已满时跳过本次检查，等待下一个周期
		return cm.lastHealthy
	}

	ctx, cancel := context.WithTimeout(context.Background(), cm.pingTimeout)
	defer cancel()
	err := c.PingContext(ctx)

	healthy := err == nil
	if !healthy {
		cm.conn.invalidate(c)
	}
	if healthy != cm.lastHealthy {
		if healthy {
			LogInfo("connection recovered", map[string]interface{}{"db": cm.conn.name})
		} else {
			LogError("connection check failed", map[string]interface{}{
				"db":    cm.conn.name,
				"error": fixStringEncoding(err.Error()),
			})
		}
		cm.lastHealthy = healthy
	}
	return healthy
}
