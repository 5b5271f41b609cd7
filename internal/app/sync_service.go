package app

import (
	"context"
	"errors"

	"github.com/shipline-next/internal/service"
	"github.com/shipline-next/internal/syncer"
)

// SyncService 同步层后台服务：维持跨进程事件转发，并驱动总览重取
type SyncService struct {
	name     string
	hub      *syncer.Hub
	overview *service.OverviewService
}

// NewSyncService 创建同步服务
func NewSyncService(hub *syncer.Hub, overview *service.OverviewService) *SyncService {
	return &SyncService{
		name:     "sync",
		hub:      hub,
		overview: overview,
	}
}

// Name 服务名称
func (s *SyncService) Name() string {
	if s == nil || s.name == "" {
		return "sync"
	}
	return s.name
}

// Start 启动服务
func (s *SyncService) Start(ctx context.Context) error {
	if s == nil || s.hub == nil {
		return errors.New("sync hub not initialized")
	}
	if s.overview != nil {
		go s.overview.Run(ctx, s.hub)
	}
	return s.hub.Run(ctx)
}

// Stop 停止服务（由 Start 的 ctx 取消驱动退出）
func (s *SyncService) Stop(ctx context.Context) error {
	_ = ctx
	return nil
}
