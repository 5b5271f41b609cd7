package ops

import "github.com/shipline-next/internal/provider"

// Handler 运营端接口处理器入口
type Handler struct {
	*provider.Container
}

// New 创建运营端处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
