package llm

import (
	"context"
	"time"

	"DeskLink/pkg/xerr"
	"DeskLink/pkg/zlog"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

// Completer 对外部补全服务的唯一抽象。返回的消息要么带最终
// 回答，要么带一组工具调用请求。
type Completer interface {
	Complete(ctx context.Context, msgs []*schema.Message, tools []*schema.ToolInfo) (*schema.Message, error)
}

type einoCompleter struct {
	cm      model.ToolCallingChatModel
	timeout time.Duration
}

// NewCompleter timeout 内未返回按 ServiceUnavailable 处理
func NewCompleter(cm model.ToolCallingChatModel, timeout time.Duration) Completer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &einoCompleter{cm: cm, timeout: timeout}
}

func (c *einoCompleter) Complete(ctx context.Context, msgs []*schema.Message, tools []*schema.ToolInfo) (*schema.Message, error) {
	cm := c.cm
	if len(tools) > 0 {
		bound, err := c.cm.WithTools(tools)
		if err != nil {
			zlog.Error("bind tools failed", zap.Error(err))
			return nil, xerr.ErrServiceUnavailable
		}
		cm = bound
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := cm.Generate(ctxWithTimeout, msgs)
	if err != nil {
		zlog.Error("completion call failed", zap.Error(err))
		return nil, xerr.ErrServiceUnavailable
	}
	return resp, nil
}
