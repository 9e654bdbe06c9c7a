// 包 autosave：按固定间隔把工作区保存到项目库，运行在服务进程内的后台协程
package autosave

import (
	"context"
	"time"

	"site-report/internal/logger"
)

// SaveFunc：一次保存动作
type SaveFunc func(ctx context.Context) error

// 文档注释：启动定时保存
// 背景：浏览器会话意外中断时保留最近的工作区；错误由日志记录，任务继续调度。
// 约束：every<=0 时不启动；ctx 取消后退出并在退出前再保存一次；返回的通道在协程退出时关闭。
func Start(ctx context.Context, every time.Duration, save SaveFunc) <-chan struct{} {
	done := make(chan struct{})
	if every <= 0 {
		close(done)
		return done
	}
	l := logger.L()
	go func() {
		defer close(done)
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				fctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := save(fctx); err != nil {
					l.Error("autosave_final_error", "error", err)
				}
				cancel()
				return
			case <-t.C:
				if err := save(ctx); err != nil {
					l.Error("autosave_error", "error", err)
				} else {
					l.Debug("autosave_ok")
				}
			}
		}
	}()
	return done
}
