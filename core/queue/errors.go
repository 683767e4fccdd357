package queue

import (
	"errors"
	"fmt"
)

// ErrInvalidOperation 请求不合法（空列表、越界等），队列状态保持不变
var ErrInvalidOperation = errors.New("invalid queue operation")

// ErrStoreClosed 队列已停止运行
var ErrStoreClosed = errors.New("queue store closed")

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidOperation, fmt.Sprintf(format, args...))
}

// LoadError 播放器加载或播放失败
type LoadError struct {
	URL string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.URL, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
