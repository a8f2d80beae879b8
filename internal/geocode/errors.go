package geocode

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// 错误分类：超时类可重试，服务类（非 2xx、响应无法解析）不重试
var (
	ErrTimeout = errors.New("geocoder timed out")
	ErrService = errors.New("geocoder service error")
)

// classify：把底层传输错误归入 ErrTimeout 或 ErrService
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrService) {
		return err
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrService, err)
}

// IsTimeout：是否为可重试的超时类错误
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

func failClass(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrService):
		return "service"
	}
	return "other"
}
