// Package errors 提供统一错误辅助，不依赖 internal
package errors

import (
	"errors"
	"fmt"
)

// 常用哨兵错误
var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidArg           = errors.New("invalid argument")
	ErrMultipleObjectsFound = errors.New("multiple objects found")
)

// Wrap 包装错误并附加消息
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 带格式的 Wrap
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// InvalidArgf 构造一个可被 errors.Is(err, ErrInvalidArg) 识别的参数错误
func InvalidArgf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArg, fmt.Sprintf(format, args...))
}

// IsNotFound 判断 err 链中是否含 ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
