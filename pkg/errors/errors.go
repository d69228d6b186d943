package errors

import (
	"errors"
	"fmt"

	"coinpilot/pkg/errors/ecode"
)

// 带业务错误码的error，响应层通过DecodeErr还原code和message
type withCode struct {
	code    int
	message string
	cause   error
}

func (e *withCode) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *withCode) Unwrap() error {
	return e.cause
}

func New(message string) error {
	return errors.New(message)
}

// WithCode 创建一个带错误码的error
func WithCode(code int, format string, args ...interface{}) error {
	return &withCode{
		code:    code,
		message: fmt.Sprintf(format, args...),
	}
}

// Wrap 包装底层错误并附加错误码，err为nil时等同于WithCode
func Wrap(err error, code int, message string) error {
	return &withCode{
		code:    code,
		message: message,
		cause:   err,
	}
}

func Wrapf(err error, code int, format string, args ...interface{}) error {
	return &withCode{
		code:    code,
		message: fmt.Sprintf(format, args...),
		cause:   err,
	}
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// DecodeErr 从error中解出错误码和提示信息
func DecodeErr(err error) (int, string) {
	if err == nil {
		return ecode.Success, "OK"
	}
	var coded *withCode
	if errors.As(err, &coded) {
		return coded.code, coded.message
	}
	return ecode.Unknown, err.Error()
}
