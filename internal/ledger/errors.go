package ledger

import (
	"errors"
	"fmt"
)

// Kind 账本错误分类，取值固定，传输层按它映射响应
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindInvalidLicense
	KindLicenseRevoked
	KindLicenseExpired
	KindAlreadyActivated
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "InvalidInput"
	case KindInvalidLicense:
		return "InvalidLicense"
	case KindLicenseRevoked:
		return "LicenseRevoked"
	case KindLicenseExpired:
		return "LicenseExpired"
	case KindAlreadyActivated:
		return "AlreadyActivated"
	case KindStorage:
		return "Storage"
	default:
		return "Unknown"
	}
}

// Retryable 相同请求原样重试是否可能成功
func (k Kind) Retryable() bool {
	return k == KindStorage
}

// Error Activate / Verify 返回的错误类型
type Error struct {
	Kind Kind
	Key  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Key != "" {
		msg = fmt.Sprintf("%s: license %q", msg, e.Key)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is 按 Kind 比较，配合下面的哨兵错误使用 errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidInput     = &Error{Kind: KindInvalidInput}
	ErrInvalidLicense   = &Error{Kind: KindInvalidLicense}
	ErrLicenseRevoked   = &Error{Kind: KindLicenseRevoked}
	ErrLicenseExpired   = &Error{Kind: KindLicenseExpired}
	ErrAlreadyActivated = &Error{Kind: KindAlreadyActivated}
	ErrStorage          = &Error{Kind: KindStorage}
)

// ErrNotFound Store.FindLicense 在记录不存在时返回
var ErrNotFound = errors.New("license record not found")

// KindOf 取出 err 的 Kind，非账本错误返回 KindUnknown
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindUnknown
}

func newError(kind Kind, key string, err error) *Error {
	return &Error{Kind: kind, Key: key, Err: err}
}
