package domain

import (
	"errors"
	"fmt"
)

// 目录查询错误
var (
	ErrUserNotFound = errors.New("directory: user not found")
	// ErrUserInactive 包裹 ErrUserNotFound：只关心“找不到”的调用方无需区分
	ErrUserInactive         = fmt.Errorf("%w: account inactive", ErrUserNotFound)
	ErrDirectoryUnavailable = errors.New("directory: unavailable")
)

// 会话操作错误分类
var (
	ErrValidation      = errors.New("auth: validation failed")
	ErrNotFound        = errors.New("auth: user not found")
	ErrInactiveAccount = errors.New("auth: account inactive")
	ErrStorage         = errors.New("auth: storage failure")
)

type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindNotFound
	KindInactiveAccount
	KindStorage
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindInactiveAccount:
		return "inactive_account"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindNotFound:
		return ErrNotFound
	case KindInactiveAccount:
		return ErrInactiveAccount
	case KindStorage:
		return ErrStorage
	default:
		return nil
	}
}

// 面向用户的提示文案
const (
	MsgUsernameRequired = "Bitte Benutzername eingeben"
	MsgUserNotFound     = "Benutzer nicht gefunden"
	MsgAccountInactive  = "Benutzerkonto ist deaktiviert"
	MsgLoginFailed      = "Anmeldung fehlgeschlagen"
)

// AuthError 会话操作失败：Msg 给用户看，Err 是底层原因
type AuthError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func NewAuthError(kind ErrorKind, msg string, cause error) *AuthError {
	return &AuthError{Kind: kind, Msg: msg, Err: cause}
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is 让 errors.Is(err, ErrStorage) 等按分类匹配
func (e *AuthError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf 取出错误分类；非 AuthError 返回 0
func KindOf(err error) ErrorKind {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return 0
}
