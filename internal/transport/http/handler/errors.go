package handler

import (
	"errors"

	"freshtrack/internal/domain"
	"freshtrack/internal/feature/inventory"
	"freshtrack/internal/transport/http/ez"
	resp "freshtrack/internal/transport/http/response"
)

// authErr 把会话错误映射成接口错误码，文案直接给用户看
func authErr(err error) error {
	var ae *domain.AuthError
	if !errors.As(err, &ae) {
		return ez.Internal(domain.MsgLoginFailed, err)
	}
	code := resp.CodeServerError
	switch ae.Kind {
	case domain.KindValidation:
		code = resp.CodeBadRequest
	case domain.KindNotFound:
		code = resp.CodeNotFound
	case domain.KindInactiveAccount:
		code = resp.CodeForbidden
	}
	return &ez.AErr{Code: code, Msg: ae.Msg, Err: err}
}

func directoryErr(err error) error {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return ez.NotFound("Benutzer nicht gefunden")
	default:
		return ez.Internal("directory error", err)
	}
}

func inventoryErr(err error) error {
	switch {
	case errors.Is(err, inventory.ErrInvalidInput):
		return &ez.AErr{Code: resp.CodeBadRequest, Msg: err.Error(), Err: err}
	case errors.Is(err, inventory.ErrProductNotFound):
		return ez.NotFound("Produkt nicht gefunden")
	case errors.Is(err, inventory.ErrDuplicateBarcode):
		return ez.Conflict("Barcode bereits vergeben")
	case errors.Is(err, inventory.ErrInsufficientStock):
		return ez.Conflict("Bestand reicht nicht aus")
	default:
		return ez.Internal("inventory error", err)
	}
}
