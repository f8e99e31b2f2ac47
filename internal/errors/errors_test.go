package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrInvalidParams:        http.StatusBadRequest,
		ErrUnknownAction:        http.StatusBadRequest,
		ErrUnauthorized:         http.StatusUnauthorized,
		ErrUnsupportedMedia:     http.StatusUnsupportedMediaType,
		ErrRecordNotFound:       http.StatusNotFound,
		ErrUnknownApp:           http.StatusNotFound,
		ErrBackupConfigNotFound: http.StatusNotFound,
		ErrRecordAlreadyExists:  http.StatusConflict,
		ErrNoProvider:           http.StatusServiceUnavailable,
		ErrUpstreamFailed:       http.StatusBadGateway,
		ErrCommandFailed:        http.StatusInternalServerError,
		ErrDatabaseWrite:        http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, New(code, "").HTTPStatus(), "code %d", code)
	}
}

func TestWrapKeepsChain(t *testing.T) {
	cause := stderrors.New("disk full")
	err := fmt.Errorf("save: %w", Wrap(ErrDatabaseWrite, "", cause))

	assert.True(t, HasCode(err, ErrDatabaseWrite))
	assert.False(t, HasCode(err, ErrDatabaseQuery))
	assert.ErrorIs(t, err, cause)

	appErr, ok := GetAppError(err)
	assert.True(t, ok)
	assert.Equal(t, "disk full", appErr.Details)
	assert.Equal(t, "[6001] Database Write Error: disk full", appErr.Error())

	assert.False(t, HasCode(cause, ErrDatabaseWrite))
	assert.False(t, HasCode(nil, ErrDatabaseWrite))
}

func TestLocalizedMessages(t *testing.T) {
	err := Newf(ErrUnknownApp, "app %q", "vim")
	assert.Equal(t, "Unknown Application", err.Message)
	assert.Equal(t, `app "vim"`, err.Details)
	assert.Equal(t, "未知应用", err.Localized("zh-CN,zh;q=0.9"))
	assert.Equal(t, "Unknown Application", err.Localized("fr"))
	assert.Equal(t, "Unknown Error", GetErrorMessageWithLang(ErrorCode(9999), "en"))
}
