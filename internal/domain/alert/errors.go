package alert

import (
	"errors"
	"fmt"
)

// ErrNoPrice 表示報價來源沒有提供可用價格。
var ErrNoPrice = errors.New("price unavailable")

// ValidationError 輸入欄位錯誤，不會寫入儲存層。
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// StorageError 包裝底層儲存失敗。
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// WrapStorage 將 err 包成 StorageError；nil 保持 nil。
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsValidation 判斷是否為輸入驗證錯誤。
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsStorage 判斷是否為儲存層錯誤。
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
