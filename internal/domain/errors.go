package domain

import "errors"

// Ошибки доменного уровня. Хендлеры переводят их в HTTP-статусы,
// репозитории заворачивают в них ошибки драйвера.
var (
	// ErrNotFound - ресурс не существует или уже удалён.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict - нарушение уникальности, например имя занято в папке.
	ErrConflict = errors.New("resource conflict")

	// ErrPermissionDenied - у субъекта не хватает уровня доступа.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidOperation - операция нарушает инвариант предметной области.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrStorageUnavailable - хранилище временно недоступно, запрос можно
	// повторить.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
