package domain

import "errors"

// Таксономия ошибок ядра. Каждая ошибка per-event перехватывается локально
// и превращается в event "error" для клиента - ни одна не должна ронять процесс.
var (
	// ErrValidation - отсутствующие или кривые поля запроса. Состояние не меняется.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized - невалидный токен, не лидер пати, не участник. Состояние не меняется.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound - пати/инстанс/враг/дроп не существует.
	ErrNotFound = errors.New("not found")

	// ErrExhausted - кончились заряды фляги, энергия, места в пати.
	ErrExhausted = errors.New("resource exhausted")

	// ErrUnavailable - instance-сервер недоступен при создании. Пробрасывается
	// запросившему без ретраев; регистрация инстанса откатывается.
	ErrUnavailable = errors.New("unavailable")
)
