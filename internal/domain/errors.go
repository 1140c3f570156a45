package domain

import (
	"errors"
)

// Ошибки валидации бронирования и переходов жизненного цикла записи.
// Возвращаются как типизированные значения и проверяются через errors.Is;
// ни одна из них не фатальна — повторная отправка запроса с актуальными
// данными допустима для любой операции.
var (
	ErrInsufficientCredits = errors.New("недостаточно кредитов для записи на прием")
	ErrSlotNotFree         = errors.New("выбранный слот времени недоступен")
	ErrLeadTimeViolation   = errors.New("время начала приема уже прошло")
	ErrNotYetEndable       = errors.New("прием еще не завершился")
	ErrAlreadyStarted      = errors.New("прием уже начался")
	ErrNotJoinable         = errors.New("видеосессия доступна только в окне подключения")
	ErrAlreadyTerminal     = errors.New("запись находится в конечном статусе")

	// ErrStorageConflict — проигранная гонка на шаге атомарного создания.
	// Для клиента неотличима от ErrSlotNotFree.
	ErrStorageConflict = errors.New("слот был занят параллельным запросом")

	ErrNotFound = errors.New("не найдено")
)
