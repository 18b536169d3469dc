package services

import (
	"errors"
	"fmt"
)

// Общие ошибки, используемые сервисами и командами CLI.
var (
	// Сущность по идентификатору не найдена (лига, пользователь, результат, участник)
	ErrNotFound = errors.New("not found")

	// Нарушена обязательная связь между данными
	ErrDataIntegrity = errors.New("data integrity violation")

	// Атомарный блок миграции не был зафиксирован
	ErrTransactionAborted = errors.New("transaction aborted")

	ErrLeagueNotFound       = fmt.Errorf("league %w", ErrNotFound)
	ErrLeagueMemberNotFound = fmt.Errorf("league member %w", ErrNotFound)
	ErrTournamentNotFound   = fmt.Errorf("completed league tournament %w", ErrNotFound)
	ErrScoreNotFound        = fmt.Errorf("tournament score %w", ErrNotFound)
	ErrNoLegacyData         = fmt.Errorf("legacy society data %w", ErrNotFound)
)
