package services

import (
	"errors"
	"fmt"
	"strings"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	ErrUserNotFound       = errors.New("user not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrPerformerNotFound  = errors.New("performer not found")
	ErrPoolNotFound       = errors.New("pool not found")
	ErrBattleNotFound     = errors.New("battle not found")

	// Конфликты состояния: гонка или устаревшее представление клиента.
	// Все заворачиваются в ErrStateConflict, хендлеры отвечают 409.
	ErrStateConflict = errors.New("state conflict")

	ErrBattleNotActive         = fmt.Errorf("%w: battle is not active", ErrStateConflict)
	ErrBattleNotPending        = fmt.Errorf("%w: battle is not pending", ErrStateConflict)
	ErrBattleOnDeck            = fmt.Errorf("%w: battle is on deck and cannot be moved", ErrStateConflict)
	ErrPhaseConflict           = fmt.Errorf("%w: tournament phase changed concurrently", ErrStateConflict)
	ErrTournamentFinished      = fmt.Errorf("%w: tournament is completed or canceled", ErrStateConflict)
	ErrAnotherTournamentActive = fmt.Errorf("%w: another tournament is already active", ErrStateConflict)

	// Конфликты данных
	ErrUserEmailConflict    = errors.New("email address is already in use")
	ErrUserNicknameConflict = errors.New("nickname is already in use")
	ErrCategoryNameConflict = errors.New("category name is already in use in this tournament")
	ErrDancerAlreadyEntered = errors.New("dancer already has a performer record in this tournament")

	// Ошибки аутентификации и доступа
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPasswordTooShort   = errors.New("password is too short")
	ErrForbidden          = errors.New("operation is not allowed for this user")
)

// ValidationError собирает ВСЕ нарушения бизнес-правил за один проход,
// чтобы клиент получил полный список, а не первое попавшееся.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

func newValidationError(violations ...string) *ValidationError {
	return &ValidationError{Violations: violations}
}

// violationList накапливает нарушения по ходу проверок.
type violationList struct {
	violations []string
}

func (v *violationList) addf(format string, args ...interface{}) {
	v.violations = append(v.violations, fmt.Sprintf(format, args...))
}

func (v *violationList) err() error {
	if len(v.violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: v.violations}
}
