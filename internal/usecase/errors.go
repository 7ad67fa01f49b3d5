package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrFeedNotReady          = errors.New("feed not ready")
)

// User-facing messages for the two failure domains.
const (
	FeedUnavailableMessage    = "No se pudieron cargar los datos. Por favor, revisa la URL y la configuración de datos compartidos."
	SummaryUnavailableMessage = "No se pudo generar el análisis. Por favor, inténtalo de nuevo."
	NoMatchesMessage          = "No se encontraron partidos que coincidan con los filtros seleccionados."
)

// PublicError carries a fixed message that is safe to show to end users.
// The underlying cause is kept for logs and errors.Is/As, never for display.
type PublicError struct {
	Kind    error
	Message string
	cause   error
}

func newPublicError(kind error, message string, cause error) *PublicError {
	return &PublicError{Kind: kind, Message: message, cause: cause}
}

func (e *PublicError) Error() string {
	return e.Message
}

func (e *PublicError) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

func (e *PublicError) Unwrap() error {
	return e.cause
}
