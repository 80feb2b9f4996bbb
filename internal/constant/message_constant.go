package constant

// User-facing error texts. They never carry internal details.
const (
	MessageUnauthorized      = "No autorizado"
	MessageSessionNotFound   = "Sesión no encontrada"
	MessageProfileError      = "Error verificando perfil"
	MessageUsageLimitReached = "Límite de uso alcanzado"
	MessageSaveFailed        = "Error guardando mensaje"
	MessageStreamFailed      = "Error procesando respuesta"
	MessageInternalError     = "Error interno del servidor"
	MessageInvalidRequest    = "Solicitud inválida"
	MessageInvalidTransition = "Transición de estado no permitida"
	MessageTurnInProgress    = "Ya hay una respuesta en curso"
)
