package i18n

// Keys mirror internal/platform/errors codes; the strings are duplicated to
// keep this package free of an import cycle.
var enUS = map[string]string{
	"UNKNOWN":                          "Something went wrong. Please try again.",
	"ID_REQUIRED":                      "An identifier is required.",
	"UNAUTHENTICATED":                  "Sign in to continue.",
	"PERMISSION_DENIED":                "You are not allowed to perform this action.",
	"NOT_FOUND":                        "The requested record does not exist.",
	"VERSION_CONFLICT":                 "The record changed while you were working. Reload and try again.",
	"CURRENCY_INVALID":                 "Currency {{.Currency}} is not supported.",
	"ADDRESS_INVALID":                  "Wallet address is required.",
	"AMOUNT_INVALID":                   "Amount must be greater than zero.",
	"REVIEW_NOTE_TOO_LONG":             "Review note is too long.",
	"ROLE_INVALID":                     "Role {{.Role}} is not recognized.",
	"RESOLUTION_NOTE_MISSING":          "A note is required when rejecting a manual donation.",
	"REQUEST_INVALID":                  "The request could not be read.",
	"CAMPAIGN_NAME_EMPTY":              "Campaign name is required.",
	"CAMPAIGN_TARGET_INVALID":          "Campaign target must be greater than zero.",
	"CAMPAIGN_ALREADY_CLOSED":          "This campaign is already closed.",
	"CAMPAIGN_CLOSED":                  "This campaign is closed.",
	"CAMPAIGN_NOT_ACCEPTING_DONATIONS": "This campaign is not accepting donations.",
	"DONATION_OVER_TARGET":             "This donation would exceed the campaign target of {{.Target}}.",
	"DONATION_CURRENCY_MISMATCH":       "This campaign only accepts {{.Currency}}.",
	"DONATION_NOT_PENDING":             "This donation has already been resolved.",
	"DONATION_NOT_MANUAL":              "Only manual donations can be resolved by an operator.",
	"PARTY_NAME_EMPTY":                 "Name is required.",
	"PARTY_ROLE_INVALID":               "Registration must be for a vendor or a beneficiary.",
	"PARTY_NOT_PENDING":                "This application has already been reviewed.",
	"PARTY_NOT_APPROVED":               "The beneficiary has not been approved.",
	"PARTY_ROLE_MISMATCH":              "The party does not have the required role.",
	"PARTY_SUPERSEDE_INVALID":          "Only your own rejected application can be replaced.",
	"PACKAGE_CATEGORY_EMPTY":           "Package category is required.",
	"PACKAGE_NOT_ISSUED":               "This package is no longer awaiting receipt.",
	"INSUFFICIENT_FUNDING":             "Remaining campaign funding ({{.Remaining}}) is not enough for this package.",
	"ORACLE_UNAVAILABLE":               "The chain ledger could not be reached. Please try again later.",
}

var es419 = map[string]string{
	"UNKNOWN":                          "Algo salió mal. Inténtalo de nuevo.",
	"ID_REQUIRED":                      "Se requiere un identificador.",
	"UNAUTHENTICATED":                  "Inicia sesión para continuar.",
	"PERMISSION_DENIED":                "No tienes permiso para realizar esta acción.",
	"NOT_FOUND":                        "El registro solicitado no existe.",
	"VERSION_CONFLICT":                 "El registro cambió mientras trabajabas. Recarga e inténtalo de nuevo.",
	"CURRENCY_INVALID":                 "La moneda {{.Currency}} no está soportada.",
	"ADDRESS_INVALID":                  "Se requiere la dirección de la billetera.",
	"AMOUNT_INVALID":                   "El monto debe ser mayor que cero.",
	"REVIEW_NOTE_TOO_LONG":             "La nota de revisión es demasiado larga.",
	"ROLE_INVALID":                     "El rol {{.Role}} no es reconocido.",
	"RESOLUTION_NOTE_MISSING":          "Se requiere una nota al rechazar una donación manual.",
	"REQUEST_INVALID":                  "No se pudo leer la solicitud.",
	"CAMPAIGN_NAME_EMPTY":              "El nombre de la campaña es obligatorio.",
	"CAMPAIGN_TARGET_INVALID":          "La meta de la campaña debe ser mayor que cero.",
	"CAMPAIGN_ALREADY_CLOSED":          "Esta campaña ya está cerrada.",
	"CAMPAIGN_CLOSED":                  "Esta campaña está cerrada.",
	"CAMPAIGN_NOT_ACCEPTING_DONATIONS": "Esta campaña no acepta donaciones.",
	"DONATION_OVER_TARGET":             "Esta donación superaría la meta de la campaña de {{.Target}}.",
	"DONATION_CURRENCY_MISMATCH":       "Esta campaña solo acepta {{.Currency}}.",
	"DONATION_NOT_PENDING":             "Esta donación ya fue resuelta.",
	"DONATION_NOT_MANUAL":              "Solo las donaciones manuales pueden ser resueltas por un operador.",
	"PARTY_NAME_EMPTY":                 "El nombre es obligatorio.",
	"PARTY_ROLE_INVALID":               "El registro debe ser de proveedor o de beneficiario.",
	"PARTY_NOT_PENDING":                "Esta solicitud ya fue revisada.",
	"PARTY_NOT_APPROVED":               "El beneficiario no ha sido aprobado.",
	"PARTY_ROLE_MISMATCH":              "La parte no tiene el rol requerido.",
	"PARTY_SUPERSEDE_INVALID":          "Solo puedes reemplazar tu propia solicitud rechazada.",
	"PACKAGE_CATEGORY_EMPTY":           "La categoría del paquete es obligatoria.",
	"PACKAGE_NOT_ISSUED":               "Este paquete ya no está pendiente de recepción.",
	"INSUFFICIENT_FUNDING":             "Los fondos restantes de la campaña ({{.Remaining}}) no alcanzan para este paquete.",
	"ORACLE_UNAVAILABLE":               "No se pudo consultar el libro contable en cadena. Inténtalo más tarde.",
}
