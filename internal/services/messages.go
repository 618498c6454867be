package services

import "fmt"

// User-facing templates. Internal detail (exception text, raw payloads) is
// never shown to end users; it is persisted on the lookup record instead.
const (
	MsgWelcome = "👋 *Bienvenido al bot de consultas*\n\n" +
		"Estoy listo para tus consultas ✅\n\n" +
		"👉 Elige una opción con los botones de abajo.\n" +
		"👉 O usa el modo rápido, por ejemplo:\n" +
		"`CC 123456789` (consulta de *firma*)\n\n" +
		"Escribe `/saldo` para ver tus créditos."

	MsgKindDisabled = "⚠️ Esta consulta está deshabilitada."

	MsgInsufficientCredits = "⚠️ No tienes créditos suficientes para realizar esta consulta.\n\n" +
		"Si crees que esto es un error, contacta con el administrador."

	MsgGenericError = "❌ Ocurrió un error realizando la consulta.\n\n" +
		"Por favor inténtalo de nuevo más tarde. " +
		"Si el problema persiste, contacta con el administrador."

	MsgNoData = "ℹ️ La consulta se realizó correctamente pero no se encontraron " +
		"datos para los parámetros enviados."
)

// BalanceMessage renders the /saldo answer.
func BalanceMessage(b Balance) string {
	return fmt.Sprintf("💰 *Tu saldo de créditos*\n\n"+
		"Créditos totales: `%d`\n"+
		"Créditos usados: `%d`\n"+
		"Créditos disponibles: `%d`\n", b.Total, b.Used, b.Available)
}
