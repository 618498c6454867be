package bot

import "github.com/tbourn/go-lookup-bot/internal/telegram"

// Button labels.
const (
	BtnSignature = "📝 Consulta de firma"
	BtnPerson    = "🧍 Consulta de persona"
	BtnVehicle   = "🚗 Consulta de vehículo"
	BtnOwner     = "👤 Propietario por placa"
	BtnBack      = "⬅ Volver al menú"

	BtnDocCC  = "CC - Cédula"
	BtnDocTI  = "TI - Tarjeta de identidad"
	BtnDocNIT = "NIT - NIT"
)

func mainMenu() *telegram.ReplyKeyboardMarkup {
	return telegram.Keyboard(
		[]string{BtnSignature, BtnPerson},
		[]string{BtnVehicle, BtnOwner},
	)
}

func docTypeMenu() *telegram.ReplyKeyboardMarkup {
	return telegram.Keyboard(
		[]string{BtnDocCC, BtnDocTI},
		[]string{BtnDocNIT},
		[]string{BtnBack},
	)
}

// docTypeButtons maps a document type button to its code.
var docTypeButtons = map[string]string{
	BtnDocCC:  "CC",
	BtnDocTI:  "TI",
	BtnDocNIT: "NIT",
}
