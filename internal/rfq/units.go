package rfq

import "strings"

// Normalized unit vocabulary
const (
	UnitPieces = "pcs"
	UnitKg     = "kg"
	UnitMeter  = "m"
	UnitLiter  = "l"
	UnitLot    = "lot"
	UnitSet    = "set"
	UnitBox    = "box"
	UnitRoll   = "roll"
)

var unitAliases = map[string]string{
	"pcs": UnitPieces, "pc": UnitPieces, "pce": UnitPieces, "pces": UnitPieces,
	"ea": UnitPieces, "each": UnitPieces, "unit": UnitPieces, "units": UnitPieces,
	"u": UnitPieces, "un": UnitPieces, "unite": UnitPieces, "unites": UnitPieces,
	"unité": UnitPieces, "unités": UnitPieces, "piece": UnitPieces, "pieces": UnitPieces,
	"pièce": UnitPieces, "pièces": UnitPieces, "nos": UnitPieces, "no": UnitPieces,
	"nr": UnitPieces, "ens": UnitSet, "pair": UnitSet, "pr": UnitSet, "paire": UnitSet,

	"kg": UnitKg, "kgs": UnitKg, "kilo": UnitKg, "kilos": UnitKg, "kilogram": UnitKg, "kilogramme": UnitKg,

	"m": UnitMeter, "mtr": UnitMeter, "mtrs": UnitMeter, "ml": UnitMeter, "meter": UnitMeter,
	"meters": UnitMeter, "metre": UnitMeter, "metres": UnitMeter, "mètre": UnitMeter, "mètres": UnitMeter,

	"l": UnitLiter, "lt": UnitLiter, "ltr": UnitLiter, "ltrs": UnitLiter, "litre": UnitLiter,
	"litres": UnitLiter, "liter": UnitLiter, "liters": UnitLiter,

	"lot": UnitLot, "lots": UnitLot,

	"set": UnitSet, "sets": UnitSet, "kit": UnitSet, "kits": UnitSet, "jeu": UnitSet, "jeux": UnitSet,

	"box": UnitBox, "boxes": UnitBox, "bx": UnitBox, "boite": UnitBox, "boîte": UnitBox,
	"boites": UnitBox, "boîtes": UnitBox, "ctn": UnitBox, "carton": UnitBox, "cartons": UnitBox,

	"roll": UnitRoll, "rolls": UnitRoll, "rl": UnitRoll, "rlx": UnitRoll, "rouleau": UnitRoll, "rouleaux": UnitRoll,
}

func unitKey(raw string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(raw)), ".()")
}

// NormalizeUnit maps a unit of measure as written in a document to the
// normalized vocabulary. Unknown or empty units map to pcs.
func NormalizeUnit(raw string) string {
	if u, ok := unitAliases[unitKey(raw)]; ok {
		return u
	}
	return UnitPieces
}

// IsUnit reports whether raw is a recognized unit of measure.
func IsUnit(raw string) bool {
	_, ok := unitAliases[unitKey(raw)]
	return ok
}

// UnitPattern is a regexp alternation of the unit spellings that are safe to
// match inside free text, longest first.
const UnitPattern = `pièces|pieces|pièce|piece|unités|unites|unité|unite|units|unit|each|rouleaux|rouleau|rolls|roll|mètres|metres|meters|mètre|metre|meter|litres|liters|litre|liter|cartons|carton|boîtes|boites|boîte|boite|boxes|box|kits|kit|jeux|jeu|sets|set|lots|lot|kgs|kg|mtrs|mtr|ltrs|ltr|pcs|pces|pce|pc|ea|nos|ml|m|l|u`
