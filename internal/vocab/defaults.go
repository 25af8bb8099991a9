package vocab

var defaultBrands = []string{
	"SKF", "FAG", "INA", "NSK", "NTN", "Timken", "Koyo", "SNR",
	"Schneider", "Schneider Electric", "Telemecanique", "Siemens", "ABB", "Legrand", "Hager",
	"Merlin Gerin", "Eaton", "Moeller", "Allen Bradley", "Rockwell", "Omron", "Mitsubishi",
	"Phoenix Contact", "Weidmuller", "Wago", "Finder", "Pilz", "Sick", "Pepperl+Fuchs",
	"IFM", "Balluff", "Endress+Hauser", "Endress Hauser", "Vega", "Wika", "Danfoss",
	"Grundfos", "KSB", "Wilo", "Flygt", "Lowara", "Ebara", "Leroy Somer", "WEG",
	"SEW", "SEW Eurodrive", "Nord", "Bonfiglioli", "Flender", "Lenze", "Parker",
	"Festo", "SMC", "Bosch", "Rexroth", "Bosch Rexroth", "Hydac", "Vickers", "Danfoss Power",
	"Caterpillar", "Komatsu", "Volvo", "Perkins", "Cummins", "Deutz", "John Deere",
	"Atlas Copco", "Ingersoll Rand", "Kaeser", "Gates", "Optibelt", "Continental",
	"Trelleborg", "Freudenberg", "Garlock", "Klinger", "Fluke", "Honeywell", "Emerson",
	"Fisher", "Samson", "Spirax Sarco", "Yokogawa", "Krohne", "Dwyer", "Testo",
	"3M", "Loctite", "Henkel", "Mobil", "Shell", "Total", "Castrol", "Makita", "Hilti", "Facom",
	"Stanley", "Beta", "Dewalt", "Sandvik", "Kennametal", "Lincoln", "Esab",
}

// Filename keywords that point at a technical sheet
var defaultTechKeywords = []string{
	"fiche technique", "fiche_technique", "fichetechnique", "fiche-technique", "datasheet",
	"data sheet", "data_sheet", "technical", "technique", "specification", "spec sheet",
	"catalogue", "catalog", "brochure", "notice", "manual", "manuel", "documentation",
	"drawing", "dessin", "schema", "certificat", "certificate", "tds", "ft_", "plan_",
}

// Filename keywords that point at a request for quotation
var defaultRFQKeywords = []string{
	"rfq", "demande", "devis", "quotation", "quote", "cotation", "consultation",
	"achat", "purchase", "requisition", "pr_", "da_", "commande", "order", "besoin",
	"liste", "list", "bom", "nomenclature", "appel d'offre", "appel_offre", "ao_", "tender",
	"inquiry", "enquiry", "request", "pièces", "pieces", "spare",
}

// Equipment vocabulary used by the email sentence patterns
var defaultTechnicalTerms = []string{
	"roulement", "bearing", "palier", "pompe", "pump", "moteur", "motor", "motoreducteur",
	"reducteur", "gearbox", "vanne", "valve", "robinet", "filtre", "filter", "joint", "seal",
	"garniture", "courroie", "belt", "chaine", "chain", "pignon", "sprocket", "accouplement",
	"coupling", "relais", "relay", "contacteur", "contactor", "disjoncteur", "breaker",
	"fusible", "fuse", "capteur", "sensor", "detecteur", "transmetteur", "transmitter",
	"manometre", "gauge", "thermostat", "variateur", "drive", "automate", "plc", "cable",
	"cylindre", "verin", "cylinder", "flexible", "hose", "raccord", "fitting", "electrovanne",
	"solenoid", "compresseur", "compressor", "ventilateur", "fan", "huile", "oil", "graisse",
	"grease", "boulon", "bolt", "ecrou", "nut", "vis", "screw", "rondelle", "washer",
	"bride", "flange", "tuyau", "pipe", "lampe", "lamp", "projecteur", "batterie", "battery",
	"transformateur", "transformer", "alternateur", "alternator", "demarreur", "starter",
	"injecteur", "injector", "turbo", "radiateur", "radiator", "thermocouple", "sonde", "probe",
}

// Substrings (folded, lower case) of lines that belong to letterhead,
// footer or document metadata.
var defaultLetterheadTerms = []string{
	"tel:", "tel.", "tel :", "telephone", "fax", "e-mail", "email:", "www.", "http", "@",
	"siret", "siren", "rcs ", "tva", "vat no", "iban", "bic:", "swift", "capital social",
	"s.a.r.l", "sarl au", "ice:", "patente", "page ", "printed", "imprime le", "date:",
	"requested by", "approved by", "demandeur", "approuve", "signature", "cachet",
	"delivery address", "adresse de livraison", "ship to", "bill to", "buyer", "acheteur",
	"requisition no", "requisition number", "purchase requisition", "pr number", "cost center",
	"centre de cout", "currency", "devise", "status:", "votre ref", "notre ref", "your ref",
	"our ref", "reference:", "reference :",
}

// Form field labels (folded, lower case). A "label: value" line whose label
// is one of these is never a line item by itself.
var defaultFieldLabels = map[FieldKind][]string{
	FieldDescription: {"designation", "description", "article", "libelle", "produit", "objet"},
	FieldQuantity: {"quantite", "qte", "qty", "quantity", "qte demandee", "quantite demandee",
		"qte commandee", "nombre", "nbre"},
	FieldReference: {"ref", "reference", "votre ref", "notre ref", "your ref", "our ref", "ref client",
		"n°", "no", "numero", "code", "code article", "part no", "part number"},
	FieldOther: {"date", "delai", "delai de livraison", "page", "unite", "unit", "uom",
		"lieu de livraison", "validite", "prix", "price"},
}
