package rules

// Keyword tables for the deterministic engine. Feedback is mostly Spanish
// with some English mixed in, so both are covered. Matching is done on
// lower-cased text with strings.Contains, so multi-word entries work too.

var positiveKeywords = []string{
	"excelente", "bueno", "buena", "buen ", "genial", "perfecto", "perfecta",
	"rápido", "rapido", "rápida", "rapida", "encanta", "satisfecho",
	"satisfecha", "recomiendo", "amable", "feliz", "contento", "contenta",
	"gracias", "increíble", "increible", "fantástico", "fantastico",
	"mejor", "funciona bien", "great", "excellent", "good", "fast", "love",
}

var negativeKeywords = []string{
	"malo", "mala", "pésimo", "pesimo", "pésima", "pesima", "terrible",
	"horrible", "lento", "lenta", "caro", "cara", "problema", "falla",
	"fallas", "error", "nunca", "peor", "cancelar", "fraude", "estafa",
	"molesto", "molesta", "queja", "demora", "corte", "cortes", "injusto",
	"deficiente", "decepcionado", "decepcionada", "harto", "harta",
	"bad", "slow", "awful", "worst", "expensive", "broken",
}

// Strong cues used by the overseer's plausibility spot-check: a comment
// carrying one of these but classified with the opposite sentiment is
// suspicious.
var strongPositiveCues = []string{
	"excelente", "perfecto", "encanta", "increíble", "increible",
	"fantástico", "fantastico", "excellent", "love",
}

var strongNegativeCues = []string{
	"pésimo", "pesimo", "terrible", "horrible", "fraude", "estafa",
	"peor", "awful", "worst",
}

var themeKeywords = map[string][]string{
	"atencion_cliente": {"atención", "atencion", "servicio", "soporte", "agente", "asesor", "trato", "support"},
	"precio":           {"precio", "caro", "cara", "tarifa", "costo", "barato", "plan", "price", "expensive"},
	"facturacion":      {"factura", "facturación", "facturacion", "cobro", "cargo", "pago", "saldo", "billing"},
	"conectividad":     {"señal", "senal", "internet", "conexión", "conexion", "red", "cobertura", "velocidad", "wifi", "datos", "signal"},
	"instalacion":      {"instalación", "instalacion", "técnico", "tecnico", "visita", "cita", "equipo"},
	"calidad_servicio": {"calidad", "corte", "cortes", "intermitencia", "interrupciones", "falla", "fallas"},
}

var painPointKeywords = map[string][]string{
	"conexion_lenta":    {"lento", "lenta", "lentitud", "velocidad baja", "se traba", "slow"},
	"cortes_servicio":   {"corte", "cortes", "intermitencia", "sin servicio", "se cae", "sin señal", "sin senal"},
	"cobro_indebido":    {"cobro indebido", "doble cobro", "cargo no reconocido", "me cobraron", "cobro de más", "cobro de mas"},
	"mala_atencion":     {"mala atención", "mala atencion", "no resuelven", "no contestan", "grosero", "grosera", "no me ayudaron"},
	"demora_soporte":    {"demora", "espera", "tardaron", "horas esperando", "sin respuesta"},
	"precio_alto":       {"muy caro", "muy cara", "subió", "subio", "aumento", "carísimo", "carisimo"},
	"falla_tecnica":     {"falla", "fallas", "error", "no funciona", "dañado", "danado", "broken"},
}

// Churn severity tables. Critical keywords outweigh medium ones.
var churnCriticalKeywords = []string{
	"cancelar", "dar de baja", "darme de baja", "cambiar de compañía",
	"cambiar de compania", "cambiarme", "me voy", "demanda", "fraude",
	"estafa", "nunca funciona", "harto", "harta", "última vez", "ultima vez",
}

var churnMediumKeywords = []string{
	"molesto", "molesta", "decepcionado", "decepcionada", "queja",
	"otra vez", "de nuevo", "sigue fallando", "no resuelven",
	"problema recurrente", "cansado", "cansada",
}

// emotionEntry maps an emotion to its trigger keywords and base intensity.
// Final intensity is base scaled by the result confidence.
type emotionEntry struct {
	keywords []string
	base     float64
}

var emotionLexicon = map[string]emotionEntry{
	"alegria":      {keywords: []string{"feliz", "contento", "contenta", "encanta", "genial", "excelente"}, base: 0.8},
	"gratitud":     {keywords: []string{"gracias", "agradecido", "agradecida"}, base: 0.7},
	"satisfaccion": {keywords: []string{"satisfecho", "satisfecha", "conforme", "recomiendo", "perfecto"}, base: 0.6},
	"enojo":        {keywords: []string{"furioso", "furiosa", "indignado", "indignada", "harto", "harta", "pésimo", "pesimo", "terrible"}, base: 0.9},
	"frustracion":  {keywords: []string{"frustrado", "frustrada", "otra vez", "no funciona", "sigue fallando", "cansado de", "cansada de"}, base: 0.8},
	"decepcion":    {keywords: []string{"decepcionado", "decepcionada", "esperaba más", "esperaba mas", "peor"}, base: 0.7},
	"preocupacion": {keywords: []string{"preocupado", "preocupada", "duda", "no entiendo", "confundido", "confundida"}, base: 0.5},
}

// Fallback dominant emotions when no lexicon entry matches; intensity still
// has to be derivable for every comment.
var defaultEmotionBase = map[string]float64{
	"satisfaccion": 0.6,
	"frustracion":  0.8,
	"neutral":      0.3,
}
