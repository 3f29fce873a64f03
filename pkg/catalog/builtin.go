package catalog

// Builtin returns the standard scalar types together with their casts,
// operators and functions. Every call returns a fresh copy.
func Builtin() *Definition {
	def := &Definition{
		Types: []TypeDef{
			{Name: "bool", Category: "boolean"},
			{Name: "int4", Category: "numeric", Integral: true},
			{Name: "int8", Category: "numeric", Integral: true},
			{Name: "numeric", Category: "numeric", Modifier: "numeric"},
			{Name: "float8", Category: "numeric"},
			{Name: "text", Category: "string"},
			{Name: "varchar", Category: "string", Modifier: "length"},
			{Name: "bpchar", Category: "string", Modifier: "padlength"},
			{Name: "date", Category: "datetime"},
			{Name: "timestamp", Category: "datetime"},
		},
		Casts: []CastDef{
			// numeric widening
			{From: "int4", To: "int8", Kind: "implicit"},
			{From: "int4", To: "numeric", Kind: "implicit"},
			{From: "int4", To: "float8", Kind: "implicit"},
			{From: "int8", To: "numeric", Kind: "implicit"},
			{From: "int8", To: "float8", Kind: "implicit"},
			{From: "numeric", To: "float8", Kind: "implicit"},

			// numeric narrowing
			{From: "int8", To: "int4", Kind: "explicit"},
			{From: "numeric", To: "int4", Kind: "explicit"},
			{From: "numeric", To: "int8", Kind: "explicit"},
			{From: "float8", To: "int4", Kind: "explicit"},
			{From: "float8", To: "int8", Kind: "explicit"},
			{From: "float8", To: "numeric", Kind: "explicit"},

			// strings
			{From: "varchar", To: "text", Kind: "implicit", Method: "relabel"},
			{From: "text", To: "varchar", Kind: "implicit", Method: "relabel"},
			{From: "bpchar", To: "text", Kind: "implicit"},
			{From: "bpchar", To: "varchar", Kind: "implicit"},
			{From: "text", To: "bpchar", Kind: "explicit"},
			{From: "varchar", To: "bpchar", Kind: "explicit"},

			// datetime
			{From: "date", To: "timestamp", Kind: "implicit"},
			{From: "timestamp", To: "date", Kind: "explicit"},

			// bool <-> int4
			{From: "bool", To: "int4", Kind: "explicit"},
			{From: "int4", To: "bool", Kind: "explicit"},
		},
	}

	// Every scalar converts to and from text through its I/O functions.
	for _, t := range []string{"bool", "int4", "int8", "numeric", "float8", "date", "timestamp"} {
		def.Casts = append(def.Casts,
			CastDef{From: t, To: "text", Kind: "explicit", Method: "io"},
			CastDef{From: "text", To: t, Kind: "explicit", Method: "io"},
		)
	}

	numerics := []string{"int4", "int8", "numeric", "float8"}
	for _, t := range numerics {
		for _, op := range []string{"+", "-", "*", "/"} {
			def.Operators = append(def.Operators, SignatureDef{Name: op, Args: []string{t, t}, Returns: t})
		}
		def.Operators = append(def.Operators,
			SignatureDef{Name: "-", Args: []string{t}, Returns: t},
			SignatureDef{Name: "+", Args: []string{t}, Returns: t},
		)
		def.Functions = append(def.Functions, SignatureDef{Name: "abs", Args: []string{t}, Returns: t})
	}
	for _, t := range []string{"int4", "int8", "numeric"} {
		def.Operators = append(def.Operators, SignatureDef{Name: "%", Args: []string{t, t}, Returns: t})
	}

	comparable := []string{"bool", "int4", "int8", "numeric", "float8", "text", "bpchar", "date", "timestamp"}
	for _, t := range comparable {
		for _, op := range []string{"=", "<>", "<", ">", "<=", ">="} {
			def.Operators = append(def.Operators, SignatureDef{Name: op, Args: []string{t, t}, Returns: "bool"})
		}
		def.Functions = append(def.Functions, SignatureDef{Name: "count", Args: []string{t}, Returns: "int8"})
	}

	def.Operators = append(def.Operators,
		SignatureDef{Name: "||", Args: []string{"text", "text"}, Returns: "text"},
		SignatureDef{Name: "^", Args: []string{"float8", "float8"}, Returns: "float8"},
	)

	def.Functions = append(def.Functions,
		SignatureDef{Name: "lower", Args: []string{"text"}, Returns: "text"},
		SignatureDef{Name: "upper", Args: []string{"text"}, Returns: "text"},
		SignatureDef{Name: "length", Args: []string{"text"}, Returns: "int4"},
		SignatureDef{Name: "round", Args: []string{"numeric"}, Returns: "numeric"},
		SignatureDef{Name: "round", Args: []string{"numeric", "int4"}, Returns: "numeric"},
		SignatureDef{Name: "now", Args: []string{}, Returns: "timestamp"},
		SignatureDef{Name: "count", Args: []string{}, Returns: "int8"},
	)

	return def
}
