package types

// Kind tags a DataType variant.
type Kind int

const (
	KindInvalid Kind = iota
	KindNull
	KindBoolean
	KindString
	KindFloat
	KindDouble
	KindInt32
	KindInt64
	KindDate
	KindDateTime
	KindBooleanLiteral
	KindStringLiteral
	KindNumberLiteral
	KindObject
	KindArray
	KindUnion
	KindReference

	// KindAbsent marks an optional union member. It is only meaningful as
	// an argument to NewUnion, which strips it.
	KindAbsent
)

var kindNames = [...]string{
	KindInvalid:        "invalid",
	KindNull:           "null",
	KindBoolean:        "boolean",
	KindString:         "string",
	KindFloat:          "float",
	KindDouble:         "double",
	KindInt32:          "int32",
	KindInt64:          "int64",
	KindDate:           "date",
	KindDateTime:       "date-time",
	KindBooleanLiteral: "boolean-literal",
	KindStringLiteral:  "string-literal",
	KindNumberLiteral:  "number-literal",
	KindObject:         "object",
	KindArray:          "array",
	KindUnion:          "union",
	KindReference:      "reference",
	KindAbsent:         "absent",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "invalid"
	}
	return kindNames[k]
}

// ParseKind maps a kind name back to its Kind.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name && Kind(k) != KindInvalid {
			return Kind(k), true
		}
	}
	return KindInvalid, false
}

// Family groups kinds by the wire representation generators use for them.
type Family int

const (
	FamilyOther Family = iota
	FamilyString
	FamilyNumber
)

// Family reports the family k belongs to. Headers and parameters may only
// carry kinds from the string or number family.
func (k Kind) Family() Family {
	switch k {
	case KindString, KindStringLiteral, KindDate, KindDateTime:
		return FamilyString
	case KindFloat, KindDouble, KindInt32, KindInt64, KindNumberLiteral:
		return FamilyNumber
	default:
		return FamilyOther
	}
}

// Primitive reports whether k has no children and no payload.
func (k Kind) Primitive() bool {
	switch k {
	case KindNull, KindBoolean, KindString, KindFloat, KindDouble,
		KindInt32, KindInt64, KindDate, KindDateTime:
		return true
	}
	return false
}
