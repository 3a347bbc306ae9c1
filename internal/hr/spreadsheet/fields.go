package spreadsheet

import "strings"

// Field is a canonical import column
type Field int

const (
	FieldDocument Field = iota
	FieldFirstName
	FieldLastName
	FieldEmail
	FieldPhone
	FieldAddress
	FieldDepartment
	FieldSalary
	FieldPosition
	FieldHireDate
	FieldBirthDate
	FieldStatus
	FieldEducationLevel
	FieldProfessionalProfile
)

var fieldNames = map[Field]string{
	FieldDocument:            "document",
	FieldFirstName:           "first_name",
	FieldLastName:            "last_name",
	FieldEmail:               "email",
	FieldPhone:               "phone",
	FieldAddress:             "address",
	FieldDepartment:          "department",
	FieldSalary:              "salary",
	FieldPosition:            "position",
	FieldHireDate:            "hire_date",
	FieldBirthDate:           "birth_date",
	FieldStatus:              "status",
	FieldEducationLevel:      "education_level",
	FieldProfessionalProfile: "professional_profile",
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return "unknown"
}

// Synonyms lists the accepted header spellings per field, already normalised.
// Spanish and English variants are both accepted.
var Synonyms = map[Field][]string{
	FieldDocument:            {"documento", "document", "cedula", "identificacion"},
	FieldFirstName:           {"nombre", "nombres", "firstname"},
	FieldLastName:            {"apellido", "apellidos", "lastname"},
	FieldEmail:               {"correo", "email", "mail"},
	FieldPhone:               {"telefono", "celular", "phone"},
	FieldAddress:             {"direccion", "address"},
	FieldDepartment:          {"departamento", "department", "area"},
	FieldSalary:              {"salario", "salary"},
	FieldPosition:            {"cargo", "position", "rol"},
	FieldHireDate:            {"fechaingreso", "hiredate", "fecha de ingreso", "fechaingre"},
	FieldBirthDate:           {"fechanacimiento", "birthdate", "fecha de nacimiento"},
	FieldStatus:              {"estado", "status"},
	FieldEducationLevel:      {"niveleducativo", "educationlevel", "education", "nivel educativo"},
	FieldProfessionalProfile: {"perfilprofesional", "professionalprofile", "profile", "perfil profesional"},
}

// synonymIndex inverts Synonyms
var synonymIndex = func() map[string]Field {
	idx := make(map[string]Field)
	for field, names := range Synonyms {
		for _, name := range names {
			idx[name] = field
		}
	}
	return idx
}()

// NormalizeHeader lower-cases, trims and collapses inner whitespace
func NormalizeHeader(h string) string {
	return strings.Join(strings.Fields(strings.ToLower(h)), " ")
}

// HeaderMap resolves canonical fields to zero-based column indexes
type HeaderMap map[Field]int

// NewHeaderMap builds the mapping from a header row. When several columns
// match the same field, the leftmost one wins. Unknown headers are ignored.
func NewHeaderMap(header []string) HeaderMap {
	m := make(HeaderMap)
	for col, raw := range header {
		field, ok := synonymIndex[NormalizeHeader(raw)]
		if !ok {
			continue
		}
		if _, seen := m[field]; seen {
			continue
		}
		m[field] = col
	}
	return m
}

// Has reports whether the sheet carries a column for f
func (h HeaderMap) Has(f Field) bool {
	_, ok := h[f]
	return ok
}

// Value returns the trimmed cell text for f, or "" when the column is
// missing or the row is shorter than the header.
func (h HeaderMap) Value(row []string, f Field) string {
	col, ok := h[f]
	if !ok || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
