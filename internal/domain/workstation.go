package domain

import (
	"fmt"
	"time"
)

// MaxSeatNumber bounds the seat number encoded in a station code.
const MaxSeatNumber = 300

// Workstation is a physical or remote seat that incidents are reported
// against. Barranquilla seats are virtual: each remote incident gets its own
// uniquely-suffixed workstation so AnyDesk session data stays tied to the
// incident that used it.
type Workstation struct {
	ID              string
	StationCode     string
	LocationDetails string
	Sede            Sede
	Departamento    Departamento
	AnydeskAddress  *string
	AdvisorCedula   *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

var sedePrefixes = map[Sede]string{
	SedeBogota:        "BOG-",
	SedeBarranquilla:  "BAQ-",
	SedeVillavicencio: "VVC-",
}

var deptPrefixes = map[Departamento]string{
	DeptObama:          "O",
	DeptMajority:       "M",
	DeptClaro:          "C",
	DeptContratacion:   "CT",
	DeptSeleccion:      "SL",
	DeptReclutamiento:  "RC",
	DeptAreaFinanciera: "AF",
}

// StationCode derives the canonical seat code for a site, department and
// seat number, e.g. BOG-C042.
func StationCode(sede Sede, departamento Departamento, seat int) string {
	prefix, ok := sedePrefixes[sede]
	if !ok {
		prefix = sedePrefixes[SedeBogota]
	}
	return fmt.Sprintf("%s%s%03d", prefix, deptPrefixes[departamento], seat)
}

// ValidSeatNumber reports whether the seat number fits the station layout.
func ValidSeatNumber(seat int) bool {
	return seat >= 1 && seat <= MaxSeatNumber
}
