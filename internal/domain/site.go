package domain

// Sede identifies a call-center site. Barranquilla is remote-only: it has no
// resident technicians and its incidents are serviced from Bogotá and
// Villavicencio.
type Sede string

const (
	SedeBogota        Sede = "bogota"
	SedeBarranquilla  Sede = "barranquilla"
	SedeVillavicencio Sede = "villavicencio"
)

// Sedes lists all sites in display order.
func Sedes() []Sede {
	return []Sede{SedeBogota, SedeBarranquilla, SedeVillavicencio}
}

// Valid reports whether the sede is one of the known sites.
func (s Sede) Valid() bool {
	switch s {
	case SedeBogota, SedeBarranquilla, SedeVillavicencio:
		return true
	}
	return false
}

// ServiceSedes returns the sites whose incidents technicians and supervisors
// based at s observe. Bogotá and Villavicencio staff also service
// Barranquilla remotely.
func (s Sede) ServiceSedes() []Sede {
	switch s {
	case SedeBogota:
		return []Sede{SedeBogota, SedeBarranquilla}
	case SedeVillavicencio:
		return []Sede{SedeVillavicencio, SedeBarranquilla}
	default:
		return []Sede{s}
	}
}

// Departamento is a campaign or administrative area within a site.
type Departamento string

const (
	DeptObama    Departamento = "obama"
	DeptMajority Departamento = "majority"
	DeptClaro    Departamento = "claro"

	DeptContratacion   Departamento = "contratacion"
	DeptSeleccion      Departamento = "seleccion"
	DeptReclutamiento  Departamento = "reclutamiento"
	DeptAreaFinanciera Departamento = "area_financiera"
)

// OperationDepartamentos returns the campaign departments available at a
// site. Majority operates only in Bogotá.
func OperationDepartamentos(sede Sede) []Departamento {
	if sede == SedeBogota {
		return []Departamento{DeptObama, DeptMajority, DeptClaro}
	}
	return []Departamento{DeptObama, DeptClaro}
}

// AdministrativeDepartamentos returns the areas administrative staff report
// incidents for.
func AdministrativeDepartamentos() []Departamento {
	return []Departamento{DeptContratacion, DeptSeleccion, DeptReclutamiento, DeptAreaFinanciera}
}

func ContainsDepartamento(list []Departamento, d Departamento) bool {
	for _, candidate := range list {
		if candidate == d {
			return true
		}
	}
	return false
}
