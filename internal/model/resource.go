package model

import "fmt"

// Resource names a managed collection of the hospital API.
type Resource string

const (
	ResourcePatients      Resource = "patients"
	ResourceDoctors       Resource = "doctors"
	ResourceAppointments  Resource = "appointments"
	ResourcePrescriptions Resource = "prescriptions"
	ResourceBills         Resource = "bills"
	ResourceUsers         Resource = "users"
)

var Resources = []Resource{
	ResourcePatients,
	ResourceDoctors,
	ResourceAppointments,
	ResourcePrescriptions,
	ResourceBills,
	ResourceUsers,
}

func ParseResource(s string) (Resource, error) {
	for _, r := range Resources {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown resource %q", s)
}

