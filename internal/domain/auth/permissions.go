package auth

import "context"

const (
	RoleAdmin          = "admin"
	RolePayrollManager = "payroll_manager"
	RoleViewer         = "viewer"
)

const (
	PermCompaniesRead      = "companies.read"
	PermCompaniesWrite     = "companies.write"
	PermEmployeesRead      = "employees.read"
	PermEmployeesWrite     = "employees.write"
	PermPayrollCompute     = "payroll.compute"
	PermPayslipsRead       = "payslips.read"
	PermPayslipsWrite      = "payslips.write"
	PermPayslipsTransition = "payslips.transition"
	PermPayslipsExport     = "payslips.export"
	PermJobsRun            = "jobs.run"
)

var RolePermissions = map[string][]string{
	RoleAdmin: {
		PermCompaniesRead,
		PermCompaniesWrite,
		PermEmployeesRead,
		PermEmployeesWrite,
		PermPayrollCompute,
		PermPayslipsRead,
		PermPayslipsWrite,
		PermPayslipsTransition,
		PermPayslipsExport,
		PermJobsRun,
	},
	RolePayrollManager: {
		PermCompaniesRead,
		PermEmployeesRead,
		PermEmployeesWrite,
		PermPayrollCompute,
		PermPayslipsRead,
		PermPayslipsWrite,
		PermPayslipsTransition,
		PermPayslipsExport,
		PermJobsRun,
	},
	RoleViewer: {
		PermCompaniesRead,
		PermEmployeesRead,
		PermPayrollCompute,
		PermPayslipsRead,
	},
}

func IsValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}

// StaticPermissions resolves permissions from RolePermissions.
type StaticPermissions struct{}

func (StaticPermissions) HasPermission(_ context.Context, role, permission string) (bool, error) {
	for _, p := range RolePermissions[role] {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}
