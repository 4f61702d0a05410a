package handlers_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"hrpay/internal/domain/auth"
	"hrpay/internal/domain/company"
	"hrpay/internal/domain/employee"
	"hrpay/internal/domain/payroll"
	"hrpay/internal/domain/payslip"
)

type memUsers struct {
	users map[string]auth.User
}

func (m *memUsers) FindActiveUserByEmail(_ context.Context, email string) (auth.User, error) {
	u, ok := m.users[email]
	if !ok || u.Status != auth.UserStatusActive {
		return auth.User{}, auth.ErrInvalidCredentials
	}
	return u, nil
}

func (m *memUsers) UpdateLastLogin(context.Context, string) error { return nil }

type memCompanies struct {
	mu    sync.Mutex
	items map[string]company.Company
}

func (m *memCompanies) Create(_ context.Context, c company.Company) (company.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if strings.EqualFold(existing.Name, c.Name) {
			return company.Company{}, company.ErrDuplicateName
		}
	}
	c.ID = fmt.Sprintf("c%d", len(m.items)+1)
	c.CreatedAt = time.Now()
	m.items[c.ID] = c
	return c, nil
}

func (m *memCompanies) Get(_ context.Context, id string) (company.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return company.Company{}, company.ErrNotFound
	}
	return c, nil
}

func (m *memCompanies) List(_ context.Context, limit, offset int) (company.ListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]company.Company, 0, len(m.items))
	for _, c := range m.items {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return company.ListResult{Items: window(all, limit, offset), Total: len(all)}, nil
}

type memEmployees struct {
	mu       sync.Mutex
	seq      int
	items    map[string]employee.Employee
	payslips *memPayslips
}

func (m *memEmployees) Create(_ context.Context, e employee.Employee) (employee.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	e.ID = fmt.Sprintf("e%d", m.seq)
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	m.items[e.ID] = e
	return e, nil
}

func (m *memEmployees) Get(_ context.Context, companyID, id string) (employee.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[id]
	if !ok || e.CompanyID != companyID {
		return employee.Employee{}, employee.ErrNotFound
	}
	return e, nil
}

func (m *memEmployees) Update(_ context.Context, e employee.Employee) (employee.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[e.ID]
	if !ok || cur.CompanyID != e.CompanyID {
		return employee.Employee{}, employee.ErrNotFound
	}
	e.CreatedAt = cur.CreatedAt
	e.UpdatedAt = time.Now()
	m.items[e.ID] = e
	return e, nil
}

func (m *memEmployees) List(_ context.Context, companyID string, filter employee.ListFilter) (employee.ListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := []employee.Employee{}
	needle := strings.ToLower(filter.Search)
	for _, e := range m.items {
		if e.CompanyID != companyID {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(e.FullName()), needle) {
			continue
		}
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return employee.ListResult{Items: window(all, filter.Limit, filter.Offset), Total: len(all)}, nil
}

func (m *memEmployees) Delete(_ context.Context, companyID, id string) error {
	if m.payslips != nil && m.payslips.countFor(id) > 0 {
		return employee.ErrHasPayslips
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[id]
	if !ok || e.CompanyID != companyID {
		return employee.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

type memPayslips struct {
	mu      sync.Mutex
	seq     int
	items   map[string]payslip.Payslip
	history map[string][]payslip.HistoryEntry
}

func newMemPayslips() *memPayslips {
	return &memPayslips{items: map[string]payslip.Payslip{}, history: map[string][]payslip.HistoryEntry{}}
}

func (m *memPayslips) countFor(employeeID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.items {
		if p.EmployeeID == employeeID {
			n++
		}
	}
	return n
}

func (m *memPayslips) Create(_ context.Context, p payslip.Payslip) (payslip.Payslip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	p.ID = fmt.Sprintf("p%d", m.seq)
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.items[p.ID] = p
	return p, nil
}

func (m *memPayslips) Get(_ context.Context, companyID, id string) (payslip.Payslip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok || p.CompanyID != companyID {
		return payslip.Payslip{}, payslip.ErrNotFound
	}
	return p, nil
}

func (m *memPayslips) UpdateDraft(_ context.Context, p payslip.Payslip) (payslip.Payslip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[p.ID]
	if !ok || cur.Status != payroll.StatusDraft {
		return payslip.Payslip{}, payslip.ErrConflict
	}
	p.UpdatedAt = time.Now()
	m.items[p.ID] = p
	return p, nil
}

func (m *memPayslips) UpdateDraftResult(_ context.Context, _ string, id string, result payroll.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[id]
	if !ok || cur.Status != payroll.StatusDraft {
		return payslip.ErrConflict
	}
	cur.Result = result
	m.items[id] = cur
	return nil
}

func (m *memPayslips) List(_ context.Context, companyID string, filter payslip.ListFilter) (payslip.ListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := []payslip.Payslip{}
	for _, p := range m.items {
		if p.CompanyID != companyID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.EmployeeID != "" && p.EmployeeID != filter.EmployeeID {
			continue
		}
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return payslip.ListResult{Items: window(all, filter.Limit, filter.Offset), Total: len(all)}, nil
}

func (m *memPayslips) ListForPeriod(_ context.Context, companyID string, period payslip.Period) ([]payslip.Payslip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []payslip.Payslip{}
	for _, p := range m.items {
		if p.CompanyID == companyID && !p.Period.StartDate.Before(period.StartDate) && !p.Period.EndDate.After(period.EndDate) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memPayslips) ListDraftIDs(_ context.Context, companyID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, p := range m.items {
		if p.CompanyID == companyID && p.Status == payroll.StatusDraft {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memPayslips) DeleteDraft(_ context.Context, _ string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items[id].Status != payroll.StatusDraft {
		return payslip.ErrConflict
	}
	delete(m.items, id)
	return nil
}

func (m *memPayslips) Transition(_ context.Context, _ string, id string, entry payslip.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.items[id]
	if cur.Status != entry.FromStatus {
		return payslip.ErrConflict
	}
	cur.Status = entry.ToStatus
	m.items[id] = cur
	entry.PayslipID = id
	entry.CreatedAt = time.Now()
	m.history[id] = append(m.history[id], entry)
	return nil
}

func (m *memPayslips) History(_ context.Context, _ string, id string) ([]payslip.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]payslip.HistoryEntry{}, m.history[id]...), nil
}

func (m *memPayslips) SetFileURL(_ context.Context, _ string, id, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[id]
	if !ok {
		return payslip.ErrNotFound
	}
	cur.FileURL = url
	m.items[id] = cur
	return nil
}

func window[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}
