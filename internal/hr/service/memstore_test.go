package service_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/peoplehub/peoplehub-backend/internal/hr/domain"
	"github.com/peoplehub/peoplehub-backend/internal/hr/repository"
)

// memStore is an in-memory ImportStore. Each WithinTx works on a copy of the
// committed state and only publishes it when fn succeeds.
type memStore struct {
	mu          sync.Mutex
	departments map[string]*domain.Department
	employees   map[string]*domain.Employee
	education   map[string]*domain.EmployeeEducation

	// failOn names an ImportTx method that returns an error
	failOn string
	txs    int
}

func newMemStore() *memStore {
	return &memStore{
		departments: make(map[string]*domain.Department),
		employees:   make(map[string]*domain.Employee),
		education:   make(map[string]*domain.EmployeeEducation),
	}
}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.ImportTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs++

	tx := &memTx{
		failOn:      s.failOn,
		departments: make(map[string]*domain.Department, len(s.departments)),
		employees:   make(map[string]*domain.Employee, len(s.employees)),
		education:   make(map[string]*domain.EmployeeEducation, len(s.education)),
	}
	for id, d := range s.departments {
		c := *d
		tx.departments[id] = &c
	}
	for id, e := range s.employees {
		c := *e
		c.Education = nil
		tx.employees[id] = &c
	}
	for id, ed := range s.education {
		c := *ed
		tx.education[id] = &c
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}

	s.departments = tx.departments
	s.employees = tx.employees
	s.education = tx.education
	return nil
}

func (s *memStore) addDepartment(name string) *domain.Department {
	d := &domain.Department{ID: uuid.New().String(), Name: name}
	s.departments[d.ID] = d
	return d
}

func (s *memStore) addEmployee(emp *domain.Employee) {
	for _, ed := range emp.Education {
		ed.EmployeeID = emp.ID
		s.education[ed.ID] = ed
	}
	c := *emp
	c.Education = nil
	s.employees[emp.ID] = &c
}

func (s *memStore) departmentNames() []string {
	var names []string
	for _, d := range s.departments {
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return names
}

func (s *memStore) employeeByDocument(document string) *domain.Employee {
	for _, e := range s.employees {
		if e.Document == document {
			c := *e
			c.Education = s.educationOf(e.ID)
			return &c
		}
	}
	return nil
}

func (s *memStore) educationOf(employeeID string) []*domain.EmployeeEducation {
	var out []*domain.EmployeeEducation
	for _, ed := range s.education {
		if ed.EmployeeID == employeeID {
			c := *ed
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EducationLevel < out[j].EducationLevel })
	return out
}

type memTx struct {
	failOn      string
	departments map[string]*domain.Department
	employees   map[string]*domain.Employee
	education   map[string]*domain.EmployeeEducation
}

func (t *memTx) fail(method string) error {
	if t.failOn == method {
		return fmt.Errorf("%s: connection reset", method)
	}
	return nil
}

func (t *memTx) DepartmentsByNames(ctx context.Context, names []string) ([]*domain.Department, error) {
	if err := t.fail("DepartmentsByNames"); err != nil {
		return nil, err
	}
	keys := make(map[string]bool)
	for _, n := range names {
		keys[domain.NameKey(n)] = true
	}
	var out []*domain.Department
	for _, d := range t.departments {
		if keys[strings.ToLower(d.Name)] {
			c := *d
			out = append(out, &c)
		}
	}
	return out, nil
}

func (t *memTx) CreateDepartment(ctx context.Context, dept *domain.Department) error {
	if err := t.fail("CreateDepartment"); err != nil {
		return err
	}
	for _, d := range t.departments {
		if strings.EqualFold(d.Name, dept.Name) {
			return fmt.Errorf("duplicate department %q", dept.Name)
		}
	}
	if dept.ID == "" {
		dept.ID = uuid.New().String()
	}
	c := *dept
	t.departments[dept.ID] = &c
	return nil
}

func (t *memTx) EmployeesByDocuments(ctx context.Context, documents []string) ([]*domain.Employee, error) {
	if err := t.fail("EmployeesByDocuments"); err != nil {
		return nil, err
	}
	wanted := make(map[string]bool)
	for _, d := range documents {
		wanted[d] = true
	}
	var out []*domain.Employee
	for _, e := range t.employees {
		if !wanted[e.Document] {
			continue
		}
		c := *e
		for _, ed := range t.education {
			if ed.EmployeeID == e.ID {
				edc := *ed
				c.Education = append(c.Education, &edc)
			}
		}
		out = append(out, &c)
	}
	return out, nil
}

func (t *memTx) CreateEmployee(ctx context.Context, emp *domain.Employee) error {
	if err := t.fail("CreateEmployee"); err != nil {
		return err
	}
	for _, e := range t.employees {
		if e.Document == emp.Document {
			return fmt.Errorf("duplicate document %q", emp.Document)
		}
	}
	c := *emp
	c.Education = nil
	c.Department = nil
	t.employees[emp.ID] = &c
	return nil
}

func (t *memTx) UpdateEmployee(ctx context.Context, emp *domain.Employee) error {
	if err := t.fail("UpdateEmployee"); err != nil {
		return err
	}
	if _, ok := t.employees[emp.ID]; !ok {
		return fmt.Errorf("employee %s not found", emp.ID)
	}
	c := *emp
	c.Education = nil
	c.Department = nil
	t.employees[emp.ID] = &c
	return nil
}

func (t *memTx) CreateEducation(ctx context.Context, ed *domain.EmployeeEducation) error {
	if err := t.fail("CreateEducation"); err != nil {
		return err
	}
	if _, ok := t.employees[ed.EmployeeID]; !ok {
		return fmt.Errorf("employee %s not found", ed.EmployeeID)
	}
	for _, existing := range t.education {
		if existing.EmployeeID == ed.EmployeeID && existing.EducationLevel == ed.EducationLevel {
			return fmt.Errorf("duplicate education %q", ed.EducationLevel)
		}
	}
	c := *ed
	t.education[ed.ID] = &c
	return nil
}

func (t *memTx) UpdateEducation(ctx context.Context, ed *domain.EmployeeEducation) error {
	if err := t.fail("UpdateEducation"); err != nil {
		return err
	}
	if _, ok := t.education[ed.ID]; !ok {
		return fmt.Errorf("education %s not found", ed.ID)
	}
	c := *ed
	t.education[ed.ID] = &c
	return nil
}
