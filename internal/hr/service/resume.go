package service

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/peoplehub/peoplehub-backend/internal/hr/domain"
)

// ResumeService renders an employee's resume as a PDF
type ResumeService struct {
	now func() time.Time
}

// NewResumeService creates a new resume service
func NewResumeService() *ResumeService {
	return &ResumeService{now: time.Now}
}

// ResumeFileName is the download name for an employee's resume
func ResumeFileName(emp *domain.Employee) string {
	return fmt.Sprintf("Resume_%s_%s.pdf", fileSafe(emp.FirstName), fileSafe(emp.LastName))
}

// Generate renders an A4 resume with contact details, job data, the
// professional profile and an education table.
func (s *ResumeService) Generate(emp *domain.Employee) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Resume - "+emp.FullName(), true)
	pdf.SetAuthor("PeopleHub", false)
	pdf.SetCreationDate(s.now())
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	// Core fonts are cp1252; names and addresses often carry accents.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	width, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	content := width - left - right

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(content, 10, tr(emp.FullName()), "", 1, "L", false, 0, "")
	if emp.Position != nil {
		pdf.SetFont("Helvetica", "", 13)
		pdf.SetTextColor(90, 90, 90)
		pdf.CellFormat(content, 7, tr(*emp.Position), "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(2)
	pdf.SetDrawColor(180, 180, 180)
	pdf.Line(left, pdf.GetY(), width-right, pdf.GetY())
	pdf.Ln(4)

	section := func(title string) {
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(content, 8, tr(title), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
	}
	field := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(40, 6, tr(label), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(content-40, 6, tr(value), "", "L", false)
	}

	section("Contact")
	field("Document", emp.Document)
	field("Email", domain.Deref(emp.Email))
	field("Phone", domain.Deref(emp.Phone))
	field("Address", domain.Deref(emp.Address))

	section("Employment")
	if emp.Department != nil {
		field("Department", emp.Department.Name)
	}
	field("Status", emp.Status)
	if !emp.HireDate.IsZero() {
		field("Hire date", emp.HireDate.Format("2006-01-02"))
	}
	if emp.BirthDate != nil {
		field("Birth date", emp.BirthDate.Format("2006-01-02"))
	}

	if emp.ProfessionalProfile != nil {
		section("Professional profile")
		pdf.MultiCell(content, 6, tr(*emp.ProfessionalProfile), "", "L", false)
	}

	if len(emp.Education) > 0 {
		section("Education")
		levelWidth := content * 0.35
		pdf.SetFillColor(235, 235, 235)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(levelWidth, 7, "Level", "1", 0, "L", true, 0, "")
		pdf.CellFormat(content-levelWidth, 7, "Profile", "1", 1, "L", true, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		for _, ed := range emp.Education {
			pdf.CellFormat(levelWidth, 7, tr(ed.EducationLevel), "1", 0, "L", false, 0, "")
			pdf.CellFormat(content-levelWidth, 7, tr(ed.ProfessionalProfile), "1", 1, "L", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render resume: %w", err)
	}
	return buf.Bytes(), nil
}

func fileSafe(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '"', ':', '*', '?', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, s)
}
