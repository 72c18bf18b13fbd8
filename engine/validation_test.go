package engine

import (
	"strings"
	"testing"

	"github.com/drummonds/resumefeedback/engine/pdfrenderer"
)

func TestValidateCompanyName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"valid", "Acme, Inc. (R&D) - EU", ""},
		{"empty", "", "Company name is required"},
		{"blank", "   ", "Company name is required"},
		{"too short", "A", "Company name must be at least 2 characters"},
		{"too long", strings.Repeat("a", 101), "Company name must be less than 100 characters"},
		{"max length", strings.Repeat("a", 100), ""},
		{"invalid characters", "Acme <script>", "Company name contains invalid characters"},
		{"accented", "Café Ltd", "Company name contains invalid characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkValidation(t, ValidateCompanyName(tt.input), tt.want)
		})
	}
}

func TestValidateJobTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"valid", "SRE", ""},
		{"empty", "", "Job title is required"},
		{"too short", "QA", "Job title must be at least 3 characters"},
		{"too long", strings.Repeat("x", 101), "Job title must be less than 100 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkValidation(t, ValidateJobTitle(tt.input), tt.want)
		})
	}
}

func TestValidateJobDescription(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"valid", strings.Repeat("d", 50), ""},
		{"empty", "\n\t", "Job description is required"},
		{"too short", strings.Repeat("d", 49), "Job description must be at least 50 characters"},
		{"too long", strings.Repeat("d", 5001), "Job description must be less than 5000 characters"},
		{"max length", strings.Repeat("d", 5000), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkValidation(t, ValidateJobDescription(tt.input), tt.want)
		})
	}
}

func TestValidateFile(t *testing.T) {
	pdf := pdfrenderer.NewFile("cv.PDF", "application/pdf", testPDF)
	checkValidation(t, ValidateFile(pdf, 0), "")
	checkValidation(t, ValidateFile(nil, 0), "File is required")

	big := pdfrenderer.NewFile("cv.pdf", "application/pdf", make([]byte, 2048))
	checkValidation(t, ValidateFile(big, 1024), "File size must be less than 1.0 KiB")

	wrong := pdfrenderer.NewFile("cv.txt", "text/plain", []byte("hi"))
	got := ValidateFile(wrong, 0)
	if got.IsValid || len(got.Errors) != 2 {
		t.Errorf("Expected type and extension errors, got %v", got.Errors)
	}
}

func TestValidateFormDataAggregates(t *testing.T) {
	got := ValidateFormData(FormData{}, 0)
	want := []string{
		"Company name is required",
		"Job title is required",
		"Job description is required",
		"File is required",
	}
	if got.IsValid || strings.Join(got.Errors, "|") != strings.Join(want, "|") {
		t.Errorf("Expected %v, got %v", want, got.Errors)
	}

	ok := ValidateFormData(FormData{
		CompanyName:    "Acme",
		JobTitle:       "Engineer",
		JobDescription: testJobDescription,
		File:           pdfrenderer.NewFile("cv.pdf", "application/pdf", testPDF),
	}, 0)
	if !ok.IsValid || len(ok.Errors) != 0 {
		t.Errorf("Expected a valid form, got %v", ok.Errors)
	}
}

func checkValidation(t *testing.T, got ValidationResult, want string) {
	t.Helper()
	if want == "" {
		if !got.IsValid || len(got.Errors) != 0 {
			t.Errorf("Expected valid, got %v", got.Errors)
		}
		return
	}
	if got.IsValid || len(got.Errors) != 1 || got.Errors[0] != want {
		t.Errorf("Expected [%s], got %v", want, got.Errors)
	}
}
