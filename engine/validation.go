package engine

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/drummonds/resumefeedback/engine/pdfrenderer"
	"github.com/dustin/go-humanize"
)

// DefaultMaxUploadBytes caps resume uploads when no limit is configured
const DefaultMaxUploadBytes = 20 * 1024 * 1024

var companyNamePattern = regexp.MustCompile(`^[a-zA-Z0-9\s\-&.,()]+$`)

// ValidationResult collects every problem found with a form
type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

func newValidationResult(errs []string) ValidationResult {
	if errs == nil {
		errs = []string{}
	}
	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

// FormData is a submitted resume upload form
type FormData struct {
	CompanyName    string
	JobTitle       string
	JobDescription string
	File           *pdfrenderer.File
}

// ValidateCompanyName checks the company name
func ValidateCompanyName(name string) ValidationResult {
	var errs []string
	length := utf8.RuneCountInString(name)
	switch {
	case strings.TrimSpace(name) == "":
		errs = append(errs, "Company name is required")
	case length < 2:
		errs = append(errs, "Company name must be at least 2 characters")
	case length > 100:
		errs = append(errs, "Company name must be less than 100 characters")
	case !companyNamePattern.MatchString(name):
		errs = append(errs, "Company name contains invalid characters")
	}
	return newValidationResult(errs)
}

// ValidateJobTitle checks the job title
func ValidateJobTitle(title string) ValidationResult {
	var errs []string
	length := utf8.RuneCountInString(title)
	switch {
	case strings.TrimSpace(title) == "":
		errs = append(errs, "Job title is required")
	case length < 3:
		errs = append(errs, "Job title must be at least 3 characters")
	case length > 100:
		errs = append(errs, "Job title must be less than 100 characters")
	}
	return newValidationResult(errs)
}

// ValidateJobDescription checks the job description
func ValidateJobDescription(description string) ValidationResult {
	var errs []string
	length := utf8.RuneCountInString(description)
	switch {
	case strings.TrimSpace(description) == "":
		errs = append(errs, "Job description is required")
	case length < 50:
		errs = append(errs, "Job description must be at least 50 characters")
	case length > 5000:
		errs = append(errs, "Job description must be less than 5000 characters")
	}
	return newValidationResult(errs)
}

// ValidateFile checks the upload is a PDF within maxBytes. Every failing
// rule is reported.
func ValidateFile(file *pdfrenderer.File, maxBytes int64) ValidationResult {
	if file == nil {
		return newValidationResult([]string{"File is required"})
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	var errs []string
	if file.ContentType != "application/pdf" {
		errs = append(errs, "Only PDF files are allowed")
	}
	if file.Size > maxBytes {
		errs = append(errs, fmt.Sprintf("File size must be less than %s", humanize.IBytes(uint64(maxBytes))))
	}
	if !pdfrenderer.IsPDFName(file.Name) {
		errs = append(errs, "File must have a .pdf extension")
	}
	return newValidationResult(errs)
}

// ValidateFormData runs every field check and concatenates the errors in
// form order
func ValidateFormData(data FormData, maxBytes int64) ValidationResult {
	var errs []string
	errs = append(errs, ValidateCompanyName(data.CompanyName).Errors...)
	errs = append(errs, ValidateJobTitle(data.JobTitle).Errors...)
	errs = append(errs, ValidateJobDescription(data.JobDescription).Errors...)
	errs = append(errs, ValidateFile(data.File, maxBytes).Errors...)
	return newValidationResult(errs)
}
