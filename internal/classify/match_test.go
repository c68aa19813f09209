package classify

import (
	"testing"

	"github.com/loandesk/document-service/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "pancopy", Normalize("PAN Copy"))
	assert.Equal(t, "pancopy", Normalize("pan-copy"))
	assert.Equal(t, "10thmarksheet", Normalize("10th Marksheet"))
	assert.Equal(t, "", Normalize("---"))
}

func TestTypeMatches(t *testing.T) {
	tests := []struct {
		name     string
		detected string
		slot     string
		want     bool
	}{
		{"exact", "PAN Copy", "PAN Copy", true},
		{"containment detected in slot", "PAN", "PAN Copy", true},
		{"containment slot in detected", "Aadhaar Card Front", "Aadhaar Card", true},
		{"punctuation ignored", "pan-card", "PAN Card", true},
		{"different documents", "Salary Slip", "Bank Statement", false},
		{"empty detected", "", "PAN Copy", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TypeMatches(tt.detected, tt.slot))
		})
	}
}

func TestMatchSlot(t *testing.T) {
	slots := []models.DocumentTypeSlot{
		{ID: "dt-1", Name: "PAN Copy"},
		{ID: "dt-2", Name: "Aadhaar Card"},
		{ID: "dt-3", Name: "Salary Slip"},
	}

	assert.Equal(t, "dt-2", MatchSlot("Aadhaar Card Front", slots))
	assert.Equal(t, "dt-1", MatchSlot("pan", slots))
	assert.Equal(t, "", MatchSlot("Rent Agreement", slots))
}

func TestNameOverlap(t *testing.T) {
	assert.Equal(t, 1.0, NameOverlap("Rahul Sharma", "Rahul Sharma"))
	assert.Equal(t, 0.5, NameOverlap("Rahul Verma", "Rahul Sharma"))
	// Short tokens (initials) are dropped before comparing.
	assert.Equal(t, 1.0, NameOverlap("R K Sharma", "Anil Sharma"))
	assert.Equal(t, 0.0, NameOverlap("", "Rahul Sharma"))
}

func TestNameMatches(t *testing.T) {
	tests := []struct {
		name        string
		detected    string
		applicant   string
		coApplicant string
		want        bool
	}{
		{"matches applicant", "Rahul Sharma", "Rahul Sharma", "Anil Sharma", true},
		{"matches co-applicant", "Anil Kumar Sharma", "Rahul Sharma", "Anil Sharma", true},
		{"matches neither", "Vikram Singh", "Rahul Sharma", "Anil Gupta", false},
		{"empty detected passes", "", "Rahul Sharma", "", true},
		{"placeholder detected passes", "N/A", "Rahul Sharma", "", true},
		{"placeholder expected ignored", "Vikram Singh", "N/A", "", true},
		{"best of two wins", "Anil Gupta", "Someone Else", "Anil Gupta", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NameMatches(tt.detected, tt.applicant, tt.coApplicant))
		})
	}
}
