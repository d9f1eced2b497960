package profile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/datalens/pkg/profile"
)

func TestDetectPII(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want profile.PIIKind
	}{
		{"123-45-6789", profile.PIISSN},
		{"4111 1111 1111 1111", profile.PIICreditCard},
		{"4111-1111-1111-1111", profile.PIICreditCard},
		{"4111111111111112", profile.PIINone},
		{"jane.doe@example.com", profile.PIIEmail},
		{"not@an-email", profile.PIINone},
		{"(555) 123-4567", profile.PIIPhone},
		{"+1 555-123-4567", profile.PIIPhone},
		{"5551234567", profile.PIINone},
		{"192.168.0.1", profile.PIIIPAddress},
		{"999.1.1.1", profile.PIINone},
		{"::1", profile.PIINone},
		{"hello world", profile.PIINone},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, profile.DetectPII(tt.in), tt.in)
	}
}

func TestPIIFromColumnName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want profile.PIIKind
	}{
		{"Email_Address", profile.PIIEmail},
		{"mobile", profile.PIIPhone},
		{"client_ip", profile.PIIIPAddress},
		{"ip", profile.PIIIPAddress},
		{"home_address", profile.PIIPostalCode},
		{"zip", profile.PIIPostalCode},
		{"date_of_birth", profile.PIIDateOfBirth},
		{"amount", profile.PIINone},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, profile.PIIFromColumnName(tt.name), tt.name)
	}
}

func TestPIIKindSeverity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, profile.SeverityError, profile.PIISSN.Severity())
	assert.Equal(t, profile.SeverityError, profile.PIICreditCard.Severity())
	assert.Equal(t, profile.SeverityWarning, profile.PIIEmail.Severity())
	assert.Equal(t, profile.SeverityInfo, profile.PIIPostalCode.Severity())
	assert.Equal(t, "credit card", profile.PIICreditCard.String())
}
