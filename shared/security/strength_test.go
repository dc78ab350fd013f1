package security_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vasapolrittideah/portfolio-api/shared/security"
)

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "lowercase eight characters", password: "eightchr", wantErr: false},
		{name: "letters and digit", password: "newpass1", wantErr: false},
		{name: "too short", password: "abc1", wantErr: true},
		{name: "repeated character", password: "aaaaaaaaaaaa", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := security.ValidatePasswordStrength(tt.password, 30)
			if tt.wantErr {
				assert.ErrorIs(t, err, security.ErrWeakPassword)
				return
			}
			assert.NoError(t, err)
		})
	}
}
