package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{
			name:  "empty token",
			token: "",
			want:  "",
		},
		{
			name:  "short token is fully masked",
			token: "abc123",
			want:  "******",
		},
		{
			name:  "long token keeps prefix and suffix",
			token: "740f4707bebcf74f9b7c25d48e3358945f6aa01da5ddb387462c7eaf61bb78ad",
			want:  "740f47...78ad",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskToken(tt.token))
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "", MaskAPIKey(""))
	assert.Equal(t, "********", MaskAPIKey("shortkey"))
	assert.Equal(t, "AAAA...Zg", MaskAPIKey("AAAAxGkzQl0:APA91bGHXQ-server-key-Zg"))
}

func TestMaskSensitiveString(t *testing.T) {
	// Short strings must not reveal their length structure
	assert.Equal(t, "*****", MaskSensitiveString("12345", 2, 2))
	assert.Equal(t, "ab...yz", MaskSensitiveString("abcdefghijklmnopqrstuvwxyz", 2, 2))
	assert.Equal(t, "", MaskSensitiveString("", 2, 2))
}
