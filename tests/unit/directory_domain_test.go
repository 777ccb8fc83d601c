package unit

import (
	"testing"

	"support_chat_service/internal/directory/domain"
	"support_chat_service/pkg/encrypt"

	"github.com/stretchr/testify/assert"
)

func TestUserPasswordMatch(t *testing.T) {
	hashed, err := encrypt.HashPassword("Pass1234!")
	assert.NoError(t, err)

	user := domain.User{
		UserID:   "user-1",
		Email:    "user@example.com",
		Password: hashed,
	}

	assert.True(t, user.IsPasswordMatch("Pass1234!") == nil, "should match correct password")
	assert.False(t, user.IsPasswordMatch("wrongpass") == nil, "should not match incorrect password")
}

func TestPasswordStrength(t *testing.T) {
	assert.Error(t, encrypt.ValidatePasswordStrength("short"))
	assert.NoError(t, encrypt.ValidatePasswordStrength("Pass1234!"))
}
