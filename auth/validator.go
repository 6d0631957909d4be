package auth

import (
	"fmt"
	"group-chat/errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

const (
	MaxGroupNameLength   = 100
	MaxDisplayNameLength = 64
	MaxBioLength         = 280
)

type ProfileRequest struct {
	DisplayName string `validate:"required,max=64"`
	Bio         string `validate:"max=280"`
}

// ValidateContent trims the message and checks it against the configured maximum.
func ValidateContent(content string, maxLength int) (string, error) {
	trimmed := strings.TrimSpace(content)
	if err := validate.Var(trimmed, fmt.Sprintf("required,max=%d", maxLength)); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidContent, err)
	}
	return trimmed, nil
}

func ValidateGroupName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if err := validate.Var(trimmed, fmt.Sprintf("required,max=%d", MaxGroupNameLength)); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidContent, err)
	}
	return trimmed, nil
}

func ValidateProfile(req ProfileRequest) (ProfileRequest, error) {
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	req.Bio = strings.TrimSpace(req.Bio)
	if err := validate.Struct(req); err != nil {
		return ProfileRequest{}, fmt.Errorf("%w: %v", errors.ErrInvalidContent, err)
	}
	return req, nil
}
