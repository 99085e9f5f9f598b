package validator

import (
	"fmt"
	"regexp"
	"strings"
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

const (
	MessageMaxLength = 2000
	GroupNameMax     = 100
	IconTextMax      = 2
	CodeLength       = 8
)

var codeRegex = regexp.MustCompile(`^[a-z0-9-]+$`)
var colorRegex = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

func ValidateMessage(content, imageURL string) ValidationErrors {
	errs := make(ValidationErrors)

	content = strings.TrimSpace(content)
	if content == "" && imageURL == "" {
		errs.Add("content", "Message needs text or an image")
	}
	if len([]rune(content)) > MessageMaxLength {
		errs.Add("content", fmt.Sprintf("Message must be at most %d characters", MessageMaxLength))
	}

	return errs
}

func ValidateGroup(name, iconText, iconColor string) ValidationErrors {
	errs := make(ValidationErrors)

	name = strings.TrimSpace(name)
	if name == "" {
		errs.Add("name", "Group name is required")
	} else if len([]rune(name)) > GroupNameMax {
		errs.Add("name", "Group name is too long")
	}

	if iconText != "" && len([]rune(iconText)) > IconTextMax {
		errs.Add("icon_text", fmt.Sprintf("Icon text must be at most %d characters", IconTextMax))
	}

	if iconColor != "" && !colorRegex.MatchString(iconColor) {
		errs.Add("icon_color", "Icon color must be a hex color like #3B82F6")
	}

	return errs
}

func ValidateCode(code string) ValidationErrors {
	errs := make(ValidationErrors)

	code = strings.TrimSpace(code)
	if code == "" {
		errs.Add("code", "Code is required")
	} else if len(code) != CodeLength {
		errs.Add("code", fmt.Sprintf("Code must be %d characters", CodeLength))
	} else if !codeRegex.MatchString(code) {
		errs.Add("code", "Code can only contain lowercase letters, numbers and -")
	}

	return errs
}
