package validator

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	passwordRegex = regexp.MustCompile(`^[a-zA-Z0-9!@#$%^&*()_+\-=[\]{};':"\\|,.<>/?]{6,}$`)
)

func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

func ValidatePassword(password string) bool {
	if len(password) < 6 {
		return false
	}

	return passwordRegex.MatchString(password)
}

func ValidateName(name string) bool {
	if len(name) < 2 {
		return false
	}

	for _, r := range name {
		if !unicode.IsLetter(r) && r != '-' && r != ' ' && r != '\'' {
			return false
		}
	}

	return true
}

func FormatName(name string) string {
	if len(name) == 0 {
		return ""
	}

	parts := strings.Fields(name)
	for i, part := range parts {
		if strings.Contains(part, "-") {
			subparts := strings.Split(part, "-")
			for j, subpart := range subparts {
				subparts[j] = capitalize(subpart)
			}
			parts[i] = strings.Join(subparts, "-")
		} else {
			parts[i] = capitalize(part)
		}
	}

	return strings.Join(parts, " ")
}

// capitalize работает по рунам: имена бывают кириллическими.
func capitalize(word string) string {
	runes := []rune(word)
	if len(runes) == 0 {
		return word
	}

	runes[0] = unicode.ToUpper(runes[0])
	for i := 1; i < len(runes); i++ {
		runes[i] = unicode.ToLower(runes[i])
	}

	return string(runes)
}

func SanitizeString(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '<' || r == '>' || r == '&' || r == '"' || r == '\'' || r == '`' || r == ';' {
			return -1
		}
		return r
	}, s)
}
