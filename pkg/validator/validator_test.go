package validator

import (
	"testing"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"user@example.com", true},
		{"user.name+tag@sub.example.ru", true},
		{"user@localhost", false},
		{"не-email", false},
		{"", false},
		{"@example.com", false},
	}

	for _, tt := range tests {
		if got := ValidateEmail(tt.email); got != tt.want {
			t.Errorf("ValidateEmail(%q) = %v, ожидалось %v", tt.email, got, tt.want)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		want     bool
	}{
		{"Secret123", true},
		{"a1!b2@", true},
		{"short", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidatePassword(tt.password); got != tt.want {
			t.Errorf("ValidatePassword(%q) = %v, ожидалось %v", tt.password, got, tt.want)
		}
	}
}

func TestFormatName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"иван петров", "Иван Петров"},
		{"АННА СИДОРОВА", "Анна Сидорова"},
		{"jean-claude dusse", "Jean-Claude Dusse"},
		{"  иван   петров  ", "Иван Петров"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := FormatName(tt.in); got != tt.want {
			t.Errorf("FormatName(%q) = %q, ожидалось %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Иван <script>", "Иван script"},
		{`"имя"; DROP TABLE`, "имя DROP TABLE"},
		{"обычное имя", "обычное имя"},
	}

	for _, tt := range tests {
		if got := SanitizeString(tt.in); got != tt.want {
			t.Errorf("SanitizeString(%q) = %q, ожидалось %q", tt.in, got, tt.want)
		}
	}
}
