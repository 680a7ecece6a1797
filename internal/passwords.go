package internal

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadPasswordsFromFile loads passwords from a file, one password per line
func LoadPasswordsFromFile(filename string) ([]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var passwords []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if pwd := strings.TrimSpace(scanner.Text()); pwd != "" {
			passwords = append(passwords, pwd)
		}
	}
	return passwords, scanner.Err()
}

// ResolveExportPassword returns the keystore password for an export: the
// first line of PasswordFile when one is set, else Password.
func ResolveExportPassword(cfg ExportConfig) (string, error) {
	if cfg.PasswordFile == "" {
		return cfg.Password, nil
	}
	passwords, err := LoadPasswordsFromFile(cfg.PasswordFile)
	if err != nil {
		return "", fmt.Errorf("loading password from file: %w", err)
	}
	if len(passwords) == 0 {
		return "", fmt.Errorf("password file %s is empty", cfg.PasswordFile)
	}
	return passwords[0], nil
}

// DefaultPasswords are tried on every keystore before user-supplied ones:
// the empty password and the usual Java and OpenSSL defaults.
func DefaultPasswords() []string {
	return []string{"", "changeit", "password"}
}

// ProcessPasswords handles all password loading logic for reading
// keystores: defaults, then the command line list, then the file.
func ProcessPasswords(passwordList []string, passwordFile string) ([]string, error) {
	var passwords []string

	// Add default passwords
	passwords = append(passwords, DefaultPasswords()...)

	// Add passwords from command line list if provided
	passwords = append(passwords, passwordList...)

	// Add passwords from file if provided
	if passwordFile != "" {
		filePasswords, err := LoadPasswordsFromFile(passwordFile)
		if err != nil {
			return nil, fmt.Errorf("loading passwords from file: %w", err)
		}
		passwords = append(passwords, filePasswords...)
	}

	// Remove duplicates while preserving order
	seen := make(map[string]bool)
	var uniquePasswords []string
	for _, pwd := range passwords {
		if !seen[pwd] {
			seen[pwd] = true
			uniquePasswords = append(uniquePasswords, pwd)
		}
	}

	return uniquePasswords, nil
}
