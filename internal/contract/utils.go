package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fatih/color"
)

// dbFileName is the name of the default SQLite database file.
const dbFileName = ".indexhist.db"

// identifierPattern is the grammar every storage unit name must match.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// maxIdentifierLength is the shortest identifier limit among supported backends (PostgreSQL).
const maxIdentifierLength = 63

// Color variables for console output.
var (
	UpColor   = color.New(color.FgGreen)            // UpColor marks a rising value.
	DownColor = color.New(color.FgRed)              // DownColor marks a falling value.
	FlatColor = color.New(color.FgHiBlack)          // FlatColor marks an unchanged value.
	HeadColor = color.New(color.FgCyan, color.Bold) // HeadColor marks section headers.
)

// ValidateUnitName validates that the upper-cased index name is a safe SQL identifier.
// It ensures the name consists only of alphanumeric characters and underscores,
// starting with a letter or underscore, to prevent SQL injection.
func ValidateUnitName(index string) error {
	name := strings.ToUpper(strings.TrimSpace(index))
	if name == "" {
		return fmt.Errorf("index name cannot be empty")
	}
	if len(name) > maxIdentifierLength {
		return fmt.Errorf("invalid index name: %s (longer than %d characters)", index, maxIdentifierLength)
	}
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid index name: %s (must match pattern %s)", index, identifierPattern.String())
	}
	return nil
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It returns os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetDBFilePath returns the path to the default SQLite DB file.
func GetDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return dbFileName
	}
	return filepath.Join(homeDir, dbFileName)
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
