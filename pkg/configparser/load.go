package configparser

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

var ErrNoFilePath = errors.New("no file path provided")

// LoadYamlFile reads a flat-ish YAML file and exports its keys as environment
// variables (SECTION_KEY=value). Values already present in the environment win,
// so the file acts as a set of defaults. Supports ${VAR:-default} substitution.
func LoadYamlFile(filepath string) error {
	if filepath == "" {
		return ErrNoFilePath
	}

	file, err := os.Open(filepath)
	if err != nil {
		return fmt.Errorf("could not open YAML file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	prefixStack := []string{}
	previousIndent := 0

	for scanner.Scan() {
		line := scanner.Text()

		trimmedLine := strings.TrimSpace(line)
		if trimmedLine == "" || strings.HasPrefix(trimmedLine, "#") {
			continue
		}

		indent := 0
		for _, ch := range line {
			if ch != ' ' {
				break
			}
			indent++
		}

		// Two spaces per nesting level
		if indent < previousIndent {
			levelsToPop := (previousIndent - indent) / 2
			for i := 0; i < levelsToPop && len(prefixStack) > 0; i++ {
				prefixStack = prefixStack[:len(prefixStack)-1]
			}
		}
		previousIndent = indent

		content := strings.TrimSpace(line)

		// Section header: "auth:" with no inline value
		if strings.HasSuffix(content, ":") && !strings.Contains(content, ": ") {
			sectionName := strings.TrimSuffix(content, ":")
			prefixStack = append(prefixStack, sectionName)
			continue
		}

		parts := strings.SplitN(content, ":", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if value == "" {
			continue
		}

		value = strings.Trim(value, `"'`)
		value = substituteEnv(value)

		fullKey := strings.ToUpper(key)
		if len(prefixStack) > 0 {
			fullKey = strings.ToUpper(strings.Join(append(prefixStack, key), "_"))
		}

		if os.Getenv(fullKey) == "" {
			if err := os.Setenv(fullKey, value); err != nil {
				return fmt.Errorf("could not set env var %s: %w", fullKey, err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading YAML file: %w", err)
	}

	return nil
}

// substituteEnv resolves the ${VAR:-default} form against the current environment.
func substituteEnv(value string) string {
	if !strings.HasPrefix(value, "${") || !strings.HasSuffix(value, "}") || !strings.Contains(value, ":-") {
		return value
	}

	inner := value[2 : len(value)-1]
	parts := strings.SplitN(inner, ":-", 2)
	if len(parts) != 2 {
		return value
	}

	envVarName := strings.TrimSpace(parts[0])
	defaultValue := strings.TrimSpace(parts[1])

	if envValue := os.Getenv(envVarName); envValue != "" {
		return envValue
	}
	return defaultValue
}
