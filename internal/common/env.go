package common

import (
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

var (
	prefixes = []string{"FSWATCH_", ""}

	IsTest       = GetEnvBool("TEST", false) || strings.HasSuffix(os.Args[0], ".test")
	IsDebug      = GetEnvBool("DEBUG", IsTest)
	IsTrace      = GetEnvBool("TRACE", false) && IsDebug
	IsProduction = !IsTest && !IsDebug

	ConfigPath = GetEnvString("CONFIG", ConfigFileName)
	PIDFile    = GetEnvString("PID_FILE", "")
)

// LookupEnv returns the first non-empty value of key under the known prefixes.
func LookupEnv(key string) (string, bool) {
	for _, prefix := range prefixes {
		value, ok := os.LookupEnv(prefix + key)
		if ok && value != "" {
			return value, true
		}
	}
	return "", false
}

func getEnv[T any](key string, defaultValue T, parser func(string) (T, error)) T {
	value, ok := LookupEnv(key)
	if !ok {
		return defaultValue
	}
	parsed, err := parser(value)
	if err == nil {
		return parsed
	}
	log.Fatal().Err(err).Msgf("env %s: invalid %T value: %s", key, parsed, value)
	return defaultValue
}

func GetEnvString(key string, defaultValue string) string {
	return getEnv(key, defaultValue, func(s string) (string, error) {
		return s, nil
	})
}

func GetEnvBool(key string, defaultValue bool) bool {
	return getEnv(key, defaultValue, strconv.ParseBool)
}

// CommaSeperatedList splits s by comma, trims spaces and drops empty items.
func CommaSeperatedList(s string) []string {
	if s == "" {
		return nil
	}
	res := strings.Split(s, ",")
	out := res[:0]
	for _, part := range res {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
