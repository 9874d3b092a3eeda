package template

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var funcRegistry = map[string]func(args string) (string, error){
	"uuid":          fnUUID,
	"timestamp":     fnTimestamp,
	"timestamp_ms":  fnTimestampMs,
	"random":        fnRandom,
	"random_string": fnRandomString,
}

// evalFunction evaluates a built-in function call such as random(1,100).
// isCall is false when expr is not a call to a known function.
func evalFunction(expr string) (val string, isCall bool, err error) {
	parenIdx := strings.Index(expr, "(")
	if parenIdx == -1 || !strings.HasSuffix(expr, ")") {
		return "", false, nil
	}

	funcName := expr[:parenIdx]
	fn, ok := funcRegistry[funcName]
	if !ok {
		return "", true, fmt.Errorf("unknown function %q", funcName)
	}

	result, err := fn(expr[parenIdx+1 : len(expr)-1])
	if err != nil {
		return "", true, fmt.Errorf("function %s: %w", funcName, err)
	}
	return result, true, nil
}

func noArgs(name, args string) error {
	if args != "" {
		return fmt.Errorf("%s() takes no arguments", name)
	}
	return nil
}

func fnUUID(args string) (string, error) {
	if err := noArgs("uuid", args); err != nil {
		return "", err
	}
	return uuid.NewString(), nil
}

func fnTimestamp(args string) (string, error) {
	if err := noArgs("timestamp", args); err != nil {
		return "", err
	}
	return strconv.FormatInt(time.Now().Unix(), 10), nil
}

func fnTimestampMs(args string) (string, error) {
	if err := noArgs("timestamp_ms", args); err != nil {
		return "", err
	}
	return strconv.FormatInt(time.Now().UnixMilli(), 10), nil
}

// fnRandom returns an integer in [min, max].
// Usage: random(min,max)
func fnRandom(args string) (string, error) {
	parts := strings.Split(args, ",")
	if len(parts) != 2 {
		return "", fmt.Errorf("random(min,max) requires exactly 2 arguments")
	}

	lo, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid min value: %w", err)
	}
	hi, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid max value: %w", err)
	}
	if lo > hi {
		return "", fmt.Errorf("min (%d) must be <= max (%d)", lo, hi)
	}

	return strconv.FormatInt(lo+rand.Int64N(hi-lo+1), 10), nil
}

// fnRandomString returns an alphanumeric string of the given length.
// Usage: random_string(length)
func fnRandomString(args string) (string, error) {
	length, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil {
		return "", fmt.Errorf("invalid length: %w", err)
	}
	if length <= 0 || length > 1<<16 {
		return "", fmt.Errorf("length must be between 1 and 65536, got %d", length)
	}

	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		result[i] = charset[rand.IntN(len(charset))]
	}
	return string(result), nil
}
