package parser

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/trackday/racer/internal/util"
)

// parseUintFromFloat parses a string that may be an integer ("32") or float ("32.00") into uint64.
// Scripted clients often serialize every number as a float.
func parseUintFromFloat(s string) (uint64, error) {
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != float64(uint64(f)) {
		return 0, fmt.Errorf("parseUintFromFloat: %q is not a valid uint64", s)
	}
	return uint64(f), nil
}

// parseIntFromFloat parses a string that may be an integer or float into int64.
func parseIntFromFloat(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("parseIntFromFloat: %q is not a valid int64", s)
	}
	return int64(f), nil
}

// parseFiniteFloat rejects NaN and infinities.
func parseFiniteFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("parseFiniteFloat: %q is not finite", s)
	}
	return f, nil
}

// parseBool accepts true/false as well as numeric flags ("1", "0.00").
func parseBool(s string) (bool, error) {
	if b, err := strconv.ParseBool(s); err == nil {
		return b, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false, fmt.Errorf("parseBool: %q is not a boolean", s)
	}
	return f != 0, nil
}

// Parser provides pure []string -> core struct conversion.
// It has zero external dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger

	// Static config set at creation time
	racerVersion string
	racerBuild   string
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger, racerVersion, racerBuild string) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		logger:       logger,
		racerVersion: racerVersion,
		racerBuild:   racerBuild,
	}
}

// clean fixes quoting on every arg in place.
func clean(data []string) {
	for i, v := range data {
		data[i] = util.CleanArg(v)
	}
}

func argError(command string, index int, name string, err error) error {
	return fmt.Errorf("%s: arg %d (%s): %w", command, index, name, err)
}
