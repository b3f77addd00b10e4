// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validate flags extracted values that fall outside physically
// plausible ranges. Flags are advisory; they never block a record.
package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/sim-agent/pkg/types"
)

// SeverityWarning is the only severity the checks emit.
const SeverityWarning = "warning"

// Field paths reported in flags.
const (
	FieldTemperature = "environment_conditions.temperature"
	FieldPressure    = "environment_conditions.pressure"
	FieldTimestep    = "domain_details.timestep"
)

var (
	temperaturePattern = regexp.MustCompile(`(\d+(\.\d+)?)\s*k`)
	pressurePattern    = regexp.MustCompile(`(\d+(\.\d+)?)\s*(bar|atm|pa)`)
	timestepPattern    = regexp.MustCompile(`(\d+(\.\d+)?)\s*(fs|femtoseconds|ps)`)
)

// Check runs the plausibility checks for one record. Temperature and
// pressure are read from the environment and sampling text of core; the
// timestep check runs only for MD papers with MD domain details.
func Check(simType types.SimulationType, core types.CoreDetails, domain *types.DomainDetails, s types.ValidationSettings) []types.ValidationFlag {
	flags := []types.ValidationFlag{}
	text := core.EnvironmentConditions + " " + core.SamplingSetup

	if temp, ok := firstNumber(text, temperaturePattern); ok && (temp < s.TemperatureKMin || temp > s.TemperatureKMax) {
		flags = append(flags, types.ValidationFlag{
			Severity: SeverityWarning,
			Field:    FieldTemperature,
			Value:    formatFloat(temp),
			Message: fmt.Sprintf("Temperature appears outside expected range [%s, %s] K.",
				formatFloat(s.TemperatureKMin), formatFloat(s.TemperatureKMax)),
		})
	}

	if p, ok := firstNumber(text, pressurePattern); ok && p > s.PressureBarMax {
		flags = append(flags, types.ValidationFlag{
			Severity: SeverityWarning,
			Field:    FieldPressure,
			Value:    formatFloat(p),
			Message:  fmt.Sprintf("Pressure appears very high (> %s bar equivalent).", formatFloat(s.PressureBarMax)),
		})
	}

	if simType == types.SimMD && domain != nil && domain.MD != nil {
		raw := domain.MD.Timestep
		if fs, ok := TimestepFS(raw); ok && (fs < s.MDTimestepFSMin || fs > s.MDTimestepFSMax) {
			flags = append(flags, types.ValidationFlag{
				Severity: SeverityWarning,
				Field:    FieldTimestep,
				Value:    raw,
				Message: fmt.Sprintf("MD timestep outside expected range [%s, %s] fs.",
					formatFloat(s.MDTimestepFSMin), formatFloat(s.MDTimestepFSMax)),
			})
		}
	}
	return flags
}

// TimestepFS converts a timestep such as "2 fs" or "0.002 ps" to
// femtoseconds. It reports false when no number with a time unit is found.
func TimestepFS(value string) (float64, bool) {
	m := timestepPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(value)))
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	if m[3] == "ps" {
		return n * 1000, true
	}
	return n, true
}

func firstNumber(text string, re *regexp.Regexp) (float64, bool) {
	m := re.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(m[1], 64)
	return n, err == nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
